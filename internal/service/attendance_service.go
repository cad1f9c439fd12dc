package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/repository"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
	"github.com/noah-isme/uni-schedule-api/pkg/geo"
	"github.com/noah-isme/uni-schedule-api/pkg/qrcode"
)

const (
	dateLayout       = "2006-01-02"
	qrSeparator      = "|"
	defaultGeoRadius = 100.0
)

type attendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) error
	FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, notes *string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
	CountStatusSince(ctx context.Context, teacherID string, status models.AttendanceStatus, since time.Time) (int, error)
	Stats(ctx context.Context, teacherID string, from, to *time.Time) (*models.AttendanceStats, error)
}

type attendanceEntryReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleEntryDetail, error)
}

type attendanceRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// Actor is the authenticated caller of an attendance operation.
type Actor struct {
	UserID    string
	Role      models.UserRole
	TeacherID string
}

// AttendanceConfig holds the check-in rules.
type AttendanceConfig struct {
	LateTolerance    time.Duration
	Location         *time.Location
	GeoRadiusMeters  float64
	AbsenceWindow    time.Duration
	AbsenceThreshold int
}

// RegisterAttendanceRequest records attendance by hand. An empty status is derived from the recorded time.
type RegisterAttendanceRequest struct {
	ScheduleEntryID string     `json:"schedule_entry_id" validate:"required"`
	Date            string     `json:"date" validate:"required,datetime=2006-01-02"`
	Status          string     `json:"status" validate:"omitempty,attendance_status"`
	RecordedAt      *time.Time `json:"recorded_at"`
	Notes           *string    `json:"notes" validate:"omitempty,max=500"`
}

// QRCheckInRequest carries a scanned QR payload.
type QRCheckInRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// GeoCheckInRequest carries the device position at check-in.
type GeoCheckInRequest struct {
	ScheduleEntryID string  `json:"schedule_entry_id" validate:"required"`
	Latitude        float64 `json:"latitude" validate:"latitude"`
	Longitude       float64 `json:"longitude" validate:"longitude"`
}

// UpdateAttendanceRequest corrects a record.
type UpdateAttendanceRequest struct {
	Status string  `json:"status" validate:"required,attendance_status"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

// AttendanceQR is the code a teacher scans to check in.
type AttendanceQR struct {
	ScheduleEntryID string `json:"schedule_entry_id"`
	Date            string `json:"date"`
	Payload         string `json:"payload"`
	Image           string `json:"image"`
}

// AttendanceService records teacher attendance by hand, QR code or location.
type AttendanceService struct {
	repo      attendanceRepository
	entries   attendanceEntryReader
	rooms     attendanceRoomReader
	notifier  Notifier
	metrics   *MetricsService
	qr        *qrcode.Generator
	validator *validator.Validate
	logger    *zap.Logger
	config    AttendanceConfig
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, entries attendanceEntryReader, rooms attendanceRoomReader, notifier Notifier, metrics *MetricsService, qr *qrcode.Generator, validate *validator.Validate, logger *zap.Logger, config AttendanceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if qr == nil {
		qr = qrcode.NewGenerator(0)
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.LateTolerance <= 0 {
		config.LateTolerance = 15 * time.Minute
	}
	if config.GeoRadiusMeters <= 0 {
		config.GeoRadiusMeters = defaultGeoRadius
	}
	if config.AbsenceWindow <= 0 {
		config.AbsenceWindow = 7 * 24 * time.Hour
	}
	if config.AbsenceThreshold <= 0 {
		config.AbsenceThreshold = 3
	}
	svc := &AttendanceService{
		repo:      repo,
		entries:   entries,
		rooms:     rooms,
		notifier:  notifier,
		metrics:   metrics,
		qr:        qr,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// Register records attendance entered by staff, or by a teacher for their own class.
func (s *AttendanceService) Register(ctx context.Context, actor Actor, req RegisterAttendanceRequest) (*models.AttendanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	entry, err := s.entryFor(ctx, actor, req.ScheduleEntryID)
	if err != nil {
		return nil, err
	}
	date, err := s.classDate(req.Date, entry)
	if err != nil {
		return nil, err
	}
	recordedAt := s.now().In(s.config.Location)
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.In(s.config.Location)
	}
	status := models.AttendanceStatus(strings.ToLower(req.Status))
	if status == "" {
		status = s.statusAt(entry, date, recordedAt)
	}
	record := &models.AttendanceRecord{
		ScheduleEntryID: entry.ID,
		TeacherID:       entry.TeacherID,
		Date:            date,
		RecordedAt:      recordedAt,
		Status:          status,
		Method:          models.MethodManual,
		Notes:           normalizeOptional(req.Notes),
		RecordedBy:      nonEmpty(actor.UserID),
	}
	return s.save(ctx, entry, record)
}

// QRCode builds the check-in code for an entry on a date; an empty date means today.
func (s *AttendanceService) QRCode(ctx context.Context, actor Actor, entryID, date string) (*AttendanceQR, error) {
	entry, err := s.entryFor(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}
	if date == "" {
		date = s.today().Format(dateLayout)
	}
	day, err := s.classDate(date, entry)
	if err != nil {
		return nil, err
	}
	payload := strings.Join([]string{entry.ID, entry.TeacherID, day.Format(dateLayout)}, qrSeparator)
	image, err := s.qr.DataURI(payload)
	if err != nil {
		return nil, internalError(err, "failed to render qr code")
	}
	return &AttendanceQR{ScheduleEntryID: entry.ID, Date: day.Format(dateLayout), Payload: payload, Image: image}, nil
}

// CheckInQR records a teacher's own attendance from a scanned payload issued for today.
func (s *AttendanceService) CheckInQR(ctx context.Context, actor Actor, req QRCheckInRequest) (*models.AttendanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid qr payload")
	}
	parts := strings.Split(strings.TrimSpace(req.Payload), qrSeparator)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "malformed qr payload")
	}
	entryID, teacherID, rawDate := parts[0], parts[1], parts[2]
	if actor.TeacherID == "" || actor.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "qr code belongs to another teacher")
	}
	entry, err := s.entryFor(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}
	if entry.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "qr code does not match the schedule teacher")
	}
	if rawDate != s.today().Format(dateLayout) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "qr code is not valid today")
	}
	date, err := s.classDate(rawDate, entry)
	if err != nil {
		return nil, err
	}
	recordedAt := s.now().In(s.config.Location)
	record := &models.AttendanceRecord{
		ScheduleEntryID: entry.ID,
		TeacherID:       entry.TeacherID,
		Date:            date,
		RecordedAt:      recordedAt,
		Status:          s.statusAt(entry, date, recordedAt),
		Method:          models.MethodQR,
		RecordedBy:      nonEmpty(actor.UserID),
	}
	return s.save(ctx, entry, record)
}

// CheckInGeo records a teacher's own attendance when they are close enough to the room.
func (s *AttendanceService) CheckInGeo(ctx context.Context, actor Actor, req GeoCheckInRequest) (*models.AttendanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid location payload")
	}
	if actor.TeacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can check in by location")
	}
	entry, err := s.entryFor(ctx, actor, req.ScheduleEntryID)
	if err != nil {
		return nil, err
	}
	today := s.today().Format(dateLayout)
	date, err := s.classDate(today, entry)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.FindByID(ctx, entry.RoomID)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}

	position := geo.Point{Lat: req.Latitude, Lon: req.Longitude}
	lat, lon := req.Latitude, req.Longitude
	record := &models.AttendanceRecord{
		ScheduleEntryID: entry.ID,
		TeacherID:       entry.TeacherID,
		Date:            date,
		Method:          models.MethodGeo,
		Latitude:        &lat,
		Longitude:       &lon,
		RecordedBy:      nonEmpty(actor.UserID),
	}
	if target, ok := room.Location(); ok {
		within, distance := geo.Within(target, position, s.config.GeoRadiusMeters)
		distance = math.Round(distance*100) / 100
		if !within {
			return nil, appErrors.WithDetails(appErrors.ErrOutOfRange,
				fmt.Sprintf("you are %.0f m from %s, the limit is %.0f m", distance, room.Name, s.config.GeoRadiusMeters),
				map[string]float64{"distance_meters": distance, "radius_meters": s.config.GeoRadiusMeters})
		}
		record.DistanceMeters = &distance
	}
	record.RecordedAt = s.now().In(s.config.Location)
	record.Status = s.statusAt(entry, date, record.RecordedAt)
	return s.save(ctx, entry, record)
}

// Get returns one record.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "attendance record not found", "failed to load attendance record")
	}
	return record, nil
}

// List returns records with pagination.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list attendance")
	}
	return records, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Update changes the status and notes of a record.
func (s *AttendanceService) Update(ctx context.Context, id string, req UpdateAttendanceRequest) (*models.AttendanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	status := models.AttendanceStatus(strings.ToLower(req.Status))
	if err := s.repo.UpdateStatus(ctx, id, status, normalizeOptional(req.Notes)); err != nil {
		return nil, internalError(err, "failed to update attendance")
	}
	return s.Get(ctx, id)
}

// Delete removes a record.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "attendance record not found", "failed to delete attendance record")
	}
	s.logger.Info("attendance record deleted", zap.String("attendance_id", id))
	return nil
}

// Stats summarises a teacher's attendance over an optional date range.
func (s *AttendanceService) Stats(ctx context.Context, teacherID string, from, to *time.Time) (*models.AttendanceStats, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is required")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range is inverted")
	}
	stats, err := s.repo.Stats(ctx, teacherID, from, to)
	if err != nil {
		return nil, internalError(err, "failed to compute attendance statistics")
	}
	stats.TeacherID = teacherID
	stats.Finalize()
	return stats, nil
}

func (s *AttendanceService) save(ctx context.Context, entry *models.ScheduleEntryDetail, record *models.AttendanceRecord) (*models.AttendanceDetail, error) {
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAttendance,
				fmt.Sprintf("attendance already recorded for %s", record.Date.Format(dateLayout)))
		}
		return nil, internalError(err, "failed to record attendance")
	}
	s.metrics.RecordCheckIn(record.Method, record.Status)
	s.notifyRecorded(ctx, entry, record)
	if record.Status == models.AttendanceAbsent {
		s.checkAbsences(ctx, entry)
	}

	detail, err := s.repo.FindByID(ctx, record.ID)
	if err != nil {
		return nil, lookupError(err, "attendance record not found", "failed to load attendance record")
	}
	return detail, nil
}

func (s *AttendanceService) notifyRecorded(ctx context.Context, entry *models.ScheduleEntryDetail, record *models.AttendanceRecord) {
	if s.notifier == nil || entry.TeacherUserID == nil {
		return
	}
	s.notifier.Notify(ctx, models.Notification{
		UserID: *entry.TeacherUserID,
		Type:   models.NotificationAttendance,
		Title:  "Attendance recorded",
		Message: fmt.Sprintf("%s group %d on %s marked %s",
			entry.SubjectName, entry.GroupNumber, record.Date.Format(dateLayout), record.Status),
		Data: notificationData(map[string]string{
			"attendance_id": record.ID,
			"schedule_id":   entry.ID,
			"status":        string(record.Status),
			"method":        string(record.Method),
		}),
	})
}

func (s *AttendanceService) checkAbsences(ctx context.Context, entry *models.ScheduleEntryDetail) {
	if s.notifier == nil || entry.TeacherUserID == nil {
		return
	}
	since := s.now().Add(-s.config.AbsenceWindow)
	count, err := s.repo.CountStatusSince(ctx, entry.TeacherID, models.AttendanceAbsent, since)
	if err != nil {
		s.logger.Warn("failed to count absences", zap.String("teacher_id", entry.TeacherID), zap.Error(err))
		return
	}
	if count < s.config.AbsenceThreshold {
		return
	}
	days := int(s.config.AbsenceWindow.Hours() / 24)
	s.notifier.Notify(ctx, models.Notification{
		UserID:  *entry.TeacherUserID,
		Type:    models.NotificationAlert,
		Title:   "Multiple absences",
		Message: fmt.Sprintf("You have %d absences in the last %d days.", count, days),
		Data:    notificationData(map[string]int{"absences": count, "days": days}),
	})
}

// entryFor loads the entry and enforces that teachers only act on their own classes.
func (s *AttendanceService) entryFor(ctx context.Context, actor Actor, entryID string) (*models.ScheduleEntryDetail, error) {
	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, lookupError(err, "schedule entry not found", "failed to load schedule entry")
	}
	if actor.Role == models.RoleTeacher && actor.TeacherID != entry.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule entry belongs to another teacher")
	}
	return entry, nil
}

// classDate parses a calendar date and checks it falls on the entry's weekday.
func (s *AttendanceService) classDate(raw string, entry *models.ScheduleEntryDetail) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	if int(date.Weekday()) != int(entry.Weekday) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("%s is not a %s", raw, entry.Weekday))
	}
	return date, nil
}

// statusAt is late when recordedAt is after the class start plus the tolerance.
func (s *AttendanceService) statusAt(entry *models.ScheduleEntryDetail, date, recordedAt time.Time) models.AttendanceStatus {
	start := entry.StartTime.On(date, s.config.Location)
	if recordedAt.After(start.Add(s.config.LateTolerance)) {
		return models.AttendanceLate
	}
	return models.AttendancePresent
}

func (s *AttendanceService) today() time.Time {
	return s.now().In(s.config.Location)
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
