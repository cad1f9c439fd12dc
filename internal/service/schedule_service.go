package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/repository"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
	"github.com/noah-isme/uni-schedule-api/pkg/database"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type scheduleStore interface {
	Source(exec sqlx.ExtContext) scheduling.Source
	LockKeys(ctx context.Context, exec sqlx.ExtContext, keys []string) error
	ListBookings(ctx context.Context, exec sqlx.ExtContext) ([]scheduling.Booking, error)
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, entries []models.ScheduleEntry) error
	Update(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	FindByID(ctx context.Context, id string) (*models.ScheduleEntryDetail, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.ScheduleEntryDetail, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, int, error)
	ListAll(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error)
	CountAttendance(ctx context.Context, exec sqlx.ExtContext, id string) (int, error)
}

type scheduleTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActive(ctx context.Context, exec sqlx.ExtContext) ([]models.Teacher, error)
}

type scheduleRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ListActive(ctx context.Context, exec sqlx.ExtContext) ([]models.Room, error)
}

type scheduleGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.GroupDetail, error)
	ListUnscheduled(ctx context.Context, exec sqlx.ExtContext, termID string) ([]models.GroupDetail, error)
}

// TimetableScope selects whose weekly timetable is built.
type TimetableScope string

const (
	TimetableTerm    TimetableScope = "term"
	TimetableTeacher TimetableScope = "teacher"
	TimetableRoom    TimetableScope = "room"
	TimetableGroup   TimetableScope = "group"
)

// ScheduleRequest places a group with a teacher and a room in a weekly slot.
type ScheduleRequest struct {
	GroupID   string `json:"group_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	RoomID    string `json:"room_id" validate:"required"`
	Weekday   int    `json:"weekday" validate:"required,weekday"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

// ValidateScheduleRequest is a dry-run check, optionally ignoring an existing entry.
type ValidateScheduleRequest struct {
	ScheduleRequest
	ExcludeID string `json:"exclude_id"`
}

// ScheduleConfig tunes the schedule service.
type ScheduleConfig struct {
	DefaultMaxWeeklyHours float64
	CacheTTL              time.Duration
}

// ScheduleService validates, stores and auto-assigns timetable entries.
type ScheduleService struct {
	db        *sqlx.DB
	repo      scheduleStore
	teachers  scheduleTeacherReader
	rooms     scheduleRoomReader
	groups    scheduleGroupReader
	terms     currentTermReader
	notifier  Notifier
	cache     *CacheService
	metrics   *MetricsService
	engine    *scheduling.Engine
	validator *validator.Validate
	logger    *zap.Logger
	config    ScheduleConfig
}

// NewScheduleService wires the schedule service. notifier, cache and metrics may be nil.
func NewScheduleService(
	db *sqlx.DB,
	repo scheduleStore,
	teachers scheduleTeacherReader,
	rooms scheduleRoomReader,
	groups scheduleGroupReader,
	terms currentTermReader,
	notifier Notifier,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config ScheduleConfig,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultMaxWeeklyHours <= 0 {
		config.DefaultMaxWeeklyHours = scheduling.DefaultMaxWeeklyHours
	}
	svc := &ScheduleService{
		db:        db,
		repo:      repo,
		teachers:  teachers,
		rooms:     rooms,
		groups:    groups,
		terms:     terms,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		engine:    scheduling.NewEngine(nil, config.DefaultMaxWeeklyHours),
		validator: validate,
		logger:    logger,
		config:    config,
	}
	svc.validator.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return scheduling.Weekday(fl.Field().Int()).Valid()
	})
	svc.validator.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := scheduling.ParseClock(fl.Field().String())
		return err == nil
	})
	return svc
}

// placement is a request resolved against the catalog.
type placement struct {
	teacher   *models.Teacher
	group     *models.GroupDetail
	candidate scheduling.Candidate
}

func (s *ScheduleService) resolve(ctx context.Context, req ScheduleRequest) (*placement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule payload")
	}
	start, _ := scheduling.ParseClock(req.StartTime)
	end, _ := scheduling.ParseClock(req.EndTime)
	slot, err := scheduling.NewSlot(scheduling.Weekday(req.Weekday), start, end)
	if err != nil {
		return nil, s.rejection(err)
	}

	group, err := s.groups.FindByID(ctx, req.GroupID)
	if err != nil {
		return nil, lookupError(err, "group not found", "failed to load group")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}
	room, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}
	if !room.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room is inactive")
	}

	return &placement{
		teacher: teacher,
		group:   group,
		candidate: scheduling.Candidate{
			TeacherID: teacher.ID,
			RoomID:    room.ID,
			GroupID:   group.ID,
			TermID:    group.TermID,
			Slot:      slot,
		},
	}, nil
}

// Check runs every rule without writing and reports all failures found.
func (s *ScheduleService) Check(ctx context.Context, req ValidateScheduleRequest) (*scheduling.Report, error) {
	p, err := s.resolve(ctx, req.ScheduleRequest)
	if err != nil {
		return nil, err
	}
	v := scheduling.NewValidator(s.repo.Source(nil), s.config.DefaultMaxWeeklyHours)
	report, err := v.Check(ctx, p.teacher.Profile(), p.candidate, req.ExcludeID)
	if err != nil {
		return nil, s.writeError(err, "failed to validate schedule entry")
	}
	if report.Valid {
		s.metrics.RecordValidation("accepted")
	} else {
		s.metrics.RecordValidation("rejected")
	}
	return report, nil
}

// Create validates and stores an entry under the teacher and room locks.
func (s *ScheduleService) Create(ctx context.Context, req ScheduleRequest) (*models.ScheduleEntryDetail, error) {
	p, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	entry := entryFromCandidate(p.candidate)
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.LockKeys(ctx, tx, lockKeysFor(p.candidate.TeacherID, p.candidate.RoomID, p.candidate.Slot.Weekday)); err != nil {
			return err
		}
		if err := s.validate(ctx, tx, p, ""); err != nil {
			return err
		}
		return s.repo.Create(ctx, tx, &entry)
	})
	if err != nil {
		return nil, s.writeError(err, "failed to create schedule entry")
	}
	s.metrics.RecordValidation("accepted")
	s.cache.InvalidateSchedules(ctx)

	detail, err := s.repo.FindByID(ctx, entry.ID)
	if err != nil {
		return nil, lookupError(err, "schedule entry not found", "failed to load schedule entry")
	}
	s.notifySchedule(ctx, *detail, "New schedule assigned")
	return detail, nil
}

// Update re-validates the entry excluding itself and rewrites it.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleRequest) (*models.ScheduleEntryDetail, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	entry := entryFromCandidate(p.candidate)
	entry.ID = existing.ID
	entry.CreatedAt = existing.CreatedAt

	keys := append(
		lockKeysFor(p.candidate.TeacherID, p.candidate.RoomID, p.candidate.Slot.Weekday),
		lockKeysFor(existing.TeacherID, existing.RoomID, existing.Weekday)...,
	)
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.LockKeys(ctx, tx, keys); err != nil {
			return err
		}
		if err := s.validate(ctx, tx, p, id); err != nil {
			return err
		}
		return s.repo.Update(ctx, tx, &entry)
	})
	if err != nil {
		return nil, s.writeError(err, "failed to update schedule entry")
	}
	s.metrics.RecordValidation("accepted")
	s.cache.InvalidateSchedules(ctx)

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "schedule entry not found", "failed to load schedule entry")
	}
	if existing.TeacherID != detail.TeacherID {
		s.notifySchedule(ctx, *existing, "Schedule removed")
		s.notifySchedule(ctx, *detail, "New schedule assigned")
	} else {
		s.notifySchedule(ctx, *detail, "Schedule updated")
	}
	return detail, nil
}

// Delete removes an entry that has no attendance records.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	var count int
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.LockKeys(ctx, tx, lockKeysFor(existing.TeacherID, existing.RoomID, existing.Weekday)); err != nil {
			return err
		}
		n, err := s.repo.CountAttendance(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			count = n
			return repository.ErrInUse
		}
		return s.repo.Delete(ctx, tx, id)
	})
	if errors.Is(err, repository.ErrInUse) {
		if count == 0 {
			return appErrors.Clone(appErrors.ErrConflict, "schedule entry has attendance records")
		}
		return appErrors.WithDetails(appErrors.ErrConflict, "schedule entry has attendance records", map[string]int{"attendance": count})
	}
	if err != nil {
		return internalError(err, "failed to delete schedule entry")
	}
	s.cache.InvalidateSchedules(ctx)
	s.notifySchedule(ctx, *existing, "Schedule removed")
	return nil
}

// Get fetches an entry with display names.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleEntryDetail, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "schedule entry not found", "failed to load schedule entry")
	}
	return entry, nil
}

// List returns entries with pagination.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list schedule entries")
	}
	return entries, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Weekly builds a Monday to Saturday timetable for the scope. An empty termID means the current term.
func (s *ScheduleService) Weekly(ctx context.Context, scope TimetableScope, id, termID string) (*models.WeeklyTimetable, error) {
	termID, err := resolveTermID(ctx, s.terms, termID)
	if err != nil {
		return nil, err
	}
	filter := models.ScheduleFilter{TermID: termID}
	switch scope {
	case TimetableTerm:
	case TimetableTeacher:
		filter.TeacherID = id
	case TimetableRoom:
		filter.RoomID = id
	case TimetableGroup:
		filter.GroupID = id
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown timetable scope")
	}

	key := weeklyCacheKey(string(scope), id, termID)
	var cached models.WeeklyTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	entries, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to load timetable")
	}
	timetable := models.BuildWeeklyTimetable(termID, entries)
	_ = s.cache.Set(ctx, key, timetable, s.config.CacheTTL)
	return &timetable, nil
}

// AutoAssign places every unscheduled group of the term in one transaction.
func (s *ScheduleService) AutoAssign(ctx context.Context, termID string) (*models.AutoAssignResult, error) {
	termID, err := resolveTermID(ctx, s.terms, termID)
	if err != nil {
		return nil, err
	}
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term is required when no term is current")
	}

	var (
		plan    *scheduling.Plan
		pending []models.GroupDetail
		entries []models.ScheduleEntry
	)
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		teachers, err := s.teachers.ListActive(ctx, tx)
		if err != nil {
			return err
		}
		rooms, err := s.rooms.ListActive(ctx, tx)
		if err != nil {
			return err
		}
		if err := s.repo.LockKeys(ctx, tx, batchLockKeys(teachers, rooms, s.engine.Weekdays)); err != nil {
			return err
		}
		pending, err = s.groups.ListUnscheduled(ctx, tx, termID)
		if err != nil {
			return err
		}
		snapshot, err := s.repo.ListBookings(ctx, tx)
		if err != nil {
			return err
		}

		groupRefs := make([]scheduling.GroupRef, 0, len(pending))
		for _, g := range pending {
			groupRefs = append(groupRefs, scheduling.GroupRef{ID: g.ID, TermID: g.TermID, Label: g.Label()})
		}
		profiles := make([]scheduling.TeacherProfile, 0, len(teachers))
		for _, t := range teachers {
			profiles = append(profiles, t.Profile())
		}
		roomRefs := make([]scheduling.RoomRef, 0, len(rooms))
		for _, r := range rooms {
			roomRefs = append(roomRefs, scheduling.RoomRef{ID: r.ID, Capacity: r.Capacity})
		}

		plan, err = s.engine.Assign(ctx, scheduling.NewLedger(snapshot), groupRefs, profiles, roomRefs)
		if err != nil {
			return err
		}
		entries = make([]models.ScheduleEntry, 0, len(plan.Placed))
		for _, b := range plan.Placed {
			entry := entryFromBooking(b)
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			return nil
		}
		return s.repo.BulkInsert(ctx, tx, entries)
	})
	if err != nil {
		return nil, autoAssignError(err)
	}

	failed := make([]models.FailedGroup, 0, len(plan.Failed))
	for _, g := range plan.Failed {
		failed = append(failed, models.FailedGroup{GroupID: g.ID, Label: g.Label})
	}
	s.metrics.RecordAutoAssign(len(entries), len(failed))
	s.logger.Info("auto assignment finished",
		zap.String("term_id", termID),
		zap.Int("assigned", len(entries)),
		zap.Int("failed", len(failed)),
	)
	if len(entries) > 0 {
		s.cache.InvalidateSchedules(ctx)
		s.notifyPlaced(ctx, entries)
	}

	return &models.AutoAssignResult{
		TermID:      termID,
		Assigned:    len(entries),
		Failed:      failed,
		TotalGroups: len(pending),
		Entries:     entries,
	}, nil
}

func (s *ScheduleService) validate(ctx context.Context, tx sqlx.ExtContext, p *placement, excludeID string) error {
	v := scheduling.NewValidator(s.repo.Source(tx), s.config.DefaultMaxWeeklyHours)
	return v.Validate(ctx, p.teacher.Profile(), p.candidate, excludeID)
}

func (s *ScheduleService) notifyPlaced(ctx context.Context, entries []models.ScheduleEntry) {
	if s.notifier == nil {
		return
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	details, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to load assigned entries for notification", zap.Error(err))
		return
	}
	for _, d := range details {
		s.notifySchedule(ctx, d, "New schedule assigned")
	}
}

func (s *ScheduleService) notifySchedule(ctx context.Context, d models.ScheduleEntryDetail, title string) {
	if s.notifier == nil || d.TeacherUserID == nil {
		return
	}
	s.notifier.Notify(ctx, models.Notification{
		UserID:    *d.TeacherUserID,
		Type:      models.NotificationScheduleChange,
		Title:     title,
		Message:   describeEntry(d),
		ActionURL: nonEmpty("/schedules/" + d.ID),
		Data: notificationData(map[string]interface{}{
			"schedule_id":  d.ID,
			"subject":      d.SubjectName,
			"group_number": d.GroupNumber,
			"weekday":      d.Weekday.String(),
			"start_time":   d.StartTime.String(),
			"end_time":     d.EndTime.String(),
			"room":         d.RoomName,
		}),
	})
}

// rejection maps validator outcomes to typed errors and counts them.
func (s *ScheduleService) rejection(err error) error {
	var (
		conflict *scheduling.ConflictError
		load     *scheduling.LoadExceededError
		avail    *scheduling.AvailabilityError
	)
	switch {
	case errors.Is(err, scheduling.ErrInvalidInterval):
		s.metrics.RecordValidation("invalid_interval")
		return appErrors.Clone(appErrors.ErrInvalidInterval, err.Error())
	case errors.As(err, &conflict):
		s.metrics.RecordValidation("conflict")
		return appErrors.WithDetails(appErrors.ErrScheduleConflict, conflict.Error(), map[string]interface{}{
			"kinds":     conflict.Kinds,
			"conflicts": conflict.Clashes,
		})
	case errors.As(err, &load):
		s.metrics.RecordValidation("load_exceeded")
		return appErrors.WithDetails(appErrors.ErrLoadExceeded, load.Error(), load)
	case errors.As(err, &avail):
		s.metrics.RecordValidation("unavailable")
		return appErrors.WithDetails(appErrors.ErrAvailabilityViolation, avail.Error(), map[string]string{
			"teacher_id": avail.TeacherID,
			"slot":       avail.Slot.String(),
		})
	}
	return appErrors.Clone(appErrors.ErrValidation, err.Error())
}

func (s *ScheduleService) writeError(err error, failure string) error {
	if scheduling.IsRejection(err) {
		return s.rejection(err)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, "schedule entry already exists")
	}
	return internalError(err, failure)
}

func autoAssignError(err error) error {
	switch {
	case errors.Is(err, scheduling.ErrNoUnscheduledGroups):
		return appErrors.Clone(appErrors.ErrNoUnscheduledGroups, err.Error())
	case errors.Is(err, scheduling.ErrNoActiveTeachers):
		return appErrors.Clone(appErrors.ErrNoActiveTeachers, err.Error())
	case errors.Is(err, scheduling.ErrNoActiveRooms):
		return appErrors.Clone(appErrors.ErrNoActiveRooms, err.Error())
	}
	return internalError(err, "automatic assignment failed")
}

func lockKeysFor(teacherID, roomID string, day scheduling.Weekday) []string {
	return []string{repository.TeacherLockKey(teacherID), repository.RoomLockKey(roomID, day)}
}

func batchLockKeys(teachers []models.Teacher, rooms []models.Room, days []scheduling.Weekday) []string {
	keys := make([]string, 0, len(teachers)+len(rooms)*len(days))
	for _, t := range teachers {
		keys = append(keys, repository.TeacherLockKey(t.ID))
	}
	for _, r := range rooms {
		for _, d := range days {
			keys = append(keys, repository.RoomLockKey(r.ID, d))
		}
	}
	return keys
}

func entryFromCandidate(c scheduling.Candidate) models.ScheduleEntry {
	return models.ScheduleEntry{
		GroupID:   c.GroupID,
		TeacherID: c.TeacherID,
		RoomID:    c.RoomID,
		Weekday:   c.Slot.Weekday,
		StartTime: c.Slot.Start,
		EndTime:   c.Slot.End,
	}
}

func entryFromBooking(b scheduling.Booking) models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:        b.EntryID,
		GroupID:   b.GroupID,
		TeacherID: b.TeacherID,
		RoomID:    b.RoomID,
		Weekday:   b.Slot.Weekday,
		StartTime: b.Slot.Start,
		EndTime:   b.Slot.End,
	}
}

func describeEntry(d models.ScheduleEntryDetail) string {
	return fmt.Sprintf("%s group %d on %s %s-%s in %s",
		d.SubjectName, d.GroupNumber, d.Weekday, d.StartTime, d.EndTime, d.RoomName)
}
