package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/pkg/export"
	"github.com/noah-isme/uni-schedule-api/pkg/storage"
)

type reportSource interface {
	WeeklySchedule(ctx context.Context, termID string) (*models.WeeklyTimetable, error)
	TeacherAttendance(ctx context.Context, teacherID string, from, to *time.Time) (*models.TeacherAttendanceReport, error)
	TeacherLoads(ctx context.Context, termID string) (*models.TeacherLoadReport, error)
	RoomOccupancy(ctx context.Context, termID string) (*models.RoomOccupancyReport, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       export.Format
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	reports reportSource
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(reports reportSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		reports: reports,
		storage: files,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate builds the dataset for the job, renders it and stores the file behind a signed token.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format, err := export.ParseFormat(job.Params.Format)
	if err != nil {
		return nil, err
	}
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, err
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Sugar().Warnw("failed to discard unsigned export", "path", relPath, "error", delErr)
		}
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := job.Params.TermID
	if job.Type == models.ReportTypeTeacherAttendance {
		scope = job.Params.TeacherID
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", job.Type, sanitizeFilename(scope), sanitizeFilename(shortID(job.ID)), timestamp, ext)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	switch job.Type {
	case models.ReportTypeWeeklySchedule:
		return s.weeklyDataset(ctx, job.Params)
	case models.ReportTypeTeacherAttendance:
		return s.attendanceDataset(ctx, job.Params)
	case models.ReportTypeTeacherLoad:
		return s.loadDataset(ctx, job.Params)
	case models.ReportTypeRoomOccupancy:
		return s.occupancyDataset(ctx, job.Params)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) weeklyDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	timetable, err := s.reports.WeeklySchedule(ctx, params.TermID)
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, timetable.Total)
	for _, day := range timetable.Days {
		for _, entry := range day.Entries {
			rows = append(rows, map[string]string{
				"Day":     day.Name,
				"Start":   entry.StartTime.String(),
				"End":     entry.EndTime.String(),
				"Subject": entry.SubjectName,
				"Group":   strconv.Itoa(entry.GroupNumber),
				"Teacher": entry.TeacherName,
				"Room":    entry.RoomCode,
			})
		}
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Weekly Schedule %s", termLabel(timetable.TermID)),
		Headers: []string{"Day", "Start", "End", "Subject", "Group", "Teacher", "Room"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) attendanceDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	report, err := s.reports.TeacherAttendance(ctx, params.TeacherID, params.From, params.To)
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(report.Records)+1)
	for _, record := range report.Records {
		rows = append(rows, map[string]string{
			"Date":        record.Date.Format(dateLayout),
			"Subject":     record.SubjectName,
			"Group":       strconv.Itoa(record.GroupNumber),
			"Room":        record.RoomName,
			"Status":      string(record.Status),
			"Method":      string(record.Method),
			"Recorded At": record.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	rows = append(rows, map[string]string{
		"Date":   "Total",
		"Status": fmt.Sprintf("%.2f%% attended of %d", report.Stats.Percentage, report.Stats.Total),
	})
	return export.Dataset{
		Title:   fmt.Sprintf("Teacher Attendance %s", report.TeacherID),
		Headers: []string{"Date", "Subject", "Group", "Room", "Status", "Method", "Recorded At"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) loadDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	report, err := s.reports.TeacherLoads(ctx, params.TermID)
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(report.Teachers))
	for _, load := range report.Teachers {
		rows = append(rows, map[string]string{
			"Teacher":    load.FullName,
			"Entries":    strconv.Itoa(load.Entries),
			"Hours":      fmt.Sprintf("%.2f", load.Hours),
			"Max Hours":  fmt.Sprintf("%.2f", load.MaxHours),
			"Load (%)":   fmt.Sprintf("%.2f", load.Percent),
			"Overloaded": strconv.FormatBool(load.Overloaded),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Teacher Load %s", termLabel(report.TermID)),
		Headers: []string{"Teacher", "Entries", "Hours", "Max Hours", "Load (%)", "Overloaded"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) occupancyDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	report, err := s.reports.RoomOccupancy(ctx, params.TermID)
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(report.Rooms))
	for _, room := range report.Rooms {
		rows = append(rows, map[string]string{
			"Room":          room.Code,
			"Name":          room.Name,
			"Capacity":      strconv.Itoa(room.Capacity),
			"Entries":       strconv.Itoa(room.Entries),
			"Weekly Hours":  fmt.Sprintf("%.2f", room.WeeklyHours),
			"Occupancy (%)": fmt.Sprintf("%.2f", room.Percent),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Room Occupancy %s", termLabel(report.TermID)),
		Headers: []string{"Room", "Name", "Capacity", "Entries", "Weekly Hours", "Occupancy (%)"},
		Rows:    rows,
	}, nil
}

func termLabel(value string) string {
	if value == "" {
		return "all terms"
	}
	return value
}
