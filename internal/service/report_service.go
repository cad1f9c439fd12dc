package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/repository"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
	"github.com/noah-isme/uni-schedule-api/pkg/export"
	"github.com/noah-isme/uni-schedule-api/pkg/jobs"
	"github.com/noah-isme/uni-schedule-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, change repository.ReportJobUpdate) error
	ListPending(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportRequest asks for an asynchronous file export.
type ReportRequest struct {
	Type      models.ReportType `json:"type" validate:"required"`
	Format    string            `json:"format" validate:"required"`
	TermID    string            `json:"term_id"`
	TeacherID string            `json:"teacher_id"`
	From      *time.Time        `json:"from"`
	To        *time.Time        `json:"to"`
}

// ReportService orchestrates report job lifecycle management.
type ReportService struct {
	repo     reportJobStore
	terms    currentTermReader
	queue    jobDispatcher
	exporter *ExportService
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	Path        string
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, terms currentTermReader, queue jobDispatcher, exporter *ExportService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{
		repo:     repo,
		terms:    terms,
		queue:    queue,
		exporter: exporter,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateJob validates the request, persists a QUEUED job and hands it to the export queue.
// Teachers can only export their own attendance.
func (s *ReportService) CreateJob(ctx context.Context, req ReportRequest, actor Actor) (*models.ReportJob, error) {
	params, err := s.jobParams(ctx, req, actor)
	if err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		Type:      req.Type,
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, internalError(err, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, internalError(err, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus exposes job metadata to clients, enforcing ownership for teachers.
func (s *ReportService) GetStatus(ctx context.Context, id string, actor Actor) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	if actor.Role == models.RoleTeacher && job.CreatedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// ResolveDownload validates the token against its job and locates the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	path := file.Name()
	_ = file.Close()

	contentType := "application/octet-stream"
	if format, err := export.ParseFormat(job.Params.Format); err == nil {
		if renderer, err := export.RendererFor(format); err == nil {
			contentType = renderer.ContentType()
		}
	}
	return &ReportDownload{
		Path:        path,
		Filename:    filepath.Base(relPath),
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued and interrupted jobs after a restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) int {
	pending, err := s.repo.ListPending(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued report jobs", "error", err)
		return 0
	}
	recovered := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Sugar().Infow("recovered report jobs", "count", recovered)
	}
	return recovered
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

// cleanupExpired marks finished jobs past the TTL as EXPIRED and removes stale files.
func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	expired := models.ReportStatusExpired
	stale, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Sugar().Warnw("cleanup list failed", "error", err)
		return
	}
	for _, job := range stale {
		if job.ResultURL != nil {
			if _, relPath, _, err := s.exporter.ParseToken(extractToken(*job.ResultURL)); err == nil {
				if err := s.exporter.Delete(relPath); err != nil {
					s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
				}
			}
		}
		if err := s.repo.Update(ctx, job.ID, repository.ReportJobUpdate{Status: &expired}); err != nil {
			s.logger.Sugar().Warnw("cleanup mark expired failed", "job_id", job.ID, "error", err)
		}
	}
	removed, err := s.exporter.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
		return
	}
	if len(stale) > 0 || len(removed) > 0 {
		s.logger.Sugar().Infow("report cleanup finished", "expired_jobs", len(stale), "removed_files", len(removed))
	}
}

func (s *ReportService) jobParams(ctx context.Context, req ReportRequest, actor Actor) (models.ReportJobParams, error) {
	if !req.Type.Valid() {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	params := models.ReportJobParams{Format: string(format), From: req.From, To: req.To}

	if req.Type == models.ReportTypeTeacherAttendance {
		teacherID := strings.TrimSpace(req.TeacherID)
		if actor.Role == models.RoleTeacher {
			if actor.TeacherID == "" || (teacherID != "" && teacherID != actor.TeacherID) {
				return models.ReportJobParams{}, appErrors.ErrForbidden
			}
			teacherID = actor.TeacherID
		}
		if teacherID == "" {
			return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required for attendance reports")
		}
		params.TeacherID = teacherID
		return params, nil
	}

	termID, err := resolveTermID(ctx, s.terms, strings.TrimSpace(req.TermID))
	if err != nil {
		return models.ReportJobParams{}, err
	}
	if termID == "" {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "term_id is required when no term is current")
	}
	params.TermID = termID
	return params, nil
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job. A returned error lets the queue retry it.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status == models.ReportStatusFinished || record.Status == models.ReportStatusExpired {
		return nil
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
			w.metrics.RecordReportJob(failed)
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}
	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	none := ""
	if err := w.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &none,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.metrics.RecordReportJob(finished)
	w.logger.Sugar().Infow("report job finished", "job_id", job.ID, "type", record.Type, "format", result.Format)
	return nil
}
