package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/service"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
	"github.com/noah-isme/uni-schedule-api/pkg/response"
)

type analyticsService interface {
	WeeklySchedule(ctx context.Context, termID string) (*models.WeeklyTimetable, error)
	TeacherAttendance(ctx context.Context, teacherID string, from, to *time.Time) (*models.TeacherAttendanceReport, error)
	TeacherLoads(ctx context.Context, termID string) (*models.TeacherLoadReport, error)
	RoomOccupancy(ctx context.Context, termID string) (*models.RoomOccupancyReport, error)
}

type reportJobService interface {
	CreateJob(ctx context.Context, req service.ReportRequest, actor service.Actor) (*models.ReportJob, error)
	GetStatus(ctx context.Context, id string, actor service.Actor) (*models.ReportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler serves on-screen reports and asynchronous exports.
type ReportHandler struct {
	analytics analyticsService
	jobs      reportJobService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(analytics analyticsService, jobs reportJobService) *ReportHandler {
	return &ReportHandler{analytics: analytics, jobs: jobs}
}

// Weekly godoc
// @Summary Weekly schedule report
// @Tags Reports
// @Produce json
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /reports/weekly-schedule [get]
func (h *ReportHandler) Weekly(c *gin.Context) {
	report, err := h.analytics.WeeklySchedule(c.Request.Context(), strings.TrimSpace(c.Query("term_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// TeacherAttendance godoc
// @Summary Teacher attendance report
// @Tags Reports
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/teacher-attendance/{id} [get]
func (h *ReportHandler) TeacherAttendance(c *gin.Context) {
	teacherID := c.Param("id")
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher && claims.TeacherID != teacherID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.analytics.TeacherAttendance(c.Request.Context(), teacherID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// TeacherLoads godoc
// @Summary Teacher load report
// @Tags Reports
// @Produce json
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /reports/teacher-load [get]
func (h *ReportHandler) TeacherLoads(c *gin.Context) {
	report, err := h.analytics.TeacherLoads(c.Request.Context(), strings.TrimSpace(c.Query("term_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// RoomOccupancy godoc
// @Summary Room occupancy report
// @Tags Reports
// @Produce json
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /reports/room-occupancy [get]
func (h *ReportHandler) RoomOccupancy(c *gin.Context) {
	report, err := h.analytics.RoomOccupancy(c.Request.Context(), strings.TrimSpace(c.Query("term_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// CreateJob godoc
// @Summary Queue a report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.ReportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /reports/jobs [post]
func (h *ReportHandler) CreateJob(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid report payload"))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Report export status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/jobs/{id} [get]
func (h *ReportHandler) JobStatus(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// Download godoc
// @Summary Download a finished export
// @Description The signed token in the path authorises the download.
// @Tags Reports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", download.ContentType)
	c.Header("Cache-Control", "private, no-store")
	c.FileAttachment(download.Path, download.Filename)
}
