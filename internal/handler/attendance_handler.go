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

type attendanceService interface {
	Register(ctx context.Context, actor service.Actor, req service.RegisterAttendanceRequest) (*models.AttendanceDetail, error)
	QRCode(ctx context.Context, actor service.Actor, entryID, date string) (*service.AttendanceQR, error)
	CheckInQR(ctx context.Context, actor service.Actor, req service.QRCheckInRequest) (*models.AttendanceDetail, error)
	CheckInGeo(ctx context.Context, actor service.Actor, req service.GeoCheckInRequest) (*models.AttendanceDetail, error)
	Get(ctx context.Context, id string) (*models.AttendanceDetail, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error)
	Update(ctx context.Context, id string, req service.UpdateAttendanceRequest) (*models.AttendanceDetail, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, teacherID string, from, to *time.Time) (*models.AttendanceStats, error)
}

// AttendanceHandler exposes teacher check-in endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Register godoc
// @Summary Register attendance manually
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RegisterAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Register(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.RegisterAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid attendance payload"))
		return
	}
	record, err := h.attendance.Register(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param schedule_entry_id query string false "Schedule entry ID"
// @Param term_id query string false "Term ID"
// @Param status query string false "present, late, absent or excused"
// @Param method query string false "manual, qr or geo"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.AttendanceFilter{
		TeacherID:       strings.TrimSpace(c.Query("teacher_id")),
		ScheduleEntryID: strings.TrimSpace(c.Query("schedule_entry_id")),
		TermID:          strings.TrimSpace(c.Query("term_id")),
		Status:          models.AttendanceStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Method:          models.AttendanceMethod(strings.ToLower(strings.TrimSpace(c.Query("method")))),
		DateFrom:        from,
		DateTo:          to,
		SortBy:          c.Query("sort"),
		SortOrder:       c.Query("order"),
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
		filter.TeacherID = claims.TeacherID
	}
	filter.Page, filter.PageSize = pageParams(c)

	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.attendance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher && claims.TeacherID != record.TeacherID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.OK(c, record)
}

// Update godoc
// @Summary Correct an attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body service.UpdateAttendanceRequest true "Correction"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid attendance payload"))
		return
	}
	record, err := h.attendance.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Param id path string true "Attendance ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Attendance statistics
// @Tags Attendance
// @Produce json
// @Param teacher_id query string false "Teacher ID, ignored for teachers"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teacherID := strings.TrimSpace(c.Query("teacher_id"))
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
		teacherID = claims.TeacherID
	}
	stats, err := h.attendance.Stats(c.Request.Context(), teacherID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// QRCode godoc
// @Summary Generate a check-in QR code
// @Tags Attendance
// @Produce json
// @Param entry_id path string true "Schedule entry ID"
// @Param date query string false "Class date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/qr/{entry_id} [get]
func (h *AttendanceHandler) QRCode(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	qr, err := h.attendance.QRCode(c.Request.Context(), actor, c.Param("entry_id"), strings.TrimSpace(c.Query("date")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, qr)
}

// CheckInQR godoc
// @Summary Check in with a scanned QR payload
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.QRCheckInRequest true "Scanned payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/qr [post]
func (h *AttendanceHandler) CheckInQR(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.QRCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid qr payload"))
		return
	}
	record, err := h.attendance.CheckInQR(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// CheckInGeo godoc
// @Summary Check in by location
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.GeoCheckInRequest true "Device position"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/geo [post]
func (h *AttendanceHandler) CheckInGeo(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.GeoCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid location payload"))
		return
	}
	record, err := h.attendance.CheckInGeo(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
