package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
	"github.com/noah-isme/uni-schedule-api/internal/service"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
	"github.com/noah-isme/uni-schedule-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ScheduleEntryDetail, error)
	Create(ctx context.Context, req service.ScheduleRequest) (*models.ScheduleEntryDetail, error)
	Update(ctx context.Context, id string, req service.ScheduleRequest) (*models.ScheduleEntryDetail, error)
	Delete(ctx context.Context, id string) error
	Check(ctx context.Context, req service.ValidateScheduleRequest) (*scheduling.Report, error)
	Weekly(ctx context.Context, scope service.TimetableScope, id, termID string) (*models.WeeklyTimetable, error)
	AutoAssign(ctx context.Context, termID string) (*models.AutoAssignResult, error)
}

// ScheduleHandler exposes timetable placement endpoints.
type ScheduleHandler struct {
	schedules scheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules scheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List godoc
// @Summary List schedule entries
// @Tags Schedules
// @Produce json
// @Param term_id query string false "Term ID"
// @Param teacher_id query string false "Teacher ID"
// @Param room_id query string false "Room ID"
// @Param group_id query string false "Group ID"
// @Param weekday query int false "Weekday (1=Monday .. 6=Saturday)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		TermID:    strings.TrimSpace(c.Query("term_id")),
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		RoomID:    strings.TrimSpace(c.Query("room_id")),
		GroupID:   strings.TrimSpace(c.Query("group_id")),
		Weekday:   intQuery(c, "weekday"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
		filter.TeacherID = claims.TeacherID
	}
	filter.Page, filter.PageSize = pageParams(c)

	entries, pagination, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule entry ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	entry, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Create godoc
// @Summary Place a group in a weekly slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.ScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid schedule payload"))
		return
	}
	entry, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Move a schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule entry ID"
// @Param payload body service.ScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid schedule payload"))
		return
	}
	entry, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Delete godoc
// @Summary Remove a schedule entry
// @Tags Schedules
// @Param id path string true "Schedule entry ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Validate godoc
// @Summary Dry-run a placement
// @Description Runs interval, conflict, load and availability checks without saving.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.ValidateScheduleRequest true "Placement to check"
// @Success 200 {object} response.Envelope
// @Router /schedules/validate [post]
func (h *ScheduleHandler) Validate(c *gin.Context) {
	var req service.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid schedule payload"))
		return
	}
	report, err := h.schedules.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// WeeklyTerm godoc
// @Summary Weekly timetable of a term
// @Tags Schedules
// @Produce json
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /schedules/weekly [get]
func (h *ScheduleHandler) WeeklyTerm(c *gin.Context) {
	h.weekly(c, service.TimetableTerm, "")
}

// WeeklyTeacher godoc
// @Summary Weekly timetable of a teacher
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher ID"
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /schedules/weekly/teacher/{id} [get]
func (h *ScheduleHandler) WeeklyTeacher(c *gin.Context) {
	id := c.Param("id")
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher && claims.TeacherID != id {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	h.weekly(c, service.TimetableTeacher, id)
}

// WeeklyRoom godoc
// @Summary Weekly timetable of a room
// @Tags Schedules
// @Produce json
// @Param id path string true "Room ID"
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /schedules/weekly/room/{id} [get]
func (h *ScheduleHandler) WeeklyRoom(c *gin.Context) {
	h.weekly(c, service.TimetableRoom, c.Param("id"))
}

// WeeklyGroup godoc
// @Summary Weekly timetable of a group
// @Tags Schedules
// @Produce json
// @Param id path string true "Group ID"
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /schedules/weekly/group/{id} [get]
func (h *ScheduleHandler) WeeklyGroup(c *gin.Context) {
	h.weekly(c, service.TimetableGroup, c.Param("id"))
}

func (h *ScheduleHandler) weekly(c *gin.Context, scope service.TimetableScope, id string) {
	timetable, err := h.schedules.Weekly(c.Request.Context(), scope, id, strings.TrimSpace(c.Query("term_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, timetable)
}

// AutoAssign godoc
// @Summary Place every unscheduled group
// @Description First-fit placement over Monday to Friday blocks, applied in one transaction.
// @Tags Schedules
// @Produce json
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schedules/auto-assign [post]
func (h *ScheduleHandler) AutoAssign(c *gin.Context) {
	result, err := h.schedules.AutoAssign(c.Request.Context(), strings.TrimSpace(c.Query("term_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{
		"assigned": result.Assigned,
		"failed":   len(result.Failed),
	})
}
