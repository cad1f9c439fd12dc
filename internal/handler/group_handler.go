package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/service"
	"github.com/noah-isme/uni-schedule-api/pkg/response"
)

type groupService interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.GroupDetail, error)
	Create(ctx context.Context, req service.GroupRequest) (*models.GroupDetail, error)
	Update(ctx context.Context, id string, req service.GroupRequest) (*models.GroupDetail, error)
	Delete(ctx context.Context, id string) error
	Unscheduled(ctx context.Context, termID string) ([]models.GroupDetail, error)
}

// GroupHandler manages course group endpoints.
type GroupHandler struct {
	groups groupService
}

// NewGroupHandler constructs GroupHandler.
func NewGroupHandler(groups groupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// List godoc
// @Summary List groups
// @Tags Groups
// @Produce json
// @Param term_id query string false "Term ID"
// @Param subject_id query string false "Subject ID"
// @Param unscheduled query bool false "Only groups without a schedule entry"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	filter := models.GroupFilter{
		TermID:    strings.TrimSpace(c.Query("term_id")),
		SubjectID: strings.TrimSpace(c.Query("subject_id")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if unscheduled := boolQuery(c, "unscheduled"); unscheduled != nil {
		filter.Unscheduled = *unscheduled
	}
	filter.Page, filter.PageSize = pageParams(c)

	groups, pagination, err := h.groups.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, pagination)
}

// Unscheduled godoc
// @Summary Groups still waiting for a slot
// @Tags Groups
// @Produce json
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /groups/unscheduled [get]
func (h *GroupHandler) Unscheduled(c *gin.Context) {
	groups, err := h.groups.Unscheduled(c.Request.Context(), strings.TrimSpace(c.Query("term_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, groups)
}

// Get godoc
// @Summary Get group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, group)
}

// Create godoc
// @Summary Create group
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body service.GroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req service.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid group payload"))
		return
	}
	group, err := h.groups.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// Update godoc
// @Summary Update group
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.GroupRequest true "Group payload"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	var req service.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid group payload"))
		return
	}
	group, err := h.groups.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, group)
}

// Delete godoc
// @Summary Delete group
// @Tags Groups
// @Param id path string true "Group ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.groups.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
