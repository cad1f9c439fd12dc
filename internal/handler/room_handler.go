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

type roomService interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, req service.RoomRequest) (*models.Room, error)
	Update(ctx context.Context, id string, req service.RoomRequest) (*models.Room, error)
	Delete(ctx context.Context, id string) error
	Occupancy(ctx context.Context, id, termID string) (*models.RoomOccupancy, error)
	Available(ctx context.Context, q service.AvailableRoomsQuery) ([]models.Room, error)
}

// RoomHandler exposes the room catalogue.
type RoomHandler struct {
	rooms roomService
}

// NewRoomHandler constructs RoomHandler.
func NewRoomHandler(rooms roomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Param search query string false "Search by code or name"
// @Param kind query string false "Room kind"
// @Param building query string false "Building"
// @Param active query bool false "Active filter"
// @Param min_capacity query int false "Minimum capacity"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	filter := models.RoomFilter{
		Search:      strings.TrimSpace(c.Query("search")),
		Kind:        models.RoomKind(strings.ToLower(strings.TrimSpace(c.Query("kind")))),
		Building:    strings.TrimSpace(c.Query("building")),
		Active:      boolQuery(c, "active"),
		MinCapacity: intQuery(c, "min_capacity"),
		SortBy:      c.Query("sort"),
		SortOrder:   c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	rooms, pagination, err := h.rooms.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, pagination)
}

// Get godoc
// @Summary Get room
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.rooms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, room)
}

// Create godoc
// @Summary Create room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body service.RoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Router /rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req service.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid room payload"))
		return
	}
	room, err := h.rooms.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Update godoc
// @Summary Update room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body service.RoomRequest true "Room payload"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	var req service.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid room payload"))
		return
	}
	room, err := h.rooms.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, room)
}

// Delete godoc
// @Summary Delete room
// @Tags Rooms
// @Param id path string true "Room ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	if err := h.rooms.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Available godoc
// @Summary List rooms free during a weekly slot
// @Tags Rooms
// @Produce json
// @Param weekday query int true "Weekday 1 (Monday) to 6 (Saturday)"
// @Param start_time query string true "Start time HH:MM"
// @Param end_time query string true "End time HH:MM"
// @Param exclude_id query string false "Schedule entry to ignore, when moving it"
// @Param min_capacity query int false "Minimum capacity"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /rooms/available [get]
func (h *RoomHandler) Available(c *gin.Context) {
	rooms, err := h.rooms.Available(c.Request.Context(), service.AvailableRoomsQuery{
		Weekday:     intQuery(c, "weekday"),
		StartTime:   strings.TrimSpace(c.Query("start_time")),
		EndTime:     strings.TrimSpace(c.Query("end_time")),
		ExcludeID:   strings.TrimSpace(c.Query("exclude_id")),
		MinCapacity: intQuery(c, "min_capacity"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rooms)
}

// Occupancy godoc
// @Summary Room weekly occupancy
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Param term_id query string false "Term ID, defaults to the current term"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/occupancy [get]
func (h *RoomHandler) Occupancy(c *gin.Context) {
	occupancy, err := h.rooms.Occupancy(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("term_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, occupancy)
}
