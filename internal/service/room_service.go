package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
	CountEntries(ctx context.Context, id string) (int, error)
	ListAvailable(ctx context.Context, slot scheduling.Slot, excludeID string) ([]models.Room, error)
}

type roomOccupancyReader interface {
	RoomOccupancy(ctx context.Context, termID, roomID string) ([]models.RoomOccupancy, error)
}

// RoomRequest is the payload for creating or replacing a room.
type RoomRequest struct {
	Code      string   `json:"code" validate:"required,max=20"`
	Name      string   `json:"name" validate:"required,max=100"`
	Capacity  int      `json:"capacity" validate:"required,min=1,max=500"`
	Building  string   `json:"building" validate:"omitempty,max=100"`
	Floor     string   `json:"floor" validate:"omitempty,max=20"`
	Kind      string   `json:"kind" validate:"omitempty,room_kind"`
	Active    *bool    `json:"active"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// AvailableRoomsQuery asks for the active rooms free during a weekly slot.
type AvailableRoomsQuery struct {
	Weekday     int    `validate:"required,min=1,max=6"`
	StartTime   string `validate:"required"`
	EndTime     string `validate:"required"`
	ExcludeID   string
	MinCapacity int `validate:"omitempty,min=1"`
}

// RoomService manages classrooms.
type RoomService struct {
	repo      roomRepository
	occupancy roomOccupancyReader
	terms     currentTermReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs a RoomService.
func NewRoomService(repo roomRepository, occupancy roomOccupancyReader, terms currentTermReader, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RoomService{repo: repo, occupancy: occupancy, terms: terms, validator: validate, logger: logger}
	svc.validator.RegisterValidation("room_kind", func(fl validator.FieldLevel) bool {
		return models.RoomKind(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// List returns rooms with pagination.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list rooms")
	}
	return rooms, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get fetches a room by id.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}
	return room, nil
}

// Create registers a room.
func (s *RoomService) Create(ctx context.Context, req RoomRequest) (*models.Room, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, req.Code, ""); err != nil {
		return nil, err
	}
	room := &models.Room{Active: true}
	applyRoomRequest(room, req)
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, persistError(err, "room code already used", "failed to create room")
	}
	return room, nil
}

// Update replaces a room's attributes.
func (s *RoomService) Update(ctx context.Context, id string, req RoomRequest) (*models.Room, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, req.Code, id); err != nil {
		return nil, err
	}
	applyRoomRequest(room, req)
	if err := s.repo.Update(ctx, room); err != nil {
		return nil, persistError(err, "room code already used", "failed to update room")
	}
	return room, nil
}

// Delete removes a room that no schedule entry references.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountEntries(ctx, id)
	if err != nil {
		return internalError(err, "failed to check room usage")
	}
	if count > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "room has scheduled classes", map[string]int{"entries": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete room")
	}
	return nil
}

// Available lists active rooms with no entry overlapping the requested slot.
func (s *RoomService) Available(ctx context.Context, q AvailableRoomsQuery) ([]models.Room, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, validationError(err, "invalid availability query")
	}
	start, err := scheduling.ParseClock(q.StartTime)
	if err != nil {
		return nil, validationError(err, "invalid start_time")
	}
	end, err := scheduling.ParseClock(q.EndTime)
	if err != nil {
		return nil, validationError(err, "invalid end_time")
	}
	slot, err := scheduling.NewSlot(scheduling.Weekday(q.Weekday), start, end)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInterval, err.Error())
	}
	rooms, err := s.repo.ListAvailable(ctx, slot, strings.TrimSpace(q.ExcludeID))
	if err != nil {
		return nil, internalError(err, "failed to list available rooms")
	}
	if q.MinCapacity > 0 {
		fitting := rooms[:0]
		for _, room := range rooms {
			if room.Capacity >= q.MinCapacity {
				fitting = append(fitting, room)
			}
		}
		rooms = fitting
	}
	return rooms, nil
}

// Occupancy reports the weekly usage of a room. An empty termID means the current term.
func (s *RoomService) Occupancy(ctx context.Context, id, termID string) (*models.RoomOccupancy, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	termID, err = resolveTermID(ctx, s.terms, termID)
	if err != nil {
		return nil, err
	}
	rows, err := s.occupancy.RoomOccupancy(ctx, termID, id)
	if err != nil {
		return nil, internalError(err, "failed to compute room occupancy")
	}
	result := models.RoomOccupancy{RoomID: room.ID, Code: room.Code, Name: room.Name, Capacity: room.Capacity}
	if len(rows) > 0 {
		result = rows[0]
	}
	result.Finalize()
	return &result, nil
}

func (s *RoomService) validate(req RoomRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid room payload")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "latitude and longitude must be provided together")
	}
	return nil
}

func (s *RoomService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, strings.TrimSpace(code), excludeID)
	if err != nil {
		return internalError(err, "failed to check room code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "room code already used")
	}
	return nil
}

func applyRoomRequest(room *models.Room, req RoomRequest) {
	room.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	room.Name = strings.TrimSpace(req.Name)
	room.Capacity = req.Capacity
	room.Building = strings.TrimSpace(req.Building)
	room.Floor = strings.TrimSpace(req.Floor)
	room.Kind = models.RoomKind(strings.ToLower(req.Kind))
	if room.Kind == "" {
		room.Kind = models.RoomKindGeneral
	}
	if req.Active != nil {
		room.Active = *req.Active
	}
	room.Latitude = req.Latitude
	room.Longitude = req.Longitude
}
