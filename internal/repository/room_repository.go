package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
)

const roomColumns = `id, code, name, capacity, building, floor, kind, active, latitude, longitude, created_at, updated_at`

// RoomRepository manages persistence for rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns rooms matching the filter with total count.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	var fb filterBuilder
	if filter.Active != nil {
		fb.add("active = $%d", *filter.Active)
	}
	if filter.Kind != "" {
		fb.add("kind = $%d", filter.Kind)
	}
	if filter.Building != "" {
		fb.add("LOWER(building) = $%d", strings.ToLower(filter.Building))
	}
	if filter.MinCapacity > 0 {
		fb.add("capacity >= $%d", filter.MinCapacity)
	}
	if filter.Search != "" {
		fb.add("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", likePattern(filter.Search))
	}
	base := fb.apply("FROM rooms WHERE 1=1")

	column, order := orderClause(filter.SortBy, filter.SortOrder, "created_at", map[string]string{
		"code":       "code",
		"name":       "name",
		"capacity":   "capacity",
		"building":   "building",
		"created_at": "created_at",
	})
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", roomColumns, base, column, order, limit, offset)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, fb.args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), fb.args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	return rooms, total, nil
}

// ListAvailable returns active rooms with no entry overlapping slot, largest first.
// excludeID skips one entry, so a room stays available to the entry being moved.
func (r *RoomRepository) ListAvailable(ctx context.Context, slot scheduling.Slot, excludeID string) ([]models.Room, error) {
	busy := `SELECT 1 FROM schedule_entries se WHERE se.room_id = rooms.id AND se.weekday = $1 AND se.start_time < $2 AND se.end_time > $3`
	args := []interface{}{slot.Weekday, slot.End, slot.Start}
	if excludeID != "" {
		busy += ` AND se.id <> $4`
		args = append(args, excludeID)
	}
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE active = TRUE AND NOT EXISTS (` + busy + `) ORDER BY capacity DESC, code ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list available rooms: %w", err)
	}
	return rooms, nil
}

// ListActive returns all active rooms, largest first.
func (r *RoomRepository) ListActive(ctx context.Context, exec sqlx.ExtContext) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE active = TRUE ORDER BY capacity DESC, code ASC`
	var rooms []models.Room
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rooms, query); err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}
	return rooms, nil
}

// FindByID fetches a room by ID.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// ExistsByCode checks whether another room already uses the code.
func (r *RoomRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM rooms WHERE LOWER(code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check room code: %w", err)
	}
	return true, nil
}

// Create inserts a room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.Kind == "" {
		room.Kind = models.RoomKindGeneral
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	const query = `INSERT INTO rooms (id, code, name, capacity, building, floor, kind, active, latitude, longitude, created_at, updated_at)
		VALUES (:id, :code, :name, :capacity, :building, :floor, :kind, :active, :latitude, :longitude, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// Update modifies a room.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rooms SET code = :code, name = :name, capacity = :capacity, building = :building, floor = :floor, kind = :kind, active = :active, latitude = :latitude, longitude = :longitude, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

// Delete removes a room permanently.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

// CountEntries returns the number of schedule entries booked in the room.
func (r *RoomRepository) CountEntries(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM schedule_entries WHERE room_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count room entries: %w", err)
	}
	return count, nil
}
