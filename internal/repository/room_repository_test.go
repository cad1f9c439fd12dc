package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roomRowColumns = []string{"id", "code", "name", "capacity", "building", "floor", "kind", "active", "latitude", "longitude", "created_at", "updated_at"}

func TestRoomRepositoryListAvailableExcludesEntry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE active = TRUE AND NOT EXISTS (SELECT 1 FROM schedule_entries se WHERE se.room_id = rooms.id AND se.weekday = $1 AND se.start_time < $2 AND se.end_time > $3 AND se.id <> $4) ORDER BY capacity DESC, code ASC")).
		WithArgs(1, "11:00:00", "09:00:00", "entry-9").
		WillReturnRows(sqlmock.NewRows(roomRowColumns).
			AddRow("r2", "B201", "B201", 60, "B", "2", "general", true, nil, nil, now, now).
			AddRow("r1", "A101", "A101", 30, "A", "1", "lab", true, nil, nil, now, now))

	rooms, err := repo.ListAvailable(context.Background(), mondaySlot(t, 9, 11), "entry-9")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "r2", rooms[0].ID)
	assert.Equal(t, 30, rooms[1].Capacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListAvailableWithoutExclusion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("se.end_time > $3) ORDER BY capacity DESC")).
		WithArgs(1, "10:00:00", "08:00:00").
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	rooms, err := repo.ListAvailable(context.Background(), mondaySlot(t, 8, 10), "")
	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.NoError(t, mock.ExpectationsWereMet())
}
