package scheduling

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
}

func groups(n int) []GroupRef {
	out := make([]GroupRef, n)
	for i := range out {
		out[i] = GroupRef{ID: fmt.Sprintf("g%d", i+1), TermID: "term-1", Label: fmt.Sprintf("Group Algebra - %d", i+1)}
	}
	return out
}

func TestAssignPreconditions(t *testing.T) {
	e := NewEngine(sequentialIDs(), 0)
	ctx := context.Background()
	teachers := []TeacherProfile{{ID: "t1"}}
	rooms := []RoomRef{{ID: "r1", Capacity: 30}}

	_, err := e.Assign(ctx, NewLedger(nil), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoUnscheduledGroups)
	_, err = e.Assign(ctx, NewLedger(nil), groups(1), nil, rooms)
	assert.ErrorIs(t, err, ErrNoActiveTeachers)
	_, err = e.Assign(ctx, NewLedger(nil), groups(1), teachers, nil)
	assert.ErrorIs(t, err, ErrNoActiveRooms)
}

func TestAssignRespectsLoadCeiling(t *testing.T) {
	e := NewEngine(sequentialIDs(), 0)
	plan, err := e.Assign(context.Background(), NewLedger(nil), groups(3),
		[]TeacherProfile{{ID: "t1", MaxWeeklyHours: 2}},
		[]RoomRef{{ID: "small", Capacity: 20}, {ID: "big", Capacity: 60}})
	require.NoError(t, err)

	require.Len(t, plan.Placed, 1)
	assert.Len(t, plan.Failed, 2)
	placed := plan.Placed[0]
	assert.Equal(t, "g1", placed.GroupID)
	assert.Equal(t, "big", placed.RoomID, "largest room is tried first")
	assert.Equal(t, Monday, placed.Slot.Weekday)
	assert.Equal(t, At(8, 0), placed.Slot.Start)
	assert.Equal(t, "new-1", placed.EntryID)
	assert.Equal(t, []string{"g2", "g3"}, []string{plan.Failed[0].ID, plan.Failed[1].ID})
}

func TestAssignOrdersByWeekdayBlockTeacherRoom(t *testing.T) {
	e := NewEngine(sequentialIDs(), 0)
	plan, err := e.Assign(context.Background(), NewLedger(nil), groups(4),
		[]TeacherProfile{{ID: "t1"}, {ID: "t2"}},
		[]RoomRef{{ID: "r1", Capacity: 30}})
	require.NoError(t, err)
	require.Len(t, plan.Placed, 4)

	// one room: each block can hold a single group, so placements walk the blocks on Monday
	for i, b := range plan.Placed {
		assert.Equal(t, Monday, b.Slot.Weekday)
		assert.Equal(t, DefaultBlocks()[i], b.Slot.Interval)
		assert.Equal(t, "t1", b.TeacherID)
	}
}

func TestAssignSkipsUnavailableTeacher(t *testing.T) {
	e := NewEngine(sequentialIDs(), 0)
	busy := TeacherProfile{ID: "t1", Availability: Restricted(map[Weekday][]Interval{
		Monday: {}, Tuesday: {{Start: At(14, 0), End: At(16, 0)}},
	})}
	plan, err := e.Assign(context.Background(), NewLedger(nil), groups(1), []TeacherProfile{busy}, []RoomRef{{ID: "r1", Capacity: 10}})
	require.NoError(t, err)
	require.Len(t, plan.Placed, 1)
	assert.Equal(t, Tuesday, plan.Placed[0].Slot.Weekday)
	assert.Equal(t, At(14, 0), plan.Placed[0].Slot.Start)
}

func TestAssignRespectsExistingBookings(t *testing.T) {
	existing := []Booking{
		{EntryID: "old", TeacherID: "t-x", RoomID: "r1", TermID: "term-1", Slot: Slot{Weekday: Monday, Interval: Interval{Start: At(8, 0), End: At(12, 0)}}},
	}
	ledger := NewLedger(existing)
	e := NewEngine(sequentialIDs(), 0)
	plan, err := e.Assign(context.Background(), ledger, groups(1), []TeacherProfile{{ID: "t1"}}, []RoomRef{{ID: "r1", Capacity: 10}})
	require.NoError(t, err)
	require.Len(t, plan.Placed, 1)
	assert.Equal(t, At(14, 0), plan.Placed[0].Slot.Start)
	assert.Len(t, ledger.Bookings(), 2)
}

func TestAssignNoOverlapAfterBatch(t *testing.T) {
	e := NewEngine(sequentialIDs(), 0)
	ledger := NewLedger(nil)
	plan, err := e.Assign(context.Background(), ledger, groups(30),
		[]TeacherProfile{{ID: "t1", MaxWeeklyHours: 20}, {ID: "t2"}, {ID: "t3", MaxWeeklyHours: 6}},
		[]RoomRef{{ID: "r1", Capacity: 30}, {ID: "r2", Capacity: 45}})
	require.NoError(t, err)
	assert.Equal(t, 30, len(plan.Placed)+len(plan.Failed))

	all := ledger.Bookings()
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if !a.Slot.Overlaps(b.Slot) {
				continue
			}
			assert.NotEqual(t, a.TeacherID, b.TeacherID, "teacher double booked: %s %s", a.EntryID, b.EntryID)
			assert.NotEqual(t, a.RoomID, b.RoomID, "room double booked: %s %s", a.EntryID, b.EntryID)
		}
	}

	for _, teacher := range []struct {
		id  string
		max float64
	}{{"t1", 20}, {"t2", 40}, {"t3", 6}} {
		hours, err := TeacherLoad(context.Background(), ledger, teacher.id, "term-1", "")
		require.NoError(t, err)
		assert.LessOrEqual(t, hours, teacher.max)
	}
}

func TestAssignStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(nil, 0).Assign(ctx, NewLedger(nil), groups(1), []TeacherProfile{{ID: "t1"}}, []RoomRef{{ID: "r1"}})
	assert.ErrorIs(t, err, context.Canceled)
}
