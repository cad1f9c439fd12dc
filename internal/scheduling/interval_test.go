package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, At(8, 30), c)

	c, err = ParseClock("17:05:59")
	require.NoError(t, err)
	assert.Equal(t, "17:05", c.String())

	for _, bad := range []string{"", "8", "24:00", "07:60", "aa:10", "07:5", "07:00:99"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockScan(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan([]byte("10:15:00")))
	assert.Equal(t, At(10, 15), c)
	require.NoError(t, c.Scan("09:00:00.000000"))
	assert.Equal(t, At(9, 0), c)
	require.NoError(t, c.Scan(time.Date(0, 1, 1, 14, 45, 0, 0, time.UTC)))
	assert.Equal(t, At(14, 45), c)
	assert.Error(t, c.Scan(42))

	v, err := At(8, 0).Value()
	require.NoError(t, err)
	assert.Equal(t, "08:00:00", v)
}

func TestClockJSON(t *testing.T) {
	out, err := json.Marshal(At(6, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `"06:05"`, string(out))

	var c Clock
	require.NoError(t, json.Unmarshal([]byte(`"19:40"`), &c))
	assert.Equal(t, At(19, 40), c)
	assert.Error(t, json.Unmarshal([]byte(`1940`), &c))
}

func TestNewIntervalRejectsEmptyAndInverted(t *testing.T) {
	_, err := NewInterval(At(10, 0), At(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = NewInterval(At(11, 0), At(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	iv, err := NewInterval(At(8, 0), At(9, 30))
	require.NoError(t, err)
	assert.Equal(t, 90, iv.Minutes())
	assert.InDelta(t, 1.5, iv.Hours(), 1e-9)
}

func TestOverlapSymmetric(t *testing.T) {
	cases := []struct {
		a, b Interval
		want bool
	}{
		{Interval{At(8, 0), At(10, 0)}, Interval{At(9, 0), At(11, 0)}, true},
		{Interval{At(8, 0), At(12, 0)}, Interval{At(9, 0), At(10, 0)}, true},
		{Interval{At(8, 0), At(10, 0)}, Interval{At(10, 0), At(12, 0)}, false},
		{Interval{At(8, 0), At(9, 0)}, Interval{At(14, 0), At(16, 0)}, false},
		{Interval{At(8, 0), At(10, 0)}, Interval{At(8, 0), At(10, 0)}, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.a.Overlaps(tc.b), "%s vs %s", tc.a, tc.b)
		assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a), "symmetry %s vs %s", tc.a, tc.b)
	}
}

func TestSlotOverlapNeedsSameDay(t *testing.T) {
	mon, err := NewSlot(Monday, At(8, 0), At(10, 0))
	require.NoError(t, err)
	tue, err := NewSlot(Tuesday, At(8, 0), At(10, 0))
	require.NoError(t, err)
	assert.False(t, mon.Overlaps(tue))

	_, err = NewSlot(Weekday(7), At(8, 0), At(10, 0))
	assert.Error(t, err)
	assert.Equal(t, "Saturday", Saturday.String())
}
