package scheduling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(t *testing.T, day Weekday, sh, sm, eh, em int) Slot {
	t.Helper()
	s, err := NewSlot(day, At(sh, sm), At(eh, em))
	require.NoError(t, err)
	return s
}

func TestUnrestrictedAllowsEverything(t *testing.T) {
	a := Unrestricted()
	assert.False(t, a.IsRestricted())
	assert.True(t, a.Allows(slot(t, Saturday, 18, 0, 20, 0)))
}

func TestRestrictedContainment(t *testing.T) {
	a := Restricted(map[Weekday][]Interval{
		Monday:    {{Start: At(9, 0), End: At(12, 0)}, {Start: At(14, 0), End: At(18, 0)}},
		Wednesday: {},
	})

	assert.True(t, a.Allows(slot(t, Monday, 9, 0, 11, 0)))
	assert.True(t, a.Allows(slot(t, Monday, 14, 0, 18, 0)))
	assert.False(t, a.Allows(slot(t, Monday, 8, 0, 10, 0)), "starts before window")
	assert.False(t, a.Allows(slot(t, Monday, 11, 0, 15, 0)), "spans two windows")
	assert.False(t, a.Allows(slot(t, Wednesday, 8, 0, 10, 0)), "declared day without windows")
	assert.True(t, a.Allows(slot(t, Tuesday, 8, 0, 10, 0)), "undeclared day")
}

func TestAvailabilityJSONRoundTrip(t *testing.T) {
	raw := `{"1":[{"start":"09:00","end":"12:00"}],"3":[]}`
	var a Availability
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	assert.True(t, a.IsRestricted())
	assert.Len(t, a.Windows()[Monday], 1)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))

	var none Availability
	require.NoError(t, json.Unmarshal([]byte(`null`), &none))
	assert.False(t, none.IsRestricted())
	out, err = json.Marshal(none)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestAvailabilityRejectsBadInput(t *testing.T) {
	var a Availability
	assert.Error(t, json.Unmarshal([]byte(`{"mon":[]}`), &a))
	assert.Error(t, json.Unmarshal([]byte(`{"9":[]}`), &a))
	assert.Error(t, json.Unmarshal([]byte(`{"1":[{"start":"12:00","end":"09:00"}]}`), &a))
}

func TestAvailabilityScanValue(t *testing.T) {
	var a Availability
	require.NoError(t, a.Scan(nil))
	v, err := a.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, a.Scan([]byte(`{"2":[{"start":"08:00","end":"10:00"}]}`)))
	v, err = a.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"2":[{"start":"08:00","end":"10:00"}]}`, string(v.([]byte)))
}
