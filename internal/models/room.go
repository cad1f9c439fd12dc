package models

import (
	"time"

	"github.com/noah-isme/uni-schedule-api/pkg/geo"
)

// RoomKind classifies teaching spaces.
type RoomKind string

const (
	RoomKindGeneral    RoomKind = "general"
	RoomKindLab        RoomKind = "lab"
	RoomKindAuditorium RoomKind = "auditorium"
)

// Valid reports whether the kind is supported.
func (k RoomKind) Valid() bool {
	switch k {
	case RoomKindGeneral, RoomKindLab, RoomKindAuditorium:
		return true
	default:
		return false
	}
}

// Room is a bookable classroom.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Building  string    `db:"building" json:"building"`
	Floor     string    `db:"floor" json:"floor"`
	Kind      RoomKind  `db:"kind" json:"kind"`
	Active    bool      `db:"active" json:"active"`
	Latitude  *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64  `db:"longitude" json:"longitude,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Location returns the room coordinates when both are set.
func (r Room) Location() (geo.Point, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *r.Latitude, Lon: *r.Longitude}, true
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	Search      string
	Kind        RoomKind
	Building    string
	Active      *bool
	MinCapacity int
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// RoomOccupancy reports weekly usage of a room within a term.
type RoomOccupancy struct {
	RoomID      string  `db:"room_id" json:"room_id"`
	Code        string  `db:"code" json:"code"`
	Name        string  `db:"name" json:"name"`
	Capacity    int     `db:"capacity" json:"capacity"`
	Entries     int     `db:"entries" json:"entries"`
	WeeklyHours float64 `db:"weekly_hours" json:"weekly_hours"`
	Percent     float64 `db:"-" json:"occupancy_percent"`
}

// OccupancyWindowHours is the bookable week used as the occupancy denominator:
// six days of 08:00 to 20:00.
const OccupancyWindowHours = 6 * 12.0

// Finalize derives the occupancy percentage.
func (o *RoomOccupancy) Finalize() {
	o.Percent = roundTo(o.WeeklyHours/OccupancyWindowHours*100, 2)
}
