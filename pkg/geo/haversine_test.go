package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceSamePoint(t *testing.T) {
	p := Point{Lat: -16.5, Lon: -68.15}
	assert.InDelta(t, 0, Distance(p, p), 1e-9)
}

func TestDistanceKnownPair(t *testing.T) {
	// one degree of latitude is roughly 111.195 km on a 6371 km sphere
	d := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	assert.InDelta(t, 111195, d, 1)
}

func TestWithinRadius(t *testing.T) {
	room := Point{Lat: -17.3935, Lon: -66.1570}

	ok, d := Within(room, Point{Lat: -17.3939, Lon: -66.1570}, 100)
	assert.True(t, ok)
	assert.InDelta(t, 44.5, d, 1)

	ok, d = Within(room, Point{Lat: -17.3950, Lon: -66.1570}, 100)
	assert.False(t, ok)
	assert.Greater(t, d, 100.0)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 45, Lon: 170}.Valid())
	assert.False(t, Point{Lat: 91, Lon: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lon: -181}.Valid())
}
