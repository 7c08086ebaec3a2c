package session

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Coordinate is a geographic coordinate as picked on the map.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns the coordinate in orb order ([lng, lat]) at full precision.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// Rounded returns the coordinate rounded to 3 decimals. Display only.
func (c Coordinate) Rounded() Coordinate {
	return Coordinate{
		Lat: math.Round(c.Lat*1000) / 1000,
		Lng: math.Round(c.Lng*1000) / 1000,
	}
}

// String formats the coordinate for display as "lat, lng" with 3 decimals.
func (c Coordinate) String() string {
	r := c.Rounded()
	return fmt.Sprintf("%.3f, %.3f", r.Lat, r.Lng)
}

// Bounds is a lat/lng rectangle.
type Bounds struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Contains reports whether c lies inside the rectangle, edges included.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lng >= b.West && c.Lng <= b.East
}

// Role names a marker slot on the map.
type Role string

const (
	RoleProvisional Role = "provisional"
	RoleStart       Role = "start"
	RoleEnd         Role = "end"
)

// markerRoles lists every marker slot in display order.
var markerRoles = []Role{RoleProvisional, RoleStart, RoleEnd}

// Confirmable reports whether a provisional pick can be promoted to r.
func (r Role) Confirmable() bool {
	return r == RoleStart || r == RoleEnd
}

// ParseRole parses a confirmable role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Confirmable() {
		return "", fmt.Errorf("unknown role %q: want %q or %q", s, RoleStart, RoleEnd)
	}
	return r, nil
}
