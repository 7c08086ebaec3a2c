package session

import "github.com/paulmach/orb/geojson"

// Marker icons per role.
const (
	IconDefault = "marker-icon.png"
	IconStart   = "marker-green.png"
	IconEnd     = "marker-red.png"
)

// Marker is a point overlay for one role.
type Marker struct {
	Role  Role       `json:"role"`
	At    Coordinate `json:"at"`
	Icon  string     `json:"icon"`
	Label string     `json:"label"`
	// Actions lists the roles the marker's popup offers to confirm.
	Actions []Role `json:"actions,omitempty"`
}

// NewMarker builds the marker shown for role at c.
func NewMarker(role Role, c Coordinate) Marker {
	m := Marker{Role: role, At: c, Label: c.String()}
	switch role {
	case RoleStart:
		m.Icon = IconStart
	case RoleEnd:
		m.Icon = IconEnd
	default:
		m.Icon = IconDefault
		m.Actions = []Role{RoleStart, RoleEnd}
	}
	return m
}

// LayerID identifies a route layer on the map surface.
type LayerID uint64

// MapSurface is the rendering collaborator the overlay manager drives.
type MapSurface interface {
	AddMarker(m Marker)
	RemoveMarker(role Role)
	AddLayer(route *geojson.FeatureCollection) LayerID
	RemoveLayer(id LayerID)
}

type routeLayer struct {
	id    LayerID
	route *geojson.FeatureCollection
}

// OverlayManager keeps at most one marker per role and at most one route
// layer on the surface. Anything it replaces is removed before the
// replacement is added.
type OverlayManager struct {
	surface MapSurface
	markers map[Role]Marker
	route   *routeLayer
}

// NewOverlayManager creates a manager drawing on surface.
func NewOverlayManager(surface MapSurface) *OverlayManager {
	return &OverlayManager{
		surface: surface,
		markers: make(map[Role]Marker, len(markerRoles)),
	}
}

// SetMarker shows the marker for role at c, replacing any previous one.
func (m *OverlayManager) SetMarker(role Role, c Coordinate) Marker {
	m.ClearMarker(role)
	marker := NewMarker(role, c)
	m.surface.AddMarker(marker)
	m.markers[role] = marker
	return marker
}

// ClearMarker removes the marker for role. It is a no-op if there is none.
func (m *OverlayManager) ClearMarker(role Role) {
	if _, ok := m.markers[role]; !ok {
		return
	}
	m.surface.RemoveMarker(role)
	delete(m.markers, role)
}

// Marker returns the marker currently shown for role.
func (m *OverlayManager) Marker(role Role) (Marker, bool) {
	marker, ok := m.markers[role]
	return marker, ok
}

// Markers returns the shown markers in role order.
func (m *OverlayManager) Markers() []Marker {
	out := make([]Marker, 0, len(m.markers))
	for _, role := range markerRoles {
		if marker, ok := m.markers[role]; ok {
			out = append(out, marker)
		}
	}
	return out
}

// SetRoute replaces the route layer with route.
func (m *OverlayManager) SetRoute(route *geojson.FeatureCollection) LayerID {
	m.ClearRoute()
	id := m.surface.AddLayer(route)
	m.route = &routeLayer{id: id, route: route}
	return id
}

// ClearRoute removes the route layer and reports whether one was shown.
func (m *OverlayManager) ClearRoute() bool {
	if m.route == nil {
		return false
	}
	m.surface.RemoveLayer(m.route.id)
	m.route = nil
	return true
}

// Route returns the current route layer.
func (m *OverlayManager) Route() (LayerID, *geojson.FeatureCollection, bool) {
	if m.route == nil {
		return 0, nil, false
	}
	return m.route.id, m.route.route, true
}
