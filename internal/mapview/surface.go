// Package mapview is the headless map surface: it keeps the markers, route
// layers and banners the session draws, as a browser map would display them,
// and exposes them to the control API.
package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/prproute/mapclient/internal/session"
	"github.com/prproute/mapclient/pkg/polyline"
)

// Surface records what is on the map. Like the session that drives it, it is
// not safe for concurrent use.
type Surface struct {
	logger  zerolog.Logger
	markers []session.Marker
	layers  []Layer
	banners []session.Banner
	nextID  session.LayerID

	peakMarkers map[session.Role]int
	peakLayers  int
	peakBanners int
}

// Layer is a route layer on the surface.
type Layer struct {
	ID    session.LayerID
	Route *geojson.FeatureCollection
}

// New creates an empty surface.
func New(logger zerolog.Logger) *Surface {
	return &Surface{
		logger:      logger.With().Str("component", "mapview").Logger(),
		peakMarkers: make(map[session.Role]int),
	}
}

// AddMarker draws m.
func (s *Surface) AddMarker(m session.Marker) {
	s.markers = append(s.markers, m)
	if n := s.MarkerCount(m.Role); n > s.peakMarkers[m.Role] {
		s.peakMarkers[m.Role] = n
	}
	s.logger.Debug().Str("role", string(m.Role)).Str("at", m.Label).Msg("marker added")
}

// RemoveMarker removes the oldest marker drawn for role.
func (s *Surface) RemoveMarker(role session.Role) {
	for i, m := range s.markers {
		if m.Role == role {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			s.logger.Debug().Str("role", string(role)).Msg("marker removed")
			return
		}
	}
}

// AddLayer draws a route layer and returns its id.
func (s *Surface) AddLayer(route *geojson.FeatureCollection) session.LayerID {
	s.nextID++
	s.layers = append(s.layers, Layer{ID: s.nextID, Route: route})
	if len(s.layers) > s.peakLayers {
		s.peakLayers = len(s.layers)
	}
	s.logger.Debug().Uint64("layer", uint64(s.nextID)).Msg("route layer added")
	return s.nextID
}

// RemoveLayer removes the layer with the given id, if present.
func (s *Surface) RemoveLayer(id session.LayerID) {
	for i, l := range s.layers {
		if l.ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			s.logger.Debug().Uint64("layer", uint64(id)).Msg("route layer removed")
			return
		}
	}
}

// ShowBanner makes b visible.
func (s *Surface) ShowBanner(b session.Banner) {
	s.banners = append(s.banners, b)
	if len(s.banners) > s.peakBanners {
		s.peakBanners = len(s.banners)
	}
}

// HideBanner hides every visible banner of the given kind.
func (s *Surface) HideBanner(kind session.BannerKind) {
	kept := s.banners[:0]
	for _, b := range s.banners {
		if b.Kind != kind {
			kept = append(kept, b)
		}
	}
	s.banners = kept
}

// Markers returns the drawn markers in drawing order.
func (s *Surface) Markers() []session.Marker {
	return append([]session.Marker(nil), s.markers...)
}

// MarkerCount returns how many markers are drawn for role.
func (s *Surface) MarkerCount(role session.Role) int {
	n := 0
	for _, m := range s.markers {
		if m.Role == role {
			n++
		}
	}
	return n
}

// PeakMarkers returns the largest number of markers ever drawn at once for role.
func (s *Surface) PeakMarkers(role session.Role) int {
	return s.peakMarkers[role]
}

// Layers returns the drawn route layers.
func (s *Surface) Layers() []Layer {
	return append([]Layer(nil), s.layers...)
}

// PeakLayers returns the largest number of route layers ever drawn at once.
func (s *Surface) PeakLayers() int {
	return s.peakLayers
}

// Banners returns the visible banners.
func (s *Surface) Banners() []session.Banner {
	return append([]session.Banner(nil), s.banners...)
}

// PeakBanners returns the largest number of banners ever visible at once.
func (s *Surface) PeakBanners() int {
	return s.peakBanners
}

// Summary describes a route layer for display.
type Summary struct {
	Layer    session.LayerID `json:"layer"`
	Points   int             `json:"points"`
	LengthM  float64         `json:"lengthMeters"`
	Polyline string          `json:"polyline"`
}

// Summarize collects the line geometry of route and measures it. Points and
// the encoded polyline cover every LineString and MultiLineString feature in
// order.
func Summarize(id session.LayerID, route *geojson.FeatureCollection) Summary {
	sum := Summary{Layer: id}
	if route == nil {
		return sum
	}

	var path orb.LineString
	for _, f := range route.Features {
		for _, ls := range lines(f.Geometry) {
			sum.LengthM += geo.Length(ls)
			path = append(path, ls...)
		}
	}
	sum.Points = len(path)
	sum.Polyline = polyline.Encode(path)
	return sum
}

func lines(g orb.Geometry) []orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return []orb.LineString{v}
	case orb.MultiLineString:
		return v
	default:
		return nil
	}
}
