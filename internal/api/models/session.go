package models

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ClickRequest is a map click. Both fields are required.
type ClickRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// ConfirmRequest promotes the provisional pick to a role.
type ConfirmRequest struct {
	Role string `json:"role"`
}

// SliderRequest moves a weight slider.
type SliderRequest struct {
	Value *float64 `json:"value"`
}

// SliderView is one weight slider.
type SliderView struct {
	Index  int      `json:"index"`
	Metric string   `json:"metric"`
	Value  float64  `json:"value"`
	Weight *float64 `json:"weight"`
}

// CatalogView is the metric catalog state.
type CatalogView struct {
	Status  string   `json:"status"`
	Error   string   `json:"error,omitempty"`
	Metrics []string `json:"metrics"`
}

// SelectionView is the point selection state.
type SelectionView struct {
	Phase       string      `json:"phase"`
	Provisional *Coordinate `json:"provisional,omitempty"`
	Start       *Coordinate `json:"start,omitempty"`
	End         *Coordinate `json:"end,omitempty"`
}

// MarkerView is a marker shown on the map.
type MarkerView struct {
	Role    string     `json:"role"`
	At      Coordinate `json:"at"`
	Icon    string     `json:"icon"`
	Label   string     `json:"label"`
	Actions []string   `json:"actions,omitempty"`
}

// RouteSummary describes the rendered route layer.
type RouteSummary struct {
	Layer        uint64  `json:"layer"`
	Points       int     `json:"points"`
	LengthMeters float64 `json:"lengthMeters"`
	Polyline     string  `json:"polyline"`
}

// BannerView is the visible status banner.
type BannerView struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
	Cost string `json:"cost,omitempty"`
}

// Session is the full interactive state.
type Session struct {
	ID         string         `json:"id"`
	Catalog    CatalogView    `json:"catalog"`
	Sliders    []SliderView   `json:"sliders"`
	Weights    []float64      `json:"weights"`
	Selection  SelectionView  `json:"selection"`
	Markers    []MarkerView   `json:"markers"`
	Route      *RouteSummary  `json:"route"`
	Banner     *BannerView    `json:"banner"`
	Generation uint64         `json:"generation"`
	InFlight   bool           `json:"inFlight"`
}

// SliderUpdated is the result of a slider move.
type SliderUpdated struct {
	Index      int     `json:"index"`
	Value      float64 `json:"value"`
	Generation uint64  `json:"generation"`
}

// QueryAccepted is returned when a query attempt starts.
type QueryAccepted struct {
	Generation uint64 `json:"generation"`
}
