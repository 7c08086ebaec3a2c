// Package routeservice is the wire client for the remote multi-criteria routing
// service: GET <base>/metrics and POST <base>/dijkstra.
package routeservice

import (
	"errors"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Sentinel errors for routing service operations.
var (
	// ErrUnavailable indicates a transport failure or an open circuit.
	ErrUnavailable = errors.New("routing service unavailable")
	// ErrBadStatus indicates the service answered with a non-200 status.
	ErrBadStatus = errors.New("routing service returned an unexpected status")
	// ErrMalformedResponse indicates a 200 response whose body does not match the contract.
	ErrMalformedResponse = errors.New("malformed routing service response")
	// ErrInvalidRequest indicates the request could not be built.
	ErrInvalidRequest = errors.New("invalid route request")
)

// Error carries the operation and classification of a failed call.
type Error struct {
	Op         string // "metrics" or "dijkstra"
	Code       string // short machine code, e.g. HTTP_503
	Message    string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AlphaProperty is the feature property carrying the weight vector.
const AlphaProperty = "alpha"

// CostProperty is the feature property carrying the total route cost.
const CostProperty = "cost"

// Request is one shortest-path query. Start and End are in orb order ([lng, lat]).
type Request struct {
	Start orb.Point
	End   orb.Point
	Alpha []float64
}

// FeatureCollection builds the wire body: two Point features, start then end,
// each carrying the same alpha vector.
func (r Request) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range []orb.Point{r.Start, r.End} {
		f := geojson.NewFeature(p)
		f.Properties[AlphaProperty] = r.Alpha
		fc.Append(f)
	}
	return fc
}

// Response is a parsed /dijkstra answer.
type Response struct {
	// NoPath is set when the service answered with the empty path sentinel.
	NoPath bool

	// Cost is the total cost as the service sent it, for display.
	Cost string

	// Route is the full response collection, handed to the overlay renderer.
	Route *geojson.FeatureCollection
}

// CostValue returns Cost as a number, if it is one.
func (r *Response) CostValue() (float64, bool) {
	v, err := strconv.ParseFloat(r.Cost, 64)
	return v, err == nil
}
