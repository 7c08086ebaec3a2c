package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/prproute/mapclient/internal/routeservice"
	"github.com/prproute/mapclient/internal/telemetry"
)

var (
	// ErrIncompleteSelection is the outcome of a query without both endpoints.
	ErrIncompleteSelection = errors.New("start and end must both be selected")
	// ErrNoRoute is the outcome of a query the service could not route.
	ErrNoRoute = errors.New("no route between start and end")
)

// RouteService is the remote routing backend.
type RouteService interface {
	Metrics(ctx context.Context) ([]string, error)
	ShortestPath(ctx context.Context, req routeservice.Request) (*routeservice.Response, error)
}

// Config configures an Orchestrator.
type Config struct {
	Service    RouteService
	Surface    MapSurface
	Banners    BannerRenderer
	Dispatcher Dispatcher
	Metrics    *telemetry.SessionMetrics
	Logger     zerolog.Logger

	// BaseContext is the parent of every network call. Defaults to Background.
	BaseContext context.Context
	// ID names the session in logs. A random UUID is used when empty.
	ID string
}

// Outcome describes how the most recent query attempt ended.
type Outcome struct {
	Generation uint64 `json:"generation"`
	QueryID    string `json:"queryId,omitempty"`
	Banner     Banner `json:"banner"`
	Err        error  `json:"-"`
}

// Orchestrator owns the session state and runs route queries. Its methods
// must only be called from the goroutine that executes the dispatcher's
// callbacks, or before that goroutine starts.
type Orchestrator struct {
	id         string
	service    RouteService
	dispatcher Dispatcher
	metrics    *telemetry.SessionMetrics
	logger     zerolog.Logger
	ctx        context.Context

	catalog  Catalog
	panel    *WeightPanel
	selector PointSelector
	overlay  *OverlayManager
	notices  *NotificationPanel

	generation uint64
	inFlight   bool
	last       Outcome
}

// New creates an Orchestrator. Service, Surface, Banners and Dispatcher are required.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Service == nil:
		return nil, errors.New("session: route service is required")
	case cfg.Surface == nil:
		return nil, errors.New("session: map surface is required")
	case cfg.Banners == nil:
		return nil, errors.New("session: banner renderer is required")
	case cfg.Dispatcher == nil:
		return nil, errors.New("session: dispatcher is required")
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	ctx := cfg.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}

	return &Orchestrator{
		id:         id,
		service:    cfg.Service,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("session_id", id).Logger(),
		ctx:        ctx,
		panel:      NewWeightPanel(0),
		overlay:    NewOverlayManager(cfg.Surface),
		notices:    NewNotificationPanel(cfg.Banners),
	}, nil
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string {
	return o.id
}

// LoadCatalog starts the one-time metric fetch. Later calls are no-ops.
func (o *Orchestrator) LoadCatalog() {
	if !o.catalog.begin() {
		return
	}

	o.logger.Debug().Msg("fetching metric catalog")
	go func() {
		metrics, err := o.service.Metrics(o.ctx)
		o.dispatcher.Dispatch(func() {
			o.catalogLoaded(metrics, err)
		})
	}()
}

func (o *Orchestrator) catalogLoaded(metrics []string, err error) {
	if !o.catalog.resolve(metrics, err) {
		return
	}

	if err != nil {
		o.logger.Error().Err(err).Msg("metric catalog unavailable")
		o.notices.Show(Banner{Kind: BannerInvalidRequest})
		return
	}

	o.panel = NewWeightPanel(o.catalog.Len())
	o.logger.Info().Strs("metrics", o.catalog.Metrics()).Msg("metric catalog loaded")
}

// Catalog returns the metric catalog.
func (o *Orchestrator) Catalog() *Catalog {
	return &o.catalog
}

// Pick records a map click as the provisional point.
func (o *Orchestrator) Pick(c Coordinate) {
	o.selector.Pick(c)
	o.overlay.SetMarker(RoleProvisional, c)
}

// ConfirmRole commits the provisional point as role and requeries. It
// reports false and changes nothing when no provisional point exists.
func (o *Orchestrator) ConfirmRole(role Role) bool {
	c, ok := o.selector.Confirm(role)
	if !ok {
		return false
	}

	o.overlay.ClearMarker(RoleProvisional)
	o.overlay.SetMarker(role, c)
	o.overlay.ClearRoute()
	o.SubmitQuery()
	return true
}

// SetSlider moves slider i and requeries. The stored value is returned.
func (o *Orchestrator) SetSlider(i int, v float64) (float64, error) {
	stored, err := o.panel.Set(i, v)
	if err != nil {
		return 0, err
	}
	o.SubmitQuery()
	return stored, nil
}

// SubmitQuery starts a new query attempt and returns its generation. Any
// response still outstanding from an earlier attempt will be discarded.
func (o *Orchestrator) SubmitQuery() uint64 {
	o.generation++
	gen := o.generation
	o.inFlight = false

	o.notices.Clear()
	o.overlay.ClearRoute()

	weights, err := o.panel.Weights()
	if err != nil {
		if o.catalog.Status() == CatalogFailed {
			err = fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
		o.logger.Warn().Err(err).Uint64("generation", gen).Msg("route query rejected")
		o.finish(Outcome{Generation: gen, Banner: Banner{Kind: BannerInvalidRequest}, Err: err})
		return gen
	}

	start, end, ok := o.selector.Endpoints()
	if !ok {
		o.finish(Outcome{Generation: gen, Banner: Banner{Kind: BannerNeedBothPoints}, Err: ErrIncompleteSelection})
		return gen
	}

	req := routeservice.Request{
		Start: start.Point(),
		End:   end.Point(),
		Alpha: weights,
	}
	queryID := uuid.NewString()
	o.inFlight = true

	o.logger.Debug().
		Uint64("generation", gen).
		Str("query_id", queryID).
		Floats64("alpha", weights).
		Msg("submitting route query")

	go func() {
		resp, err := o.service.ShortestPath(o.ctx, req)
		o.dispatcher.Dispatch(func() {
			o.complete(gen, queryID, resp, err)
		})
	}()
	return gen
}

func (o *Orchestrator) complete(gen uint64, queryID string, resp *routeservice.Response, err error) {
	if gen != o.generation {
		o.logger.Debug().
			Uint64("generation", gen).
			Uint64("current", o.generation).
			Str("query_id", queryID).
			Msg("discarding stale route response")
		o.metrics.RecordStale()
		return
	}
	o.inFlight = false

	out := Outcome{Generation: gen, QueryID: queryID}
	switch {
	case err != nil:
		o.logger.Warn().Err(err).Str("query_id", queryID).Msg("route query failed")
		out.Banner = Banner{Kind: BannerInvalidRequest}
		out.Err = err
	case resp == nil:
		out.Banner = Banner{Kind: BannerInvalidRequest}
		out.Err = routeservice.ErrMalformedResponse
	case resp.NoPath:
		out.Banner = Banner{Kind: BannerNoPathFound}
		out.Err = ErrNoRoute
	default:
		o.overlay.SetRoute(resp.Route)
		out.Banner = ResultBanner(resp.Cost)
		o.logger.Info().Str("query_id", queryID).Str("cost", resp.Cost).Msg("route found")
	}
	o.finish(out)
}

func (o *Orchestrator) finish(out Outcome) {
	o.notices.Show(out.Banner)
	o.last = out
	o.metrics.RecordOutcome(string(out.Banner.Kind))
}

// Generation returns the number of query attempts so far.
func (o *Orchestrator) Generation() uint64 {
	return o.generation
}

// LastOutcome returns the outcome of the most recent finished attempt.
func (o *Orchestrator) LastOutcome() Outcome {
	return o.last
}

// Route returns the currently rendered route.
func (o *Orchestrator) Route() (*geojson.FeatureCollection, bool) {
	_, route, ok := o.overlay.Route()
	return route, ok
}

// RouteView describes the rendered route layer.
type RouteView struct {
	Layer LayerID                    `json:"layer"`
	Route *geojson.FeatureCollection `json:"-"`
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	SessionID    string        `json:"sessionId"`
	Catalog      CatalogStatus `json:"catalog"`
	CatalogError string        `json:"catalogError,omitempty"`
	Metrics      []string      `json:"metrics"`
	Sliders      []float64     `json:"sliders"`
	Weights      WeightVector  `json:"weights"`
	Phase        Phase         `json:"phase"`
	Provisional  *Coordinate   `json:"provisional,omitempty"`
	Start        *Coordinate   `json:"start,omitempty"`
	End          *Coordinate   `json:"end,omitempty"`
	Markers      []Marker      `json:"markers"`
	Route        *RouteView    `json:"route,omitempty"`
	Banner       Banner        `json:"banner"`
	Generation   uint64        `json:"generation"`
	InFlight     bool          `json:"inFlight"`
	LastOutcome  Outcome       `json:"lastOutcome"`
}

// Snapshot copies the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	s := Snapshot{
		SessionID:   o.id,
		Catalog:     o.catalog.Status(),
		Metrics:     o.catalog.Metrics(),
		Sliders:     o.panel.Values(),
		Phase:       o.selector.Phase(),
		Markers:     o.overlay.Markers(),
		Banner:      o.notices.Current(),
		Generation:  o.generation,
		InFlight:    o.inFlight,
		LastOutcome: o.last,
	}
	if err := o.catalog.Err(); err != nil {
		s.CatalogError = err.Error()
	}
	if w, err := o.panel.Weights(); err == nil {
		s.Weights = w
	}
	if c, ok := o.selector.Provisional(); ok {
		s.Provisional = &c
	}
	if c, ok := o.selector.Start(); ok {
		s.Start = &c
	}
	if c, ok := o.selector.End(); ok {
		s.End = &c
	}
	if id, route, ok := o.overlay.Route(); ok {
		s.Route = &RouteView{Layer: id, Route: route}
	}
	return s
}
