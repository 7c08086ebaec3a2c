package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prproute/mapclient/internal/api/middleware"
	"github.com/prproute/mapclient/internal/api/models"
	"github.com/prproute/mapclient/internal/api/response"
	"github.com/prproute/mapclient/internal/mapview"
	"github.com/prproute/mapclient/internal/session"
)

const maxBodyBytes = 1 << 16

// Runner executes fn on the goroutine that owns the session and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// SessionHandler exposes the interactive session: clicks, role confirmation,
// sliders and queries.
type SessionHandler struct {
	runner  Runner
	session *session.Orchestrator
	bounds  *session.Bounds
	logger  zerolog.Logger
}

// SessionHandlerConfig configures a SessionHandler.
type SessionHandlerConfig struct {
	Runner  Runner
	Session *session.Orchestrator
	// Bounds rejects clicks outside the rectangle when set.
	Bounds *session.Bounds
	Logger zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(cfg SessionHandlerConfig) *SessionHandler {
	return &SessionHandler{
		runner:  cfg.Runner,
		session: cfg.Session,
		bounds:  cfg.Bounds,
		logger:  cfg.Logger,
	}
}

// GetSession handles GET /v1/session.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	var view models.Session
	if !h.run(w, r, func() { view = sessionView(h.session.Snapshot()) }) {
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

// Click handles POST /v1/session/clicks - a map click becomes the provisional pick.
func (h *SessionHandler) Click(w http.ResponseWriter, r *http.Request) {
	var input models.ClickRequest
	if !decode(w, r, &input) {
		return
	}

	c, fieldErrors := validateClick(input)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinate", fieldErrors)
		return
	}
	if h.bounds != nil && !h.bounds.Contains(c) {
		response.Unprocessable(w, r, "coordinate is outside the map bounds", []models.FieldError{
			{Field: "lat,lng", Message: "outside map bounds", Code: "OUT_OF_BOUNDS"},
		})
		return
	}

	var view models.Session
	if !h.run(w, r, func() {
		h.session.Pick(c)
		view = sessionView(h.session.Snapshot())
	}) {
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

// ConfirmPick handles POST /v1/session/picks:confirm.
func (h *SessionHandler) ConfirmPick(w http.ResponseWriter, r *http.Request) {
	var input models.ConfirmRequest
	if !decode(w, r, &input) {
		return
	}

	role, err := session.ParseRole(input.Role)
	if err != nil {
		response.BadRequest(w, r, "invalid role", []models.FieldError{
			{Field: "role", Message: err.Error(), Code: "INVALID_ENUM"},
		})
		return
	}

	var (
		confirmed bool
		view      models.Session
	)
	if !h.run(w, r, func() {
		confirmed = h.session.ConfirmRole(role)
		view = sessionView(h.session.Snapshot())
	}) {
		return
	}
	if !confirmed {
		response.Conflict(w, r, "no provisional pick to confirm")
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

// SetSlider handles PUT /v1/session/sliders/{index}.
func (h *SessionHandler) SetSlider(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		response.BadRequest(w, r, "slider index must be an integer", nil)
		return
	}

	var input models.SliderRequest
	if !decode(w, r, &input) {
		return
	}
	if input.Value == nil {
		response.BadRequest(w, r, "value is required", []models.FieldError{
			{Field: "value", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	var (
		out    models.SliderUpdated
		setErr error
	)
	if !h.run(w, r, func() {
		out.Value, setErr = h.session.SetSlider(index, *input.Value)
		out.Index = index
		out.Generation = h.session.Generation()
	}) {
		return
	}

	switch {
	case errors.Is(setErr, session.ErrSliderOutOfRange):
		response.NotFound(w, r, "no slider at index "+strconv.Itoa(index))
	case setErr != nil:
		response.BadRequest(w, r, setErr.Error(), nil)
	default:
		response.JSON(w, r, http.StatusOK, out)
	}
}

// SubmitQuery handles POST /v1/session/queries - an explicit requery.
func (h *SessionHandler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var gen uint64
	if !h.run(w, r, func() { gen = h.session.SubmitQuery() }) {
		return
	}
	response.Accepted(w, r, "/v1/session", models.QueryAccepted{Generation: gen})
}

// GetRoute handles GET /v1/session/route - the rendered route as GeoJSON.
func (h *SessionHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	var body []byte
	var err error
	if !h.run(w, r, func() {
		if route, ok := h.session.Route(); ok {
			body, err = json.Marshal(route)
		}
	}) {
		return
	}

	switch {
	case err != nil:
		response.InternalError(w, r, "route could not be encoded")
	case body == nil:
		response.NotFound(w, r, "no route is displayed")
	default:
		response.GeoJSON(w, r, http.StatusOK, json.RawMessage(body))
	}
}

// run executes fn on the session goroutine. It writes a 503 and returns
// false if the session is gone or the request was canceled.
func (h *SessionHandler) run(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := h.runner.Do(r.Context(), fn); err != nil {
		h.logger.Warn().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("session unavailable")
		response.ServiceUnavailable(w, r, "session is not running")
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return false
	}
	return true
}

func validateClick(in models.ClickRequest) (session.Coordinate, []models.FieldError) {
	var errs []models.FieldError
	switch {
	case in.Lat == nil:
		errs = append(errs, models.FieldError{Field: "lat", Message: "required", Code: "REQUIRED"})
	case *in.Lat < -90 || *in.Lat > 90:
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}
	switch {
	case in.Lng == nil:
		errs = append(errs, models.FieldError{Field: "lng", Message: "required", Code: "REQUIRED"})
	case *in.Lng < -180 || *in.Lng > 180:
		errs = append(errs, models.FieldError{Field: "lng", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}
	if len(errs) > 0 {
		return session.Coordinate{}, errs
	}
	return session.Coordinate{Lat: *in.Lat, Lng: *in.Lng}, nil
}

func sessionView(s session.Snapshot) models.Session {
	view := models.Session{
		ID: s.SessionID,
		Catalog: models.CatalogView{
			Status:  string(s.Catalog),
			Error:   s.CatalogError,
			Metrics: s.Metrics,
		},
		Sliders: make([]models.SliderView, len(s.Sliders)),
		Weights: s.Weights,
		Selection: models.SelectionView{
			Phase:       string(s.Phase),
			Provisional: coordinate(s.Provisional),
			Start:       coordinate(s.Start),
			End:         coordinate(s.End),
		},
		Markers:    make([]models.MarkerView, 0, len(s.Markers)),
		Generation: s.Generation,
		InFlight:   s.InFlight,
	}
	if view.Catalog.Metrics == nil {
		view.Catalog.Metrics = []string{}
	}

	for i, v := range s.Sliders {
		slider := models.SliderView{Index: i, Value: v}
		if i < len(s.Metrics) {
			slider.Metric = s.Metrics[i]
		}
		if i < len(s.Weights) {
			weight := s.Weights[i]
			slider.Weight = &weight
		}
		view.Sliders[i] = slider
	}

	for _, m := range s.Markers {
		marker := models.MarkerView{
			Role:  string(m.Role),
			At:    models.Coordinate{Lat: m.At.Lat, Lng: m.At.Lng},
			Icon:  m.Icon,
			Label: m.Label,
		}
		for _, a := range m.Actions {
			marker.Actions = append(marker.Actions, string(a))
		}
		view.Markers = append(view.Markers, marker)
	}

	if s.Route != nil {
		sum := mapview.Summarize(s.Route.Layer, s.Route.Route)
		view.Route = &models.RouteSummary{
			Layer:        uint64(sum.Layer),
			Points:       sum.Points,
			LengthMeters: sum.LengthM,
			Polyline:     sum.Polyline,
		}
	}

	if s.Banner.Visible() {
		view.Banner = &models.BannerView{
			Kind: string(s.Banner.Kind),
			Text: s.Banner.Text(),
			Cost: s.Banner.Cost,
		}
	}
	return view
}

func coordinate(c *session.Coordinate) *models.Coordinate {
	if c == nil {
		return nil
	}
	return &models.Coordinate{Lat: c.Lat, Lng: c.Lng}
}
