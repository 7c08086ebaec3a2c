package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prproute/mapclient/internal/api"
	"github.com/prproute/mapclient/internal/api/models"
	"github.com/prproute/mapclient/internal/mapview"
	"github.com/prproute/mapclient/internal/provider/resilience"
	"github.com/prproute/mapclient/internal/routeservice"
	"github.com/prproute/mapclient/internal/session"
)

const routeBody = `{
	"type": "FeatureCollection",
	"path": "1,2,3",
	"features": [{
		"type": "Feature",
		"geometry": {"type": "LineString", "coordinates": [[13.405, 52.52], [12.4, 51.34], [11.582, 48.135]]},
		"properties": {"cost": 42.5}
	}]
}`

// routingServer is a stand-in for the remote routing service.
type routingServer struct {
	*httptest.Server
	dijkstraCalls atomic.Int32
	noPath        atomic.Bool
}

func newRoutingServer(t *testing.T) *routingServer {
	t.Helper()
	rs := &routingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/metrics":
			_, _ = w.Write([]byte(`["distance","duration","elevation"]`))
		case "/dijkstra":
			rs.dijkstraCalls.Add(1)
			if rs.noPath.Load() {
				_, _ = w.Write([]byte(`{"type":"FeatureCollection","path":"","features":[]}`))
				return
			}
			_, _ = w.Write([]byte(routeBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

type testEnv struct {
	router  http.Handler
	routing *routingServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	rs := newRoutingServer(t)
	registry := resilience.NewRegistry()

	client, err := routeservice.NewClient(routeservice.ClientConfig{
		BaseURL:  rs.URL + "/",
		Timeout:  2 * time.Second,
		Registry: registry,
		Logger:   logger,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	loop := session.NewLoop(16)
	go func() { _ = loop.Run(ctx) }()

	surface := mapview.New(logger)
	orchestrator, err := session.New(session.Config{
		Service:     client,
		Surface:     surface,
		Banners:     surface,
		Dispatcher:  loop,
		Logger:      logger,
		BaseContext: ctx,
	})
	require.NoError(t, err)
	require.NoError(t, loop.Do(ctx, orchestrator.LoadCatalog))

	bounds := session.Bounds{South: 47.1, West: 5.7, North: 55.2, East: 16.9}
	router := api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2026-01-01T00:00:00Z",
		Logger:    logger,
		Runner:    loop,
		Session:   orchestrator,
		Registry:  registry,
		Bounds:    &bounds,
	})

	env := &testEnv{router: router, routing: rs}
	require.Eventually(t, func() bool {
		return env.session(t).Catalog.Status == string(session.CatalogReady)
	}, 2*time.Second, 5*time.Millisecond)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) session(t *testing.T) models.Session {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var s models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func (e *testEnv) pick(t *testing.T, lat, lng float64, role string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/session/clicks", map[string]float64{"lat": lat, "lng": lng})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/v1/session/picks:confirm", map[string]string{"role": role})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/ops/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestSystemStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/ops/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "metric-catalog", status.Subsystems[0].Name)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, routeservice.ProviderName, status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	assert.NotNil(t, status.Providers[0].LastSuccessAt)
}

func TestSession_Initial(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, []string{"distance", "duration", "elevation"}, s.Catalog.Metrics)
	require.Len(t, s.Sliders, 3)
	assert.Equal(t, "duration", s.Sliders[1].Metric)
	assert.Equal(t, 0.25, s.Sliders[1].Value)
	require.NotNil(t, s.Sliders[1].Weight)
	assert.InDelta(t, 1.0/3, *s.Sliders[1].Weight, 1e-9)
	assert.Equal(t, string(session.PhaseEmpty), s.Selection.Phase)
	assert.Empty(t, s.Markers)
	assert.Nil(t, s.Route)
	assert.Nil(t, s.Banner)
}

func TestSession_FullQuery(t *testing.T) {
	env := newTestEnv(t)

	env.pick(t, 52.52, 13.405, "start")
	s := env.session(t)
	require.NotNil(t, s.Banner)
	assert.Equal(t, string(session.BannerNeedBothPoints), s.Banner.Kind)
	assert.Equal(t, int32(0), env.routing.dijkstraCalls.Load())

	env.pick(t, 48.135, 11.582, "end")

	require.Eventually(t, func() bool {
		s = env.session(t)
		return s.Banner != nil && s.Banner.Kind == string(session.BannerResult)
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "costs: 42.5", s.Banner.Text)
	assert.Equal(t, "42.5", s.Banner.Cost)
	require.NotNil(t, s.Route)
	assert.Equal(t, 3, s.Route.Points)
	assert.Greater(t, s.Route.LengthMeters, 400000.0)
	assert.NotEmpty(t, s.Route.Polyline)
	assert.False(t, s.InFlight)
	assert.Equal(t, int32(1), env.routing.dijkstraCalls.Load())

	roles := map[string]string{}
	for _, m := range s.Markers {
		roles[m.Role] = m.Icon
	}
	assert.Equal(t, map[string]string{"start": session.IconStart, "end": session.IconEnd}, roles)

	rec := env.do(t, http.MethodGet, "/v1/session/route", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	var route map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &route))
	assert.Equal(t, "FeatureCollection", route["type"])
}

func TestSession_NoPath(t *testing.T) {
	env := newTestEnv(t)
	env.routing.noPath.Store(true)

	env.pick(t, 52.52, 13.405, "start")
	env.pick(t, 48.135, 11.582, "end")

	require.Eventually(t, func() bool {
		s := env.session(t)
		return s.Banner != nil && s.Banner.Kind == string(session.BannerNoPathFound)
	}, 2*time.Second, 5*time.Millisecond)

	rec := env.do(t, http.MethodGet, "/v1/session/route", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestSession_SliderRequeries(t *testing.T) {
	env := newTestEnv(t)
	env.pick(t, 52.52, 13.405, "start")
	env.pick(t, 48.135, 11.582, "end")
	require.Eventually(t, func() bool { return env.routing.dijkstraCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	rec := env.do(t, http.MethodPut, "/v1/session/sliders/2", map[string]float64{"value": 1.4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.SliderUpdated
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 2, updated.Index)
	assert.Equal(t, 1.0, updated.Value)
	assert.Equal(t, uint64(3), updated.Generation)

	require.Eventually(t, func() bool { return env.routing.dijkstraCalls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestSession_ExplicitQuery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/session/queries", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/v1/session", rec.Header().Get("Location"))

	var accepted models.QueryAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, uint64(1), accepted.Generation)

	s := env.session(t)
	require.NotNil(t, s.Banner)
	assert.Equal(t, string(session.BannerNeedBothPoints), s.Banner.Kind)
}

func TestSession_ClickValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"missing lng", map[string]float64{"lat": 52.5}, http.StatusBadRequest},
		{"lat out of range", map[string]float64{"lat": 91, "lng": 10}, http.StatusBadRequest},
		{"outside bounds", map[string]float64{"lat": 48.8566, "lng": 2.3522}, http.StatusUnprocessableEntity},
		{"unknown field", map[string]interface{}{"lat": 52.5, "lng": 13.4, "zoom": 3}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/session/clicks", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}

	assert.Empty(t, env.session(t).Markers)
}

func TestSession_ConfirmWithoutPick(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/session/picks:confirm", map[string]string{"role": "start"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/session/picks:confirm", map[string]string{"role": "middle"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, uint64(0), env.session(t).Generation)
}

func TestSession_RepickKeepsOneProvisionalMarker(t *testing.T) {
	env := newTestEnv(t)

	for _, c := range [][2]float64{{52.52, 13.405}, {48.135, 11.582}, {53.55, 9.99}} {
		rec := env.do(t, http.MethodPost, "/v1/session/clicks", map[string]float64{"lat": c[0], "lng": c[1]})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	s := env.session(t)
	require.Len(t, s.Markers, 1)
	assert.Equal(t, "provisional", s.Markers[0].Role)
	assert.Equal(t, "53.550, 9.990", s.Markers[0].Label)
	assert.Equal(t, []string{"start", "end"}, s.Markers[0].Actions)
}

func TestSession_SliderErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/v1/session/sliders/7", map[string]float64{"value": 0.5})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/session/sliders/x", map[string]float64{"value": 0.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/session/sliders/0", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSession_RejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/session/clicks", bytes.NewBufferString("lat=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
