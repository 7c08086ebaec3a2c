package routeservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/prproute/mapclient/internal/provider/resilience"
	"github.com/prproute/mapclient/internal/telemetry"
)

const (
	// ProviderName identifies the routing service in the health registry.
	ProviderName = "routing-service"

	// DefaultBaseURL is where the routing service listens in local setups.
	DefaultBaseURL = "http://localhost:8080/"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 32 << 20

	tracerName = "github.com/prproute/mapclient/internal/routeservice"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the routing service client.
type ClientConfig struct {
	// BaseURL is the service root; "metrics" and "dijkstra" are resolved against it.
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, a resilience.Client with Timeout and MaxRetries is built.
	HTTPClient HTTPDoer

	// Timeout is the per-attempt timeout (optional, defaults to 30s).
	Timeout time.Duration

	// MaxRetries is the number of retries on transient failures (default 0).
	MaxRetries uint64

	// Registry tracks the health of the service (optional).
	Registry *resilience.Registry

	// Metrics records call durations (optional).
	Metrics *telemetry.SessionMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client talks to the routing service.
type Client struct {
	metricsURL  string
	dijkstraURL string
	httpClient  HTTPDoer
	metrics     *telemetry.SessionMetrics
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewClient creates a routing service client.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid routing service base URL %q", baseURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.MaxRetries = cfg.MaxRetries
		clientCfg.Registry = cfg.Registry
		clientCfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(cfg.Logger)
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		metricsURL:  base.JoinPath("metrics").String(),
		dijkstraURL: base.JoinPath("dijkstra").String(),
		httpClient:  httpClient,
		metrics:     cfg.Metrics,
		tracer:      otel.Tracer(tracerName),
		logger:      cfg.Logger,
	}, nil
}

// Metrics fetches the ordered metric catalog.
func (c *Client) Metrics(ctx context.Context) (_ []string, err error) {
	const op = "metrics"

	ctx, span := c.tracer.Start(ctx, "routeservice.Metrics", trace.WithSpanKind(trace.SpanKindClient))
	defer func() { endSpan(span, err) }()

	started := time.Now()
	defer func() { c.metrics.RecordServiceCall(op, time.Since(started), err) }()

	body, err := c.do(ctx, op, http.MethodGet, c.metricsURL, nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, malformed(op, "metrics body is not a JSON array", nil)
	}

	var names []string
	if err := json.Unmarshal(trimmed, &names); err != nil {
		return nil, malformed(op, "decoding metrics", err)
	}

	span.SetAttributes(attribute.Int("metrics.count", len(names)))
	c.logger.Debug().
		Strs("metrics", names).
		Msg("received metric catalog")

	return names, nil
}

// ShortestPath submits a route request. A response carrying the empty path
// sentinel is returned with NoPath set, not as an error.
func (c *Client) ShortestPath(ctx context.Context, req Request) (_ *Response, err error) {
	const op = "dijkstra"

	ctx, span := c.tracer.Start(ctx, "routeservice.ShortestPath",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("alpha.length", len(req.Alpha))),
	)
	defer func() { endSpan(span, err) }()

	started := time.Now()
	defer func() { c.metrics.RecordServiceCall(op, time.Since(started), err) }()

	if len(req.Alpha) == 0 {
		return nil, &Error{Op: op, Code: "EMPTY_ALPHA", Message: "alpha vector is empty", Err: ErrInvalidRequest}
	}

	payload, err := json.Marshal(req.FeatureCollection())
	if err != nil {
		return nil, fmt.Errorf("marshaling route request: %w", err)
	}

	c.logger.Debug().
		Float64("start_lat", req.Start.Lat()).
		Float64("start_lng", req.Start.Lon()).
		Float64("end_lat", req.End.Lat()).
		Float64("end_lng", req.End.Lon()).
		Floats64("alpha", req.Alpha).
		Msg("requesting shortest path")

	body, err := c.do(ctx, op, http.MethodPost, c.dijkstraURL, payload)
	if err != nil {
		return nil, err
	}

	resp, err := parseRoute(body)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("route.found", !resp.NoPath))
	return resp, nil
}

// do executes one request and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json;charset=UTF-8")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{
			Op:      op,
			Code:    "REQUEST_FAILED",
			Message: "failed to reach routing service",
			Err:     fmt.Errorf("%w: %w", ErrUnavailable, err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{
			Op:         op,
			Code:       "READ_FAILED",
			Message:    "reading response body",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %w", ErrUnavailable, err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Op:         op,
			Code:       "HTTP_" + strconv.Itoa(resp.StatusCode),
			Message:    fmt.Sprintf("routing service returned status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        ErrBadStatus,
		}
	}

	return respBody, nil
}

// parseRoute decodes a /dijkstra body. Only a "path" member equal to the empty
// string means no route; an absent or non-string path does not.
func parseRoute(body []byte) (*Response, error) {
	const op = "dijkstra"

	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return nil, malformed(op, "response is not a JSON object", err)
	}

	if raw, ok := members["path"]; ok {
		var path string
		if json.Unmarshal(raw, &path) == nil && path == "" {
			return &Response{NoPath: true}, nil
		}
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, malformed(op, "decoding route collection", err)
	}
	if len(fc.Features) == 0 {
		return nil, malformed(op, "route collection has no features", nil)
	}

	cost, err := costText(fc.Features[0].Properties[CostProperty])
	if err != nil {
		return nil, malformed(op, "reading route cost", err)
	}

	return &Response{Cost: cost, Route: fc}, nil
}

// costText accepts the cost as a JSON number or as a string.
func costText(v interface{}) (string, error) {
	switch c := v.(type) {
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64), nil
	case string:
		return c, nil
	case nil:
		return "", fmt.Errorf("%s property missing", CostProperty)
	default:
		return "", fmt.Errorf("%s property has type %T", CostProperty, v)
	}
}

func malformed(op, msg string, err error) error {
	wrapped := ErrMalformedResponse
	if err != nil {
		wrapped = fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &Error{Op: op, Code: "MALFORMED", Message: msg, StatusCode: http.StatusOK, Err: wrapped}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
