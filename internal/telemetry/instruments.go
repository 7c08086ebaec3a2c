package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/prproute/mapclient/internal/telemetry"

// SessionMetrics holds the instruments recorded by the interactive session and
// the routing service client.
type SessionMetrics struct {
	queryOutcomes   metric.Int64Counter
	staleDiscarded  metric.Int64Counter
	serviceDuration metric.Float64Histogram
	serviceTotal    metric.Int64Counter
}

// NewSessionMetrics creates the session instruments on the global meter provider.
func NewSessionMetrics() (*SessionMetrics, error) {
	meter := otel.Meter(meterName)

	queryOutcomes, err := meter.Int64Counter(
		"mapclient.query.outcomes",
		metric.WithDescription("Route query attempts by outcome"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	staleDiscarded, err := meter.Int64Counter(
		"mapclient.query.stale_discarded",
		metric.WithDescription("Route responses discarded because a newer query superseded them"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	serviceDuration, err := meter.Float64Histogram(
		"mapclient.routing_service.duration",
		metric.WithDescription("Duration of routing service calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	serviceTotal, err := meter.Int64Counter(
		"mapclient.routing_service.total",
		metric.WithDescription("Total routing service calls"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &SessionMetrics{
		queryOutcomes:   queryOutcomes,
		staleDiscarded:  staleDiscarded,
		serviceDuration: serviceDuration,
		serviceTotal:    serviceTotal,
	}, nil
}

// RecordOutcome counts one finished query attempt. A nil receiver is a no-op.
func (m *SessionMetrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.queryOutcomes.Add(context.TODO(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordStale counts one discarded stale response.
func (m *SessionMetrics) RecordStale() {
	if m == nil {
		return
	}
	m.staleDiscarded.Add(context.TODO(), 1)
}

// RecordServiceCall records one routing service call.
func (m *SessionMetrics) RecordServiceCall(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("operation", operation)}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context: the request context may already be canceled.
	ctx := context.TODO()
	m.serviceDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.serviceTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
