package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
)

const instrumentationName = "github.com/mesh-intelligence/tablestore/pkg/tableclient"

// OTelObserver records tableclient operations as OpenTelemetry metrics.
type OTelObserver struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
	inflight   metric.Int64UpDownCounter
	retries    metric.Int64Counter
}

// NewOTelObserver creates the instruments on provider's meter. A nil
// provider uses the global one.
func NewOTelObserver(provider metric.MeterProvider) (*OTelObserver, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	operations, err := meter.Int64Counter(
		"tablestore.operations",
		metric.WithDescription("Count of table operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		"tablestore.operation.duration",
		metric.WithDescription("Latency of table operations including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	inflight, err := meter.Int64UpDownCounter(
		"tablestore.operations.in_flight",
		metric.WithDescription("Table operations started and not yet finished"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-flight counter: %w", err)
	}
	retries, err := meter.Int64Counter(
		"tablestore.retries",
		metric.WithDescription("Count of retried table operation attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retries counter: %w", err)
	}

	return &OTelObserver{
		operations: operations,
		duration:   duration,
		inflight:   inflight,
		retries:    retries,
	}, nil
}

func (o *OTelObserver) OperationStarted(op string) {
	if o == nil {
		return
	}
	o.inflight.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", op)))
}

func (o *OTelObserver) OperationRetried(op string, _ int, _ time.Duration) {
	if o == nil {
		return
	}
	o.retries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", op)))
}

func (o *OTelObserver) OperationFinished(op string, outcome tableclient.Outcome, duration time.Duration, _ error) {
	if o == nil {
		return
	}
	ctx := context.Background()
	opAttr := attribute.String("operation", op)
	o.inflight.Add(ctx, -1, metric.WithAttributes(opAttr))
	o.operations.Add(ctx, 1, metric.WithAttributes(opAttr, attribute.String("outcome", outcome.String())))
	o.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(opAttr))
}

var _ tableclient.Observer = (*OTelObserver)(nil)
