// Package metrics records table client operations as Prometheus or
// OpenTelemetry metrics.
package metrics

import (
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
)

// PrometheusObserver records tableclient operations.
type PrometheusObserver struct {
	operations *promclient.CounterVec
	duration   *promclient.HistogramVec
	inflight   *promclient.GaugeVec
	retries    *promclient.CounterVec
}

// NewPrometheusObserver registers the operation metrics with reg. An empty
// namespace defaults to "tablestore" and a nil reg to the default
// registerer. Registering twice reuses the existing collectors.
func NewPrometheusObserver(namespace string, reg promclient.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "tablestore"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	operations, err := register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Count of table operations by outcome.",
	}, []string{"operation", "outcome"}))
	if err != nil {
		return nil, fmt.Errorf("register operations counter: %w", err)
	}
	duration, err := register(reg, promclient.NewHistogramVec(promclient.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of table operations including retries.",
		Buckets:   promclient.DefBuckets,
	}, []string{"operation"}))
	if err != nil {
		return nil, fmt.Errorf("register duration histogram: %w", err)
	}
	inflight, err := register(reg, promclient.NewGaugeVec(promclient.GaugeOpts{
		Namespace: namespace,
		Name:      "operations_in_flight",
		Help:      "Table operations started and not yet finished.",
	}, []string{"operation"}))
	if err != nil {
		return nil, fmt.Errorf("register in-flight gauge: %w", err)
	}
	retries, err := register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Count of retried table operation attempts.",
	}, []string{"operation"}))
	if err != nil {
		return nil, fmt.Errorf("register retries counter: %w", err)
	}

	return &PrometheusObserver{
		operations: operations,
		duration:   duration,
		inflight:   inflight,
		retries:    retries,
	}, nil
}

// register adds c to reg, returning the collector already registered under
// the same descriptor when there is one.
func register[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(promclient.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

func (o *PrometheusObserver) OperationStarted(op string) {
	if o == nil {
		return
	}
	o.inflight.WithLabelValues(op).Inc()
}

func (o *PrometheusObserver) OperationRetried(op string, _ int, _ time.Duration) {
	if o == nil {
		return
	}
	o.retries.WithLabelValues(op).Inc()
}

func (o *PrometheusObserver) OperationFinished(op string, outcome tableclient.Outcome, duration time.Duration, _ error) {
	if o == nil {
		return
	}
	o.inflight.WithLabelValues(op).Dec()
	o.operations.WithLabelValues(op, outcome.String()).Inc()
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
}

var _ tableclient.Observer = (*PrometheusObserver)(nil)
