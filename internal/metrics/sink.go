package metrics

import (
	"context"
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
)

// Exporter names accepted by NewSink.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTel       = "otel"
)

// Sink collects client metrics in a private registry and writes them in the
// Prometheus text format, for example to a node_exporter textfile
// directory. The prometheus exporter records through PrometheusObserver;
// the otel exporter records through OTelObserver and bridges the OTel SDK
// into the same registry.
type Sink struct {
	registry *promclient.Registry
	observer tableclient.Observer
	provider *sdkmetric.MeterProvider
}

// NewSink builds a sink for the named exporter. An empty name selects
// ExporterPrometheus.
func NewSink(exporter string) (*Sink, error) {
	reg := promclient.NewRegistry()
	s := &Sink{registry: reg}

	switch exporter {
	case "", ExporterPrometheus:
		o, err := NewPrometheusObserver("tablestore", reg)
		if err != nil {
			return nil, err
		}
		s.observer = o
	case ExporterOTel:
		exp, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		s.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
		o, err := NewOTelObserver(s.provider)
		if err != nil {
			return nil, err
		}
		s.observer = o
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", exporter)
	}
	return s, nil
}

// Observer returns the observer to pass to tableclient.WithObserver.
func (s *Sink) Observer() tableclient.Observer {
	return s.observer
}

// Gatherer exposes the sink's registry.
func (s *Sink) Gatherer() promclient.Gatherer {
	return s.registry
}

// WriteTextfile writes the current metrics to path atomically.
func (s *Sink) WriteTextfile(path string) error {
	if err := promclient.WriteToTextfile(path, s.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// Close shuts down the OTel meter provider, if any. Write metrics first.
func (s *Sink) Close(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Shutdown(ctx)
}
