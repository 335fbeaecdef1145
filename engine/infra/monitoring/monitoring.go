package monitoring

import (
	"context"
	"fmt"

	"github.com/compozy/extsort/pkg/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "extsort"

// Service encapsulates all monitoring and observability logic
type Service struct {
	meter       metric.Meter
	provider    *sdkmetric.MeterProvider
	registry    *prom.Registry
	config      *Config
	initialized bool
}

// newDisabledService creates a service instance with no-op implementations
func newDisabledService(cfg *Config) *Service {
	return &Service{
		config: cfg,
		meter:  noop.NewMeterProvider().Meter(meterName),
	}
}

// NewService creates a monitoring service. When monitoring is disabled the
// returned service hands out a no-op meter.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug("Monitoring disabled, using no-op meter")
		return newDisabledService(cfg), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	log.Debug("Monitoring service initialized", "file", cfg.File)
	return &Service{
		meter:       provider.Meter(meterName),
		provider:    provider,
		registry:    registry,
		config:      cfg,
		initialized: true,
	}, nil
}

// Meter returns the OpenTelemetry meter for custom instrumentation
func (s *Service) Meter() metric.Meter {
	return s.meter
}

// IsInitialized returns whether the service exports anything
func (s *Service) IsInitialized() bool {
	return s.initialized
}

// Flush writes the current metrics to the configured file in the
// Prometheus text format. It does nothing when monitoring is disabled.
func (s *Service) Flush() error {
	if !s.initialized {
		return nil
	}
	if err := prom.WriteToTextfile(s.config.File, s.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", s.config.File, err)
	}
	return nil
}

// Gather exposes the registry contents, mainly for tests.
func (s *Service) Gather() (map[string]float64, error) {
	out := make(map[string]float64)
	if !s.initialized {
		return out, nil
	}
	families, err := s.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		out[mf.GetName()] = total
	}
	return out, nil
}

// Shutdown gracefully shuts down the monitoring service
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}
