package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/skillsenselab/containerkit/logger"
	"github.com/skillsenselab/containerkit/version"
)

// MeterConfig configures the OpenTelemetry meter.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment.
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Short(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(config.Interval),
		)),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Probe outcomes recorded against AttrOutcome.
const (
	OutcomeSelected = "selected"
	OutcomeDeclined = "declined"
	OutcomeError    = "error"
)

// Metrics holds the instruments recorded by the access layer.
type Metrics struct {
	discoveries metric.Int64Counter
	probes      metric.Int64Counter
	resolutions metric.Float64Histogram
	shutdowns   metric.Int64Counter
}

// NewMetrics creates the access layer instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	discoveries, err := meter.Int64Counter("containerkit.discoveries",
		metric.WithDescription("Provider discovery runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating discoveries counter: %w", err)
	}

	probes, err := meter.Int64Counter("containerkit.probes",
		metric.WithDescription("Provider probes by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating probes counter: %w", err)
	}

	resolutions, err := meter.Float64Histogram("containerkit.resolution.duration",
		metric.WithDescription("Container resolution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolution histogram: %w", err)
	}

	shutdowns, err := meter.Int64Counter("containerkit.shutdowns",
		metric.WithDescription("Container shutdowns by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shutdowns counter: %w", err)
	}

	return &Metrics{
		discoveries: discoveries,
		probes:      probes,
		resolutions: resolutions,
		shutdowns:   shutdowns,
	}, nil
}

// RecordDiscovery records one discovery run with its candidate count.
func (m *Metrics) RecordDiscovery(ctx context.Context, candidates int) {
	if m == nil {
		return
	}
	m.discoveries.Add(ctx, 1, metric.WithAttributes(
		attribute.Int(AttrCandidates, candidates),
	))
}

// RecordProbe records one provider probe and its outcome.
func (m *Metrics) RecordProbe(ctx context.Context, providerName, outcome string) {
	if m == nil {
		return
	}
	m.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrProvider, providerName),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordResolution records the duration of one resolution.
func (m *Metrics) RecordResolution(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.Record(ctx, d.Seconds())
}

// RecordShutdown records one container shutdown attempt.
func (m *Metrics) RecordShutdown(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.shutdowns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOutcome, outcome),
	))
}
