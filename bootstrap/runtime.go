package bootstrap

import (
	"context"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/skillsenselab/containerkit/access"
	"github.com/skillsenselab/containerkit/config"
	"github.com/skillsenselab/containerkit/errors"
	"github.com/skillsenselab/containerkit/logger"
	"github.com/skillsenselab/containerkit/observability"
)

// Runtime bundles a loaded configuration, logger, and container accessor
// for an embedding application.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	Access *access.Access

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Init loads configuration for serviceName, initializes the global
// logger and optional telemetry, and returns a runtime whose accessor
// resolves providers per the loaded provider section.
func Init(ctx context.Context, serviceName string, opts ...Option) (*Runtime, error) {
	o := resolveOptions(opts)

	cfg := &config.Config{}
	if err := config.Load(serviceName, cfg, o.loaderOpts...); err != nil {
		return nil, errors.ConfigurationWrap("loading configuration", err)
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationWrap("validating configuration", err)
	}

	logger.Init(&cfg.Logging)
	log := logger.GetGlobalLogger()

	rt := &Runtime{
		Config: cfg,
		Logger: log,
	}

	if o.telemetryEndpoint != "" {
		tc := observability.DefaultTracerConfig(cfg.Name)
		tc.Endpoint = o.telemetryEndpoint
		tc.Environment = cfg.Environment
		tp, err := observability.InitTracer(ctx, tc)
		if err != nil {
			return nil, errors.ConfigurationWrap("initializing tracer", err)
		}
		rt.tracerProvider = tp

		mc := observability.DefaultMeterConfig(cfg.Name)
		mc.Endpoint = o.telemetryEndpoint
		mc.Environment = cfg.Environment
		mp, err := observability.InitMeter(ctx, mc)
		if err != nil {
			return nil, errors.ConfigurationWrap("initializing meter", err)
		}
		rt.meterProvider = mp
	}

	accessOpts := []access.Option{
		access.WithProviderConfig(cfg.Provider),
		access.WithLogger(log.WithComponent("access")),
	}
	if o.lookup != nil {
		accessOpts = append(accessOpts, access.WithLookup(o.lookup))
	}
	rt.Access = access.New(accessOpts...)

	log.Info("Runtime initialized", map[string]interface{}{
		"service":     cfg.Name,
		"environment": cfg.Environment,
	})
	return rt, nil
}

// Close shuts down the active container, if any, then flushes and stops
// the telemetry providers. Having no active container is not an error
// here; a runtime may close before anything was resolved.
func (r *Runtime) Close(ctx context.Context) error {
	var firstErr error

	if err := r.Access.Shutdown(ctx); err != nil && !errors.IsIllegalState(err) {
		firstErr = err
	}

	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if r.tracerProvider != nil {
		if err := r.tracerProvider.Shutdown(flushCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.meterProvider != nil {
		if err := r.meterProvider.Shutdown(flushCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	r.Logger.Info("Runtime closed")
	return firstErr
}
