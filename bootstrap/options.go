package bootstrap

import (
	"github.com/skillsenselab/containerkit/config"
	"github.com/skillsenselab/containerkit/provider"
)

// Option configures a Runtime during Init.
type Option func(*runtimeOptions)

// runtimeOptions collects all option values before applying to Runtime.
type runtimeOptions struct {
	lookup            provider.Lookup
	loaderOpts        []config.LoaderOption
	telemetryEndpoint string
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *runtimeOptions {
	o := &runtimeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLookup sets a custom provider lookup for the accessor.
// If not set, the process-wide provider registry is used.
func WithLookup(l provider.Lookup) Option {
	return func(o *runtimeOptions) {
		o.lookup = l
	}
}

// WithLoaderOptions forwards options to the configuration loader,
// e.g. an explicit config file path.
func WithLoaderOptions(opts ...config.LoaderOption) Option {
	return func(o *runtimeOptions) {
		o.loaderOpts = append(o.loaderOpts, opts...)
	}
}

// WithTelemetry enables OTLP trace and metric export to the given
// HTTP endpoint (host:port). Without it the global no-op providers
// stay in place.
func WithTelemetry(endpoint string) Option {
	return func(o *runtimeOptions) {
		o.telemetryEndpoint = endpoint
	}
}
