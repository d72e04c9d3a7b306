package access

import (
	"github.com/skillsenselab/containerkit/config"
	"github.com/skillsenselab/containerkit/logger"
	"github.com/skillsenselab/containerkit/provider"
)

// Option configures an Access during creation.
type Option func(*accessOptions)

// accessOptions collects all option values before applying to Access.
type accessOptions struct {
	lookup          provider.Lookup
	logger          *logger.Logger
	preferred       string
	allowReplace    bool
	managedShutdown bool
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *accessOptions {
	o := &accessOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLookup sets a custom provider lookup mechanism.
// If not set, the process-wide provider registry is used.
func WithLookup(l provider.Lookup) Option {
	return func(o *accessOptions) {
		o.lookup = l
	}
}

// WithLogger sets a custom logger for the accessor.
func WithLogger(l *logger.Logger) Option {
	return func(o *accessOptions) {
		o.logger = l
	}
}

// WithPreferredProvider names a provider to probe before the rest of the
// discovered set.
func WithPreferredProvider(name string) Option {
	return func(o *accessOptions) {
		o.preferred = name
	}
}

// WithOverrideReplace allows a repeated SetProvider call to silently
// replace the prior override instead of failing.
func WithOverrideReplace() Option {
	return func(o *accessOptions) {
		o.allowReplace = true
	}
}

// WithManagedShutdown marks container shutdown as managed by the runtime
// environment; manual Shutdown calls fail while this is set.
func WithManagedShutdown() Option {
	return func(o *accessOptions) {
		o.managedShutdown = true
	}
}

// WithProviderConfig applies a loaded provider configuration section.
func WithProviderConfig(cfg config.ProviderConfig) Option {
	return func(o *accessOptions) {
		o.preferred = cfg.Preferred
		o.allowReplace = cfg.AllowOverrideReplace
		o.managedShutdown = cfg.ManagedShutdown
	}
}
