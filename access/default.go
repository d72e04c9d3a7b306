package access

import (
	"context"
	"sync/atomic"

	"github.com/skillsenselab/containerkit/provider"
)

// defaultAccess holds the process-wide accessor used by the package-level
// functions.
var defaultAccess atomic.Pointer[Access]

// Default returns the process-wide accessor, creating one over the
// default provider registry on first use.
func Default() *Access {
	if a := defaultAccess.Load(); a != nil {
		return a
	}
	// Lose the race gracefully: the first stored accessor wins.
	defaultAccess.CompareAndSwap(nil, New())
	return defaultAccess.Load()
}

// SetDefault replaces the process-wide accessor used by the package-level
// functions. This is similar to slog.SetDefault.
func SetDefault(a *Access) {
	defaultAccess.Store(a)
}

// Current returns a container handle from the default accessor.
func Current(ctx context.Context) (provider.Container, error) {
	return Default().Current(ctx)
}

// SetProvider installs a provider override on the default accessor.
func SetProvider(p provider.Provider) error {
	return Default().SetProvider(p)
}

// Shutdown shuts down the default accessor's active container.
func Shutdown(ctx context.Context) error {
	return Default().Shutdown(ctx)
}
