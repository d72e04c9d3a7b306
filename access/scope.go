package access

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skillsenselab/containerkit/logger"
	"github.com/skillsenselab/containerkit/provider"
)

// Handle is a scoped acquisition of the current container. Closing it
// shuts the container down exactly once; repeated closes return the
// first result. Handle implements io.Closer so it composes with the
// usual defer idiom.
type Handle struct {
	provider.Container

	id     string
	access *Access

	closeOnce sync.Once
	closeErr  error
}

// ID returns the unique identifier of this acquisition, carried in the
// accessor's log fields.
func (h *Handle) ID() string { return h.id }

// Close shuts down the container. It runs at most once per handle; the
// result of the first call is memoized for subsequent calls.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		// Release the facade's reference if it still points at us, so a
		// later facade Shutdown does not hit an already-closed container.
		if cur := h.access.current.Load(); cur != nil && cur.container == h.Container {
			h.access.current.CompareAndSwap(cur, nil)
		}
		h.closeErr = h.access.shutdownContainer(context.Background(), h.Container, h.id)
	})
	return h.closeErr
}

// Acquire resolves the current container and wraps it in a scoped Handle.
func (a *Access) Acquire(ctx context.Context) (*Handle, error) {
	c, err := a.Current(ctx)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		Container: c,
		id:        uuid.NewString(),
		access:    a,
	}
	a.log.Debug("Container handle acquired", map[string]interface{}{
		logger.FieldHandleID: h.id,
	})
	return h, nil
}

// WithCurrent runs fn with the current container and guarantees the
// container is shut down when fn returns, whether normally or by panic.
func (a *Access) WithCurrent(ctx context.Context, fn func(c provider.Container) error) error {
	h, err := a.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			a.log.Warn("Scoped container close failed", logger.ErrorFields("close", cerr))
		}
	}()
	return fn(h)
}
