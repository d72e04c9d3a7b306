package provider

import "context"

// Container is the opaque handle to a running container. All container
// lifecycle state lives behind this interface; the access layer only
// delegates to it.
type Container interface {
	// Shutdown shuts down the container and releases its resources.
	Shutdown(ctx context.Context) error
}

// Provider is a candidate capable of granting access to a container.
//
// Container is a side-effecting probe: the access layer invokes it to test
// viability, and a provider is viable only when it returns a non-nil
// handle with a nil error. Returning (nil, nil) signals that the provider
// has no container for the current environment; returning an error marks
// this probe as failed without aborting selection of later candidates.
type Provider interface {
	// Name identifies the provider implementation.
	Name() string

	// Container returns a handle to the container this provider can
	// access, or (nil, nil) when it cannot access one.
	Container() (Container, error)
}
