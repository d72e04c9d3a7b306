package provider

// Static is a provider wrapping a pre-built container. It is useful for
// applications that construct their own container and register it, and
// for embedding runtimes that install an explicit override.
type Static struct {
	name      string
	container Container
}

// NewStatic creates a provider that always grants access to the given
// container. A nil container makes the provider decline every probe.
func NewStatic(name string, c Container) *Static {
	return &Static{name: name, container: c}
}

// Name returns the provider name.
func (s *Static) Name() string { return s.name }

// Container returns the wrapped container, or (nil, nil) when none was
// supplied.
func (s *Static) Container() (Container, error) {
	if s.container == nil {
		return nil, nil
	}
	return s.container, nil
}
