package access

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillsenselab/containerkit/errors"
	"github.com/skillsenselab/containerkit/logger"
	"github.com/skillsenselab/containerkit/observability"
	"github.com/skillsenselab/containerkit/provider"
)

const instrumentationName = "github.com/skillsenselab/containerkit/access"

// Access resolves and caches the active container provider for the
// process. The zero value is not usable; create instances with New.
//
// Resolution state moves UNRESOLVED -> RESOLVED along the discovery path
// or UNRESOLVED -> OVERRIDDEN along the manual path; neither terminal
// state is ever left. Reads of a settled state are lock-free; only the
// first discovery takes the mutex.
type Access struct {
	lookup          provider.Lookup
	log             *logger.Logger
	preferred       string
	allowReplace    bool
	managedShutdown bool

	tracer  trace.Tracer
	metrics *observability.Metrics

	// mu guards the discovery/selection slow path. The cells below are
	// published atomically and written at most once on success, so the
	// common cached-read path never takes the lock.
	mu         sync.Mutex
	discovered atomic.Pointer[discoveredSet]
	active     atomic.Pointer[providerEntry]
	override   atomic.Pointer[providerEntry]
	current    atomic.Pointer[containerEntry]
}

// discoveredSet is an immutable, insertion-ordered, identity-deduplicated
// snapshot of the providers visible at discovery time.
type discoveredSet struct {
	providers []provider.Provider
}

// providerEntry wraps a provider for atomic publication.
type providerEntry struct {
	provider provider.Provider
}

// containerEntry wraps the most recently produced handle.
type containerEntry struct {
	container provider.Container
}

// New creates an accessor. With no options it discovers providers from
// the process-wide registry.
func New(opts ...Option) *Access {
	o := resolveOptions(opts)

	a := &Access{
		lookup:          o.lookup,
		log:             o.logger,
		preferred:       o.preferred,
		allowReplace:    o.allowReplace,
		managedShutdown: o.managedShutdown,
		tracer:          observability.Tracer(instrumentationName),
	}
	if a.lookup == nil {
		a.lookup = provider.DefaultLookup()
	}
	if a.log == nil {
		a.log = logger.WithComponent("access")
	}

	// Metrics record methods are nil-safe, so instrument creation
	// failures degrade to unrecorded metrics instead of a dead accessor.
	a.metrics, _ = observability.NewMetrics(observability.Meter(instrumentationName))

	return a
}

// Current returns a container handle produced by the active provider,
// resolving the provider first if needed. It fails with a configuration
// error when no provider is discoverable or none can produce a handle.
func (a *Access) Current(ctx context.Context) (provider.Container, error) {
	p, probed, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}

	c := probed
	if c == nil {
		// Cached or overridden provider: produce a fresh handle.
		c, err = p.Container()
		if err != nil {
			return nil, errors.ConfigurationWrap("active provider failed to produce a container", err).
				WithDetail("provider", p.Name())
		}
		if c == nil {
			return nil, errors.Configuration("active provider has no container for this environment").
				WithDetail("provider", p.Name())
		}
	}

	a.current.Store(&containerEntry{container: c})
	return c, nil
}

// SetProvider installs an explicit provider override. The override takes
// precedence over any discovered selection for future lookups without
// invalidating handles that were already returned.
//
// A nil provider fails with an invalid-argument error and leaves prior
// state untouched. Re-setting an override fails with an illegal-state
// error unless override replacement was enabled.
//
// The write is a lock-free atomic publication: installing an override
// while a discovery is in flight never exposes a torn value.
func (a *Access) SetProvider(p provider.Provider) error {
	if p == nil {
		return errors.InvalidArgument("provider", "provider must not be nil")
	}

	entry := &providerEntry{provider: p}
	if a.override.CompareAndSwap(nil, entry) {
		a.log.Info("Provider override installed", map[string]interface{}{
			logger.FieldProvider: p.Name(),
		})
		return nil
	}

	if !a.allowReplace {
		return errors.IllegalState("provider override is already set").
			WithDetail("provider", p.Name())
	}

	a.override.Store(entry)
	a.log.Warn("Provider override replaced", map[string]interface{}{
		logger.FieldProvider: p.Name(),
	})
	return nil
}

// Shutdown shuts down the container most recently returned by this
// accessor. It fails with an illegal-state error when no container is
// active or when shutdown is managed by the runtime environment.
func (a *Access) Shutdown(ctx context.Context) error {
	if a.managedShutdown {
		return errors.IllegalState("container shutdown is managed by the runtime environment")
	}

	cur := a.current.Swap(nil)
	if cur == nil {
		return errors.IllegalState("no active container to shut down")
	}

	return a.shutdownContainer(ctx, cur.container, "")
}

// shutdownContainer delegates shutdown to the handle and logs the outcome.
func (a *Access) shutdownContainer(ctx context.Context, c provider.Container, handleID string) error {
	if a.managedShutdown {
		return errors.IllegalState("container shutdown is managed by the runtime environment")
	}

	fields := map[string]interface{}{}
	if handleID != "" {
		fields[logger.FieldHandleID] = handleID
	}

	if err := c.Shutdown(ctx); err != nil {
		a.metrics.RecordShutdown(ctx, observability.OutcomeError)
		a.log.Error("Container shutdown failed", logger.MergeWithError(fields, err))
		return err
	}

	a.metrics.RecordShutdown(ctx, "completed")
	a.log.Info("Container shut down", fields)
	return nil
}

// resolve returns the active provider, establishing it on first use.
// When the provider was just selected by a probe, the handle produced by
// that probe is returned alongside it so Current can reuse it.
func (a *Access) resolve(ctx context.Context) (provider.Provider, provider.Container, error) {
	// Fast path: settled state, no locking.
	if ov := a.override.Load(); ov != nil {
		return ov.provider, nil, nil
	}
	if act := a.active.Load(); act != nil {
		return act.provider, nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Re-check after acquiring the lock: another caller may have settled
	// the state, or an override may have landed while we waited.
	if ov := a.override.Load(); ov != nil {
		return ov.provider, nil, nil
	}
	if act := a.active.Load(); act != nil {
		return act.provider, nil, nil
	}

	ctx, span := a.tracer.Start(ctx, observability.SpanResolve)
	defer span.End()
	start := time.Now()

	set, err := a.discoverLocked(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, nil, err
	}

	p, c, err := a.selectLocked(ctx, set)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, nil, err
	}

	span.SetAttributes(attribute.String(observability.AttrProvider, p.Name()))
	a.active.Store(&providerEntry{provider: p})
	a.metrics.RecordResolution(ctx, time.Since(start))
	return p, c, nil
}

// discoverLocked returns the discovered provider set, computing and
// caching it on first use. Failures cache nothing. Caller holds mu.
func (a *Access) discoverLocked(ctx context.Context) (*discoveredSet, error) {
	if set := a.discovered.Load(); set != nil {
		return set, nil
	}

	ctx, span := a.tracer.Start(ctx, observability.SpanDiscover)
	defer span.End()
	start := time.Now()

	found, err := a.lookup.Providers()
	if err != nil {
		a.log.Error("Provider lookup failed", logger.ErrorFields("discover", err))
		return nil, errors.ConfigurationWrap("provider lookup failed", err)
	}

	deduped := dedupeByType(found)
	if len(deduped) == 0 {
		return nil, errors.Configuration("no container provider available")
	}

	set := &discoveredSet{providers: deduped}
	a.discovered.Store(set)
	a.metrics.RecordDiscovery(ctx, len(deduped))

	a.log.Info("Providers discovered", map[string]interface{}{
		logger.FieldCandidates: len(deduped),
		logger.FieldDuration:   time.Since(start).Milliseconds(),
	})
	return set, nil
}

// selectLocked applies the first-fit probe policy over the discovered
// set: the first candidate producing a non-nil handle wins, and later
// candidates are never probed. Caller holds mu.
func (a *Access) selectLocked(ctx context.Context, set *discoveredSet) (provider.Provider, provider.Container, error) {
	candidates := a.orderCandidates(set.providers)
	probeFailures := make(map[string]any)

	for _, p := range candidates {
		c, err := p.Container()
		if err != nil {
			a.metrics.RecordProbe(ctx, p.Name(), observability.OutcomeError)
			a.log.Warn("Provider probe failed", map[string]interface{}{
				logger.FieldProvider: p.Name(),
				logger.FieldError:    err.Error(),
			})
			probeFailures[p.Name()] = err.Error()
			continue
		}
		if c == nil {
			a.metrics.RecordProbe(ctx, p.Name(), observability.OutcomeDeclined)
			a.log.Debug("Provider declined", map[string]interface{}{
				logger.FieldProvider: p.Name(),
			})
			probeFailures[p.Name()] = "declined"
			continue
		}

		a.metrics.RecordProbe(ctx, p.Name(), observability.OutcomeSelected)
		a.log.Info("Active provider selected", map[string]interface{}{
			logger.FieldProvider: p.Name(),
		})
		return p, c, nil
	}

	return nil, nil, errors.Configuration("no provider can access a container").
		WithDetail("candidates", len(candidates)).
		WithDetails(probeFailures)
}

// orderCandidates moves the preferred provider, if configured and
// present, to the front. The rest keep discovery order.
func (a *Access) orderCandidates(providers []provider.Provider) []provider.Provider {
	if a.preferred == "" {
		return providers
	}
	ordered := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		if p.Name() == a.preferred {
			ordered = append(ordered, p)
		}
	}
	if len(ordered) == 0 {
		a.log.Warn("Preferred provider not discovered", map[string]interface{}{
			logger.FieldProvider: a.preferred,
		})
		return providers
	}
	for _, p := range providers {
		if p.Name() != a.preferred {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// identityKey identifies a provider implementation. Providers are values
// rather than classes, so the name disambiguates distinct instances of
// the same implementation type (e.g. several Static adapters).
type identityKey struct {
	typ  reflect.Type
	name string
}

// dedupeByType removes duplicate registrations of the same implementation
// identity, keeping first occurrence order.
func dedupeByType(providers []provider.Provider) []provider.Provider {
	seen := make(map[identityKey]bool, len(providers))
	out := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		key := identityKey{typ: reflect.TypeOf(p), name: p.Name()}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
