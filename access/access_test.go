package access

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/skillsenselab/containerkit/errors"
	"github.com/skillsenselab/containerkit/provider"
)

// fakeContainer implements provider.Container for testing.
type fakeContainer struct {
	name        string
	shutdowns   int32
	shutdownErr error
}

func (c *fakeContainer) Shutdown(ctx context.Context) error {
	atomic.AddInt32(&c.shutdowns, 1)
	return c.shutdownErr
}

// fakeProvider implements provider.Provider with probe counting.
type fakeProvider struct {
	name      string
	container provider.Container // nil means decline
	err       error
	probes    int32
}

func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) Container() (provider.Container, error) {
	atomic.AddInt32(&p.probes, 1)
	if p.err != nil {
		return nil, p.err
	}
	return p.container, nil
}

// countingLookup implements provider.Lookup with invocation counting.
type countingLookup struct {
	calls     int32
	providers []provider.Provider
	err       error
}

func (l *countingLookup) Providers() ([]provider.Provider, error) {
	atomic.AddInt32(&l.calls, 1)
	if l.err != nil {
		return nil, l.err
	}
	return l.providers, nil
}

func newAccess(lookup provider.Lookup, opts ...Option) *Access {
	return New(append([]Option{WithLookup(lookup)}, opts...)...)
}

func TestCurrent_ResolvesFirstProvider(t *testing.T) {
	c := &fakeContainer{name: "c1"}
	lookup := &countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "alpha", container: c},
	}}

	a := newAccess(lookup)
	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != c {
		t.Error("expected the provider's container")
	}
}

// Discovery work executes exactly once regardless of how many times the
// accessor is consulted.
func TestCurrent_DiscoveryRunsOnce(t *testing.T) {
	c := &fakeContainer{}
	lookup := &countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "alpha", container: c},
	}}

	a := newAccess(lookup)
	for i := 0; i < 10; i++ {
		if _, err := a.Current(context.Background()); err != nil {
			t.Fatalf("Current call %d failed: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&lookup.calls); n != 1 {
		t.Errorf("expected 1 discovery invocation, got %d", n)
	}
}

func TestCurrent_ConcurrentFirstCallersRaceSafely(t *testing.T) {
	c := &fakeContainer{}
	lookup := &countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "alpha", container: c},
	}}
	a := newAccess(lookup)

	const callers = 100
	var wg sync.WaitGroup
	var failures int32
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := a.Current(context.Background()); err != nil {
				atomic.AddInt32(&failures, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if failures != 0 {
		t.Errorf("%d concurrent callers failed", failures)
	}
	if n := atomic.LoadInt32(&lookup.calls); n != 1 {
		t.Errorf("expected exactly 1 discovery invocation, got %d", n)
	}
}

func TestCurrent_EmptyRegistryFails(t *testing.T) {
	a := newAccess(&countingLookup{})

	_, err := a.Current(context.Background())
	if err == nil {
		t.Fatal("expected error for empty registry")
	}
	if !errors.IsConfiguration(err) {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestCurrent_EmptyRegistryDoesNotLatchFailure(t *testing.T) {
	lookup := &countingLookup{}
	a := newAccess(lookup)

	if _, err := a.Current(context.Background()); err == nil {
		t.Fatal("expected first resolution to fail")
	}

	// The environment registers a provider; a later call must succeed.
	c := &fakeContainer{}
	lookup.providers = []provider.Provider{&fakeProvider{name: "late", container: c}}

	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got != c {
		t.Error("expected the late provider's container")
	}
	if n := atomic.LoadInt32(&lookup.calls); n != 2 {
		t.Errorf("expected 2 lookup invocations across retry, got %d", n)
	}
}

func TestCurrent_LookupErrorIsWrapped(t *testing.T) {
	cause := fmt.Errorf("malformed registration")
	a := newAccess(&countingLookup{err: cause})

	_, err := a.Current(context.Background())
	if err == nil {
		t.Fatal("expected error for broken lookup")
	}
	if !errors.IsConfiguration(err) {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Unwrap() != cause {
		t.Error("expected the lookup failure preserved as cause")
	}
}

// First-fit: given [failing, viable, viable], the second candidate wins
// and the third is never probed.
func TestCurrent_FirstFitSelection(t *testing.T) {
	h := &fakeContainer{name: "H"}
	alpha := &fakeProvider{name: "alpha", err: fmt.Errorf("no container")}
	beta := &fakeProvider{name: "beta", container: h}
	gamma := &fakeProvider{name: "gamma", container: &fakeContainer{}}

	a := newAccess(&countingLookup{providers: []provider.Provider{alpha, beta, gamma}})

	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != h {
		t.Error("expected beta's container")
	}
	if atomic.LoadInt32(&gamma.probes) != 0 {
		t.Error("gamma should never be probed")
	}

	// Second call re-uses the memoized selection without re-probing alpha.
	alphaProbes := atomic.LoadInt32(&alpha.probes)
	if _, err := a.Current(context.Background()); err != nil {
		t.Fatalf("second Current failed: %v", err)
	}
	if atomic.LoadInt32(&alpha.probes) != alphaProbes {
		t.Error("alpha should not be re-probed after resolution")
	}
	if atomic.LoadInt32(&gamma.probes) != 0 {
		t.Error("gamma should still never be probed")
	}
}

func TestCurrent_DecliningProviderSkipped(t *testing.T) {
	h := &fakeContainer{}
	declining := &fakeProvider{name: "declining"} // nil container
	viable := &fakeProvider{name: "viable", container: h}

	a := newAccess(&countingLookup{providers: []provider.Provider{declining, viable}})

	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != h {
		t.Error("expected the viable provider's container")
	}
}

func TestCurrent_AllProvidersFail(t *testing.T) {
	a := newAccess(&countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "alpha", err: fmt.Errorf("boom")},
		&fakeProvider{name: "beta"}, // declines
	}})

	_, err := a.Current(context.Background())
	if err == nil {
		t.Fatal("expected error when no candidate can produce a handle")
	}
	if !errors.IsConfiguration(err) {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["alpha"] != "boom" {
		t.Errorf("expected alpha probe failure recorded, got %v", appErr.Details)
	}
	if appErr.Details["beta"] != "declined" {
		t.Errorf("expected beta decline recorded, got %v", appErr.Details)
	}
}

func TestCurrent_FailedResolutionCachesNothing(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: fmt.Errorf("boom")}
	lookup := &countingLookup{providers: []provider.Provider{broken}}
	a := newAccess(lookup)

	if _, err := a.Current(context.Background()); err == nil {
		t.Fatal("expected failure")
	}

	// Provider recovers; resolution must re-probe rather than return a
	// cached failure.
	broken.err = nil
	broken.container = &fakeContainer{}
	if _, err := a.Current(context.Background()); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}

func TestCurrent_DuplicateRegistrationsDeduplicated(t *testing.T) {
	c := &fakeContainer{}
	p := &fakeProvider{name: "alpha", container: c}

	// Same provider visible twice through the lookup.
	a := newAccess(&countingLookup{providers: []provider.Provider{p, p}})

	if _, err := a.Current(context.Background()); err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	set := a.discovered.Load()
	if set == nil {
		t.Fatal("expected discovered set cached")
	}
	if len(set.providers) != 1 {
		t.Errorf("expected 1 deduplicated candidate, got %d", len(set.providers))
	}
}

func TestCurrent_PreferredProviderProbedFirst(t *testing.T) {
	first := &fakeProvider{name: "first", container: &fakeContainer{}}
	preferredC := &fakeContainer{}
	preferred := &fakeProvider{name: "preferred", container: preferredC}

	a := newAccess(
		&countingLookup{providers: []provider.Provider{first, preferred}},
		WithPreferredProvider("preferred"),
	)

	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != preferredC {
		t.Error("expected the preferred provider's container")
	}
	if atomic.LoadInt32(&first.probes) != 0 {
		t.Error("first provider should not be probed when preferred wins")
	}
}

func TestCurrent_MissingPreferredFallsBackToOrder(t *testing.T) {
	c := &fakeContainer{}
	a := newAccess(
		&countingLookup{providers: []provider.Provider{
			&fakeProvider{name: "alpha", container: c},
		}},
		WithPreferredProvider("ghost"),
	)

	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != c {
		t.Error("expected fallback to discovery order")
	}
}

func TestSetProvider_OverridePrecedence(t *testing.T) {
	discoveredC := &fakeContainer{name: "discovered"}
	overrideC := &fakeContainer{name: "override"}
	lookup := &countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "discovered", container: discoveredC},
	}}
	a := newAccess(lookup)

	// Resolve via discovery first.
	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != discoveredC {
		t.Fatal("expected discovered container before override")
	}

	// Override set after discovery still wins for future lookups.
	if err := a.SetProvider(provider.NewStatic("override", overrideC)); err != nil {
		t.Fatalf("SetProvider failed: %v", err)
	}
	got, err = a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current after override failed: %v", err)
	}
	if got != overrideC {
		t.Error("expected override container after SetProvider")
	}
}

func TestSetProvider_SkipsDiscovery(t *testing.T) {
	lookup := &countingLookup{}
	a := newAccess(lookup)

	if err := a.SetProvider(provider.NewStatic("manual", &fakeContainer{})); err != nil {
		t.Fatalf("SetProvider failed: %v", err)
	}
	if _, err := a.Current(context.Background()); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if n := atomic.LoadInt32(&lookup.calls); n != 0 {
		t.Errorf("override must not trigger discovery, got %d invocations", n)
	}
}

func TestSetProvider_NilRejected(t *testing.T) {
	c := &fakeContainer{}
	a := newAccess(&countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "alpha", container: c},
	}})

	if _, err := a.Current(context.Background()); err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	err := a.SetProvider(nil)
	if err == nil {
		t.Fatal("expected error for nil provider")
	}
	if !errors.IsInvalidArgument(err) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}

	// Prior resolution must be untouched.
	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current after rejected override failed: %v", err)
	}
	if got != c {
		t.Error("expected previously resolved container to remain active")
	}
}

func TestSetProvider_SetOnce(t *testing.T) {
	a := newAccess(&countingLookup{})

	if err := a.SetProvider(provider.NewStatic("first", &fakeContainer{})); err != nil {
		t.Fatalf("first SetProvider failed: %v", err)
	}

	err := a.SetProvider(provider.NewStatic("second", &fakeContainer{}))
	if err == nil {
		t.Fatal("expected error for repeated override")
	}
	if !errors.IsIllegalState(err) {
		t.Errorf("expected ILLEGAL_STATE, got %v", err)
	}
}

func TestSetProvider_ReplaceAllowedByPolicy(t *testing.T) {
	secondC := &fakeContainer{}
	a := newAccess(&countingLookup{}, WithOverrideReplace())

	if err := a.SetProvider(provider.NewStatic("first", &fakeContainer{})); err != nil {
		t.Fatalf("first SetProvider failed: %v", err)
	}
	if err := a.SetProvider(provider.NewStatic("second", secondC)); err != nil {
		t.Fatalf("replacement SetProvider failed: %v", err)
	}

	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != secondC {
		t.Error("expected the replacement override's container")
	}
}

// The documented scenario: Alpha throws on produce, Beta produces H.
func TestScenario_AlphaThrowsBetaWins(t *testing.T) {
	h := &fakeContainer{name: "H"}
	alpha := &fakeProvider{name: "Alpha", err: fmt.Errorf("startup failure")}
	beta := &fakeProvider{name: "Beta", container: h}

	a := newAccess(&countingLookup{providers: []provider.Provider{alpha, beta}})

	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != h {
		t.Error("expected H from Beta")
	}

	alphaProbes := atomic.LoadInt32(&alpha.probes)
	got, err = a.Current(context.Background())
	if err != nil {
		t.Fatalf("second Current failed: %v", err)
	}
	if got != h {
		t.Error("expected H again from the cached selection")
	}
	if atomic.LoadInt32(&alpha.probes) != alphaProbes {
		t.Error("Alpha must not be re-probed on the second call")
	}
}

func TestShutdown_DelegatesToActiveContainer(t *testing.T) {
	c := &fakeContainer{}
	a := newAccess(&countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "alpha", container: c},
	}})

	if _, err := a.Current(context.Background()); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if atomic.LoadInt32(&c.shutdowns) != 1 {
		t.Errorf("expected 1 shutdown, got %d", c.shutdowns)
	}
}

func TestShutdown_NoActiveContainer(t *testing.T) {
	a := newAccess(&countingLookup{})

	err := a.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected error with no active container")
	}
	if !errors.IsIllegalState(err) {
		t.Errorf("expected ILLEGAL_STATE, got %v", err)
	}
}

func TestShutdown_SecondCallFails(t *testing.T) {
	c := &fakeContainer{}
	a := newAccess(&countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "alpha", container: c},
	}})

	if _, err := a.Current(context.Background()); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown failed: %v", err)
	}

	err := a.Shutdown(context.Background())
	if !errors.IsIllegalState(err) {
		t.Errorf("expected ILLEGAL_STATE on second shutdown, got %v", err)
	}
	if atomic.LoadInt32(&c.shutdowns) != 1 {
		t.Errorf("container must not be shut down twice, got %d", c.shutdowns)
	}
}

func TestShutdown_ManagedEnvironmentForbidden(t *testing.T) {
	c := &fakeContainer{}
	a := newAccess(
		&countingLookup{providers: []provider.Provider{
			&fakeProvider{name: "alpha", container: c},
		}},
		WithManagedShutdown(),
	)

	if _, err := a.Current(context.Background()); err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	err := a.Shutdown(context.Background())
	if !errors.IsIllegalState(err) {
		t.Errorf("expected ILLEGAL_STATE in managed environment, got %v", err)
	}
	if atomic.LoadInt32(&c.shutdowns) != 0 {
		t.Error("container must not be shut down in a managed environment")
	}
}

func TestOverrideDuringConcurrentResolution(t *testing.T) {
	c := &fakeContainer{}
	lookup := &countingLookup{providers: []provider.Provider{
		&fakeProvider{name: "discovered", container: c},
	}}
	a := newAccess(lookup)

	overrideC := &fakeContainer{}
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _ = a.Current(context.Background())
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_ = a.SetProvider(provider.NewStatic("override", overrideC))
	}()

	close(start)
	wg.Wait()

	// Whatever interleaving occurred, the override wins afterwards and
	// no caller can have observed a torn value (race detector verifies).
	got, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != overrideC {
		t.Error("expected override to win after concurrent resolution")
	}
}
