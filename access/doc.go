// Package access locates and caches the single active container provider
// for the process and exposes it through a stable facade.
//
// Resolution is lazy and race-free: the first caller of Current triggers
// a one-time discovery over the provider lookup mechanism, selects the
// first candidate able to produce a container handle, and memoizes the
// selection for every subsequent caller. A failed resolution caches
// nothing, so callers may retry after the environment registers a
// provider. An explicit override installed with SetProvider bypasses
// discovery entirely.
//
// # Quick start
//
//	acc := access.New()
//	c, err := acc.Current(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer acc.Shutdown(ctx)
//
// A package-level default accessor mirrors the same API for code that
// wants process-global semantics, in the manner of slog.SetDefault.
package access
