// Package bootstrap assembles a ready-to-use container access runtime:
// it loads configuration, initializes logging and optional telemetry,
// and builds an accessor wired to the process-wide provider registry.
//
// Embedding applications that want finer control can skip this package
// and compose config, logger, observability, and access directly.
package bootstrap
