// Package version exposes the build version of containerkit, set with
// -ldflags at build time and enriched from embedded VCS build info.
package version
