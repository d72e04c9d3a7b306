// Package provider defines the container-provider capability and the
// process-wide lookup mechanism used to discover implementations.
//
// A Provider is a candidate capable of granting access to a running
// container. Implementations register themselves with the package-level
// registry, typically from an init() function:
//
//	func init() {
//	    provider.Register(&weldProvider{})
//	}
//
// Consumers then blank-import the provider package and resolve the active
// provider through the access package. Custom discovery mechanisms can
// implement the Lookup interface instead of using the registry.
package provider
