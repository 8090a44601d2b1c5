// Package driver defines the boundary between the star router and the
// kind-specific drivers that actually implement a particle's behavior.
// Concrete drivers (a Mechtron's WASM host, a Space's filesystem-style
// child management) are external collaborators; this package only
// describes the interface the router calls into, plus an in-memory
// Registry of drivers keyed by kind, used by tests and by any process
// wiring a small fixed set of kinds directly.
package driver
