// Package traversal implements the mesh's layered traversal engine:
// given an injection (a wave entering the layer stack at
// some surface), it walks the wave through its destination particle's
// declared traversal plan — Field and Shell interceptors in between,
// Gravity and Core bracketing the stack — until it reaches a
// destination layer or walks off either end, at which point it hands
// the traversal to the star router via the Exiter it was built with.
//
// The engine depends only on small interfaces (RecordLookup, Exiter,
// FieldInterceptor, ShellInterceptor), the same factoring the registry
// and topology packages use, so the star router wires in the real
// registry store and driver dispatch while tests use fakes.
package traversal
