// Package registry is the authoritative relational store of particles,
// their properties, and the access grants that govern them. It backs
// location resolution (internal/topology) and the layer engine's
// permission checks (internal/traversal).
//
// Store is the interface every backing implementation satisfies; memory.go
// provides an in-memory implementation used by unit tests and the
// integration harness, postgres.go a pgxpool-backed implementation for a
// real deployment. Both share the same access-evaluation algorithm
// (access_eval.go) and selector matcher (selector.go), since those are pure
// functions of already-fetched rows rather than SQL.
package registry
