// Package star implements the per-star message pump: the router that
// ties together the registry, topology, hyperway, and traversal
// packages into one running star.
//
// A Star owns a single unbounded command queue, drained by one
// goroutine in Run. Everything else — a lane delivering a Hop, a
// particle emitting a wave, a completed traversal walking off the
// Gravity end of its plan — reaches the router by pushing a command
// onto that queue rather than calling router methods directly, so the
// router's own state (adjacency, the golden-path cache, pending
// replies) is only ever touched from one goroutine.
package star
