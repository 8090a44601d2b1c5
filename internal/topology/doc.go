// Package topology implements the mesh's star-to-star discovery and
// particle-location services: a bounded flood search
// ("Bounce") for reaching peers by key or kind, a golden-path cache
// recording the cheapest known lane toward each discovered star, a
// read-mostly adjacency map of direct peers, and a SmartLocator that
// resolves and provisions particle locations against a registry.Store.
//
// Every piece here is expressed against small interfaces (Peer,
// Provisioner) rather than concrete lane or driver types, the same way
// internal/registry's access_eval.go factors its algorithm away from
// any one backing store: the star router (internal/star) wires the
// real lanes and drivers in; tests here exercise the algorithms with
// fakes.
package topology
