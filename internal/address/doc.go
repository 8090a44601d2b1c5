// Package address implements Starlane's hierarchical addressing scheme:
// points (addresses), layer-tagged surfaces, and star keys.
//
// # Overview
//
// Every particle in the mesh is named by a Point: an ordered sequence of
// textual segments rooted at a single root ("ROOT"). Points are
// hierarchical — a point other than root always has a parent, and
// (parent, last segment) is unique across the whole registry. Two derived
// forms travel on the wire:
//
//   - Surface: a Point plus a Layer tag (Gravity, Field, Shell, Core,
//     Portal, Host). A surface names not just a particle but the layer at
//     which a wave enters or leaves it.
//   - StarKey: a structured identifier for a star, itself addressable as
//     a point under the reserved "STAR" space.
//
// # Segment grammar
//
// A point's textual form is segments joined by ":", e.g.
// "space:app:mechtron". Segments must be non-empty and may not contain
// ":". The root point renders as "ROOT" and has zero segments.
//
// # Thread safety
//
// Point, Surface, and StarKey are immutable value types; once
// constructed they may be shared and compared freely across goroutines.
package address
