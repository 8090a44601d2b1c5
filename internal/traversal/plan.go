package traversal

import (
	"sort"

	"github.com/dreamware/starlane/internal/address"
)

// Plan is a particle kind's declared traversal plan:
// the ordered layers a wave walks between Gravity and Core, plus
// whatever a kind extends the stack with beyond Core (e.g. a hosted
// kind adding Portal and Host for an externally-run guest). Field and
// Shell are always present; Gravity and Core always bracket the stack.
type Plan struct {
	layers        []address.Layer
	interceptable map[address.Layer]bool
}

// NewPlan builds a plan from Gravity, Field, Shell, Core plus any
// extra layers, de-duplicated and sorted into the stack's natural
// order. Field and Shell are interceptable by default; pass extra
// interceptable layers via MarkInterceptable.
func NewPlan(extra ...address.Layer) Plan {
	set := map[address.Layer]struct{}{
		address.LayerGravity: {},
		address.LayerField:   {},
		address.LayerShell:   {},
		address.LayerCore:    {},
	}
	for _, l := range extra {
		set[l] = struct{}{}
	}
	layers := make([]address.Layer, 0, len(set))
	for l := range set {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })
	return Plan{
		layers: layers,
		interceptable: map[address.Layer]bool{
			address.LayerField: true,
			address.LayerShell: true,
		},
	}
}

// DefaultPlan is the ordinary Gravity/Field/Shell/Core stack most
// particle kinds declare.
func DefaultPlan() Plan {
	return NewPlan()
}

// HostedPlan extends the default stack with Portal and Host, for kinds
// whose Core hands traversal further down to an externally-hosted
// guest (e.g. a mechtron kind's WebAssembly host).
func HostedPlan() Plan {
	return NewPlan(address.LayerPortal, address.LayerHost)
}

// MarkInterceptable returns a copy of p with layer also treated as
// interceptable (visited the way Field/Shell are), for kinds that
// place their own logic at an extended layer.
func (p Plan) MarkInterceptable(layer address.Layer) Plan {
	next := Plan{layers: p.layers, interceptable: make(map[address.Layer]bool, len(p.interceptable)+1)}
	for l, v := range p.interceptable {
		next.interceptable[l] = v
	}
	next.interceptable[layer] = true
	return next
}

// Has reports whether layer is part of this plan's stack at all.
func (p Plan) Has(layer address.Layer) bool {
	for _, l := range p.layers {
		if l == layer {
			return true
		}
	}
	return false
}

// Interceptable reports whether a visit to layer should run this
// plan's Field/Shell-style interceptors rather than exit immediately.
func (p Plan) Interceptable(layer address.Layer) bool {
	return p.interceptable[layer]
}

// Layers returns a copy of the plan's layers in stack order
// (outermost/Gravity first).
func (p Plan) Layers() []address.Layer {
	out := make([]address.Layer, len(p.layers))
	copy(out, p.layers)
	return out
}

// Next returns the layer adjacent to current in the given direction,
// or false if current isn't part of the plan or walking dir would step
// off the end of the stack.
func (p Plan) Next(current address.Layer, dir Direction) (address.Layer, bool) {
	idx := -1
	for i, l := range p.layers {
		if l == current {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0, false
	}
	if dir == DirectionCore {
		if idx+1 >= len(p.layers) {
			return 0, false
		}
		return p.layers[idx+1], true
	}
	if idx-1 < 0 {
		return 0, false
	}
	return p.layers[idx-1], true
}
