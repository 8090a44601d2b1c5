package traversal

import (
	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/wave"
)

// Traversal is a single wave's walk through one destination particle's
// layer stack, from injection to exit.
type Traversal struct {
	Wave   wave.UltraWave
	Record registry.Particle

	// InjectionLayer is the layer the wave entered traversal at,
	// fixed for the life of this traversal; used only to compute
	// direction for an intra-particle delivery.
	InjectionLayer address.Layer
	// Injector is the surface the originating Injection named, the
	// target for any reflection built while this traversal is active.
	Injector address.Surface

	Direction Direction
	// DestLayer is set when this traversal has a specific stopping
	// layer (an intra-particle delivery, or a from-gravity delivery
	// addressed at a particular layer); nil means walk until exit.
	DestLayer *address.Layer

	ToSurface address.Surface
	Point     address.Point

	// Layer is the traversal's current position, mutated as it walks
	// the plan.
	Layer address.Layer
}

// AtDestination reports whether the traversal has reached its
// configured stopping layer.
func (t *Traversal) AtDestination() bool {
	return t.DestLayer != nil && t.Layer == *t.DestLayer
}
