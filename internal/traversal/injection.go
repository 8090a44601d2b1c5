package traversal

import (
	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/wave"
)

// Injection is the engine's entry point: a wave entering local layer
// traversal at some surface.
type Injection struct {
	// InjectorSurface is the surface the wave is entering traversal
	// at — a Hop's own Gravity surface for an arriving wave, or
	// whichever layer a Field/Shell interceptor re-injects from.
	InjectorSurface address.Surface
	Wave            wave.UltraWave
	// FromGravity marks a wave that just arrived from the fabric
	// (forces DirectionCore toward the addressed layer).
	FromGravity bool
	// ForcedDirection overrides direction computation entirely, used
	// when the router re-injects a wave it has already decided the
	// direction for (e.g. a reflection built mid-traversal).
	ForcedDirection *Direction
}
