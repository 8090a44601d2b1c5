package traversal

import "github.com/dreamware/starlane/internal/address"

// Direction names which way a traversal is currently walking the layer
// stack: toward Core (inward, into the particle) or toward Fabric
// (outward, back to the gravity/wire path).
type Direction int

const (
	// DirectionFabric walks toward Gravity; walking off that end means
	// the router should send the wave out.
	DirectionFabric Direction = iota
	// DirectionCore walks toward Core (and beyond, for kinds whose
	// plan extends further inward); walking off that end in-star is a
	// bug, not a normal exit.
	DirectionCore
)

func (d Direction) String() string {
	if d == DirectionCore {
		return "Core"
	}
	return "Fabric"
}

// directionBetween computes the direction one must walk to get from
// one layer to another, and whether a direction even applies (false
// when from and to are the same layer).
func directionBetween(from, to address.Layer) (Direction, bool) {
	switch {
	case to > from:
		return DirectionCore, true
	case to < from:
		return DirectionFabric, true
	default:
		return DirectionFabric, false
	}
}
