package star

import "github.com/dreamware/starlane/internal/wave"

// cmdFromHyperway is a Hop that arrived on some lane.
type cmdFromHyperway struct {
	hop wave.UltraWave
}

// cmdToHyperway is a transport (Core-to-Core, not yet Hop-wrapped) to
// send into the fabric.
type cmdToHyperway struct {
	transport wave.UltraWave
}

// cmdToGravity is a locally produced wave leaving a particle.
type cmdToGravity struct {
	wave wave.UltraWave
}

// cmdShard asks the router to resolve a wave's recipients to stars and
// either inject locally or forward as a transport.
type cmdShard struct {
	wave wave.UltraWave
}

// cmdWrangle triggers one round of peer discovery across every kind
// this star wrangles for.
type cmdWrangle struct{}
