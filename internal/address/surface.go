package address

import (
	"fmt"
	"strconv"
	"strings"
)

// Surface identifies a particle and the layer at which a wave enters or
// leaves it. Surfaces are the addressable unit on the wire; a Point
// alone never appears there.
type Surface struct {
	Point Point
	Layer Layer
}

// NewSurface builds a surface from a point and layer.
func NewSurface(p Point, l Layer) Surface {
	return Surface{Point: p, Layer: l}
}

// WithLayer returns a copy of s addressed at a different layer of the
// same point.
func (s Surface) WithLayer(l Layer) Surface {
	return Surface{Point: s.Point, Layer: l}
}

// Equal reports whether s and other name the same point at the same
// layer.
func (s Surface) Equal(other Surface) bool {
	return s.Layer == other.Layer && s.Point.Equal(other.Point)
}

// String renders "point@layer".
func (s Surface) String() string {
	return fmt.Sprintf("%s@%s", s.Point, s.Layer)
}

// starKeySpace is the reserved root segment under which star keys are
// addressed as points.
const starKeySpace = "STAR"

// globalExecutorSegment names the well-known global point that the
// traversal engine's direction rule special-cases: a wave addressed
// here always walks outward toward the fabric rather than inward,
// regardless of the layer it entered traversal on.
const globalExecutorSegment = "GLOBAL_EXECUTOR"

// GlobalExecutor returns the well-known point addressing the mesh-wide
// global executor.
func GlobalExecutor() Point {
	return Root().Child(globalExecutorSegment)
}

// IsGlobalExecutor reports whether p names the global executor point.
func (p Point) IsGlobalExecutor() bool {
	return p.Equal(GlobalExecutor())
}

// StarKey is a structured identifier for a star. It is addressable as a
// point under the reserved STAR space, so stars can be named as
// particles for search and registry purposes.
type StarKey struct {
	// Constellation groups stars that share a registry.
	Constellation string
	// Name disambiguates stars within a constellation.
	Name string
	// Index distinguishes multiple instances of the same named star
	// kind within a constellation (e.g. replicated gateways).
	Index uint16
}

// NewStarKey builds a star key.
func NewStarKey(constellation, name string, index uint16) StarKey {
	return StarKey{Constellation: constellation, Name: name, Index: index}
}

// Point renders k as an address under the reserved STAR space.
func (k StarKey) Point() Point {
	return Root().Child(starKeySpace).Child(k.Constellation).Child(fmt.Sprintf("%s-%d", k.Name, k.Index))
}

// String renders k's canonical textual form.
func (k StarKey) String() string {
	return fmt.Sprintf("%s::%s-%d", k.Constellation, k.Name, k.Index)
}

// Equal reports whether k and other name the same star.
func (k StarKey) Equal(other StarKey) bool {
	return k.Constellation == other.Constellation && k.Name == other.Name && k.Index == other.Index
}

// Less implements the deterministic, arbitrary tiebreak order used by
// golden-path caches and search result collapsing: lexicographic by
// constellation, then name, then index.
func (k StarKey) Less(other StarKey) bool {
	if k.Constellation != other.Constellation {
		return k.Constellation < other.Constellation
	}
	if k.Name != other.Name {
		return k.Name < other.Name
	}
	return k.Index < other.Index
}

// ParseStarKeyFromPoint recovers the StarKey a point names, if it lies
// under the reserved STAR space (the inverse of StarKey.Point). Points
// outside that space, or malformed within it, report false.
func ParseStarKeyFromPoint(p Point) (StarKey, bool) {
	segs := p.Segments()
	if len(segs) != 3 || segs[0] != starKeySpace {
		return StarKey{}, false
	}
	constellation := segs[1]
	last := segs[2]
	dash := strings.LastIndexByte(last, '-')
	if dash < 0 {
		return StarKey{}, false
	}
	name := last[:dash]
	index, err := strconv.ParseUint(last[dash+1:], 10, 16)
	if err != nil {
		return StarKey{}, false
	}
	return StarKey{Constellation: constellation, Name: name, Index: uint16(index)}, true
}
