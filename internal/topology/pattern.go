package topology

import (
	"fmt"

	"github.com/dreamware/starlane/internal/address"
)

// PatternKind discriminates what a search is looking for.
type PatternKind int

const (
	// PatternStarKey searches for one specific, named star. It is a
	// single-match pattern: the first hit short-circuits the search.
	PatternStarKey PatternKind = iota
	// PatternStarKind searches for any and all stars of a given kind;
	// every hit along every path is collected.
	PatternStarKind
)

// Pattern is a star-search criterion, tested by each star a StarSearch
// frame visits against itself.
type Pattern struct {
	Kind     PatternKind
	Key      address.StarKey
	StarKind string
}

// ForKey builds a single-match pattern for a specific star.
func ForKey(key address.StarKey) Pattern {
	return Pattern{Kind: PatternStarKey, Key: key}
}

// ForKind builds a multi-match pattern for any star of the given kind.
func ForKind(kind string) Pattern {
	return Pattern{Kind: PatternStarKind, StarKind: kind}
}

// SingleMatch reports whether the pattern stops at its first hit.
func (p Pattern) SingleMatch() bool {
	return p.Kind == PatternStarKey
}

// Matches tests the pattern against a star's own identity.
func (p Pattern) Matches(self address.StarKey, selfKind string) bool {
	switch p.Kind {
	case PatternStarKey:
		return p.Key.Equal(self)
	case PatternStarKind:
		return p.StarKind == selfKind
	default:
		return false
	}
}

// String renders the pattern the way the design names it: StarKey(k) or
// StarKind(k).
func (p Pattern) String() string {
	switch p.Kind {
	case PatternStarKey:
		return fmt.Sprintf("StarKey(%s)", p.Key)
	case PatternStarKind:
		return fmt.Sprintf("StarKind(%s)", p.StarKind)
	default:
		return "Pattern(?)"
	}
}

// SearchHit is one star's reported distance from the point a result is
// collapsed at.
type SearchHit struct {
	Star address.StarKey
	Hops int
}
