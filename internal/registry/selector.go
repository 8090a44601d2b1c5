package registry

import (
	"fmt"
	"strings"
)

// SegmentKind pairs one address segment with the kind registered at
// that point; a PointHierarchy is the root-to-leaf walk query(point,
// PointHierarchy) assembles.
type SegmentKind struct {
	Segment string
	Kind    Kind
}

// PointHierarchy is the assembled root-to-leaf kind path for a point.
type PointHierarchy []SegmentKind

// String renders the plain segment path, ignoring kinds.
func (h PointHierarchy) String() string {
	segs := make([]string, len(h))
	for i, s := range h {
		segs[i] = s.Segment
	}
	return strings.Join(segs, ":")
}

type selSegKind int

const (
	segLiteral selSegKind = iota
	segWildcardOne
	segWildcardAny
)

type selSegment struct {
	kind       selSegKind
	text       string
	kindFilter string
}

// Selector is a hierarchical pattern over point addresses: literal
// segments, "*" (exactly one segment), a trailing "**" (zero or more
// segments), and an optional "<Kind>" suffix on the final segment
// constraining the kind of the matched point. A trailing "+" on a
// literal segment is accepted and ignored for matching purposes (it is
// subsumed by "**"'s zero-or-more semantics); it exists only so
// selector text copied from grant definitions round-trips.
type Selector struct {
	raw      string
	segments []selSegment
}

// ParseSelector parses a colon-separated selector pattern.
func ParseSelector(s string) (Selector, error) {
	if s == "" {
		return Selector{}, fmt.Errorf("registry: empty selector")
	}
	parts := strings.Split(s, ":")
	segs := make([]selSegment, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return Selector{}, fmt.Errorf("registry: selector %q has an empty segment", s)
		}
		kindFilter := ""
		if idx := strings.IndexByte(part, '<'); idx >= 0 {
			if !strings.HasSuffix(part, ">") {
				return Selector{}, fmt.Errorf("registry: selector %q has malformed kind filter", s)
			}
			kindFilter = part[idx+1 : len(part)-1]
			part = part[:idx]
		}
		switch {
		case part == "**":
			if i != len(parts)-1 {
				return Selector{}, fmt.Errorf("registry: selector %q: ** must be the final segment", s)
			}
			segs = append(segs, selSegment{kind: segWildcardAny, kindFilter: kindFilter})
		case part == "*":
			segs = append(segs, selSegment{kind: segWildcardOne, kindFilter: kindFilter})
		default:
			segs = append(segs, selSegment{kind: segLiteral, text: strings.TrimSuffix(part, "+"), kindFilter: kindFilter})
		}
	}
	return Selector{raw: s, segments: segs}, nil
}

// MustParseSelector is ParseSelector but panics on error.
func MustParseSelector(s string) Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// String returns the original pattern text.
func (s Selector) String() string { return s.raw }

// QueryRoot is the selector's longest literal (non-wildcard) prefix,
// the address under which access_grants.query_root indexes the grant
// for the upward walk toward the root during grant resolution.
func (s Selector) QueryRoot() string {
	segs := make([]string, 0, len(s.segments))
	for _, seg := range s.segments {
		if seg.kind != segLiteral {
			break
		}
		segs = append(segs, seg.text)
	}
	return strings.Join(segs, ":")
}

// Matches reports whether h satisfies the selector.
func (s Selector) Matches(h PointHierarchy) bool {
	return matchFrom(s.segments, h, 0, 0)
}

func matchFrom(pat []selSegment, h PointHierarchy, pi, hi int) bool {
	if pi == len(pat) {
		return hi == len(h)
	}
	seg := pat[pi]
	switch seg.kind {
	case segWildcardAny:
		for end := len(h); end >= hi; end-- {
			if seg.kindFilter != "" {
				if end == hi {
					continue // zero-length match has no segment to check a kind filter against
				}
				if h[end-1].Kind.Base != seg.kindFilter {
					continue
				}
			}
			if matchFrom(pat, h, pi+1, end) {
				return true
			}
		}
		return false
	case segWildcardOne:
		if hi >= len(h) {
			return false
		}
		if seg.kindFilter != "" && h[hi].Kind.Base != seg.kindFilter {
			return false
		}
		return matchFrom(pat, h, pi+1, hi+1)
	default:
		if hi >= len(h) || h[hi].Segment != seg.text {
			return false
		}
		if seg.kindFilter != "" && h[hi].Kind.Base != seg.kindFilter {
			return false
		}
		return matchFrom(pat, h, pi+1, hi+1)
	}
}
