package address

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPoint is returned when a textual point fails to parse.
var ErrInvalidPoint = errors.New("address: invalid point")

// RootSegment is the textual form of the root point.
const RootSegment = "ROOT"

// separator joins segments in a point's textual rendering.
const separator = ":"

// Point is an ordered sequence of segments rooted at a single root.
// The zero value is the root point.
type Point struct {
	segments []string
}

// Root returns the root point.
func Root() Point {
	return Point{}
}

// ParsePoint parses a point's textual form ("space:app:mechtron" or
// "ROOT"). Segments must be non-empty.
func ParsePoint(s string) (Point, error) {
	if s == "" {
		return Point{}, fmt.Errorf("%w: empty string", ErrInvalidPoint)
	}
	if s == RootSegment {
		return Root(), nil
	}
	parts := strings.Split(s, separator)
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return Point{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPoint, s)
		}
		segs = append(segs, p)
	}
	return Point{segments: segs}, nil
}

// MustParsePoint is ParsePoint but panics on error; intended for tests
// and compile-time constant addresses.
func MustParsePoint(s string) Point {
	p, err := ParsePoint(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IsRoot reports whether p is the root point.
func (p Point) IsRoot() bool {
	return len(p.segments) == 0
}

// Segments returns a copy of p's segments, root-first.
func (p Point) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// LastSegment returns p's final segment and true, or "" and false if p
// is root.
func (p Point) LastSegment() (string, bool) {
	if p.IsRoot() {
		return "", false
	}
	return p.segments[len(p.segments)-1], true
}

// Parent returns p's parent and true, or the zero Point and false if p
// is root (root has no parent).
func (p Point) Parent() (Point, bool) {
	if p.IsRoot() {
		return Point{}, false
	}
	parent := make([]string, len(p.segments)-1)
	copy(parent, p.segments[:len(p.segments)-1])
	return Point{segments: parent}, true
}

// Child appends segment to p and returns the resulting point.
func (p Point) Child(segment string) Point {
	child := make([]string, len(p.segments)+1)
	copy(child, p.segments)
	child[len(p.segments)] = segment
	return Point{segments: child}
}

// IsAncestorOf reports whether p is a proper ancestor of other (p is a
// strict prefix of other's segments).
func (p Point) IsAncestorOf(other Point) bool {
	if len(p.segments) >= len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		if other.segments[i] != seg {
			return false
		}
	}
	return true
}

// IsDescendantOf reports whether p is a proper descendant of other.
func (p Point) IsDescendantOf(other Point) bool {
	return other.IsAncestorOf(p)
}

// Depth returns the number of segments in p (0 for root).
func (p Point) Depth() int {
	return len(p.segments)
}

// Ancestry returns p's ancestors from root to p's parent, inclusive of
// root, exclusive of p itself.
func (p Point) Ancestry() []Point {
	out := make([]Point, 0, len(p.segments))
	cur := Root()
	out = append(out, cur)
	for i := 0; i < len(p.segments)-1; i++ {
		cur = cur.Child(p.segments[i])
		out = append(out, cur)
	}
	return out
}

// String renders p in its textual form.
func (p Point) String() string {
	if p.IsRoot() {
		return RootSegment
	}
	return strings.Join(p.segments, separator)
}

// Equal reports whether p and other name the same point.
func (p Point) Equal(other Point) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		if other.segments[i] != s {
			return false
		}
	}
	return true
}
