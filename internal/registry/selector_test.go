package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hierarchy(pairs ...string) PointHierarchy {
	h := make(PointHierarchy, 0, len(pairs))
	for _, p := range pairs {
		h = append(h, SegmentKind{Segment: p, Kind: NewKind("Thing")})
	}
	return h
}

func TestSelectorLiteralMatch(t *testing.T) {
	sel, err := ParseSelector("localhost:users:superuser")
	require.NoError(t, err)
	assert.True(t, sel.Matches(hierarchy("localhost", "users", "superuser")))
	assert.False(t, sel.Matches(hierarchy("localhost", "users", "scott")))
	assert.False(t, sel.Matches(hierarchy("localhost", "users")))
}

func TestSelectorDoubleWildcardMatchesSelfAndDescendants(t *testing.T) {
	sel, err := ParseSelector("localhost:app:**")
	require.NoError(t, err)
	assert.True(t, sel.Matches(hierarchy("localhost", "app")))
	assert.True(t, sel.Matches(hierarchy("localhost", "app", "users")))
	assert.True(t, sel.Matches(hierarchy("localhost", "app", "users", "scott")))
	assert.False(t, sel.Matches(hierarchy("localhost", "other")))
}

func TestSelectorPlusSuffixIgnoredForMatching(t *testing.T) {
	sel, err := ParseSelector("localhost:app+:**")
	require.NoError(t, err)
	assert.Equal(t, "localhost:app", sel.QueryRoot())
	assert.True(t, sel.Matches(hierarchy("localhost", "app")))
}

func TestSelectorKindFilter(t *testing.T) {
	sel, err := ParseSelector("localhost:app:users:**<User>")
	require.NoError(t, err)

	h := PointHierarchy{
		{Segment: "localhost", Kind: NewKind("Space")},
		{Segment: "app", Kind: NewKind("App")},
		{Segment: "users", Kind: NewKind("UserBase")},
		{Segment: "scott", Kind: NewKind("User")},
	}
	assert.True(t, sel.Matches(h))

	hWrongKind := PointHierarchy{
		{Segment: "localhost", Kind: NewKind("Space")},
		{Segment: "app", Kind: NewKind("App")},
		{Segment: "users", Kind: NewKind("UserBase")},
		{Segment: "mechtron", Kind: NewKind("Mechtron")},
	}
	assert.False(t, sel.Matches(hWrongKind))
}

func TestSelectorQueryRootStopsAtWildcard(t *testing.T) {
	sel, err := ParseSelector("localhost:app:*:**")
	require.NoError(t, err)
	assert.Equal(t, "localhost:app", sel.QueryRoot())
}
