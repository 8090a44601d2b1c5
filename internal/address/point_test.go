package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePointRoot(t *testing.T) {
	p, err := ParsePoint("ROOT")
	require.NoError(t, err)
	assert.True(t, p.IsRoot())
	assert.Equal(t, "ROOT", p.String())
}

func TestParsePointSegments(t *testing.T) {
	p, err := ParsePoint("space:app:mechtron")
	require.NoError(t, err)
	assert.False(t, p.IsRoot())
	assert.Equal(t, []string{"space", "app", "mechtron"}, p.Segments())
	assert.Equal(t, "space:app:mechtron", p.String())

	last, ok := p.LastSegment()
	assert.True(t, ok)
	assert.Equal(t, "mechtron", last)
}

func TestParsePointRejectsEmptySegments(t *testing.T) {
	for _, s := range []string{"", "space::app", ":space", "space:"} {
		_, err := ParsePoint(s)
		assert.Error(t, err, "expected error for %q", s)
	}
}

func TestPointParentChild(t *testing.T) {
	root := Root()
	_, ok := root.Parent()
	assert.False(t, ok, "root has no parent")

	space := root.Child("space")
	app := space.Child("app")
	assert.Equal(t, "space:app", app.String())

	parent, ok := app.Parent()
	require.True(t, ok)
	assert.True(t, parent.Equal(space))
}

func TestPointAncestry(t *testing.T) {
	p := MustParsePoint("space:app:mechtron")
	ancestry := p.Ancestry()
	require.Len(t, ancestry, 3)
	assert.True(t, ancestry[0].IsRoot())
	assert.Equal(t, "space", ancestry[1].String())
	assert.Equal(t, "space:app", ancestry[2].String())
}

func TestPointIsAncestorOf(t *testing.T) {
	space := MustParsePoint("space")
	app := MustParsePoint("space:app")
	mechtron := MustParsePoint("space:app:mechtron")

	assert.True(t, space.IsAncestorOf(app))
	assert.True(t, space.IsAncestorOf(mechtron))
	assert.True(t, app.IsAncestorOf(mechtron))
	assert.False(t, mechtron.IsAncestorOf(app))
	assert.False(t, app.IsAncestorOf(app))

	assert.True(t, mechtron.IsDescendantOf(space))
}

func TestPointEqual(t *testing.T) {
	a := MustParsePoint("space:app")
	b := MustParsePoint("space:app")
	c := MustParsePoint("space:other")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestPointDepth(t *testing.T) {
	assert.Equal(t, 0, Root().Depth())
	assert.Equal(t, 3, MustParsePoint("space:app:mechtron").Depth())
}
