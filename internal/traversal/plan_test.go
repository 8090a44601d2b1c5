package traversal

import (
	"testing"

	"github.com/dreamware/starlane/internal/address"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlanLayers(t *testing.T) {
	p := DefaultPlan()
	assert.True(t, p.Has(address.LayerGravity))
	assert.True(t, p.Has(address.LayerField))
	assert.True(t, p.Has(address.LayerShell))
	assert.True(t, p.Has(address.LayerCore))
	assert.False(t, p.Has(address.LayerPortal))
	assert.True(t, p.Interceptable(address.LayerField))
	assert.True(t, p.Interceptable(address.LayerShell))
	assert.False(t, p.Interceptable(address.LayerGravity))
}

func TestHostedPlanExtendsStack(t *testing.T) {
	p := HostedPlan()
	assert.True(t, p.Has(address.LayerPortal))
	assert.True(t, p.Has(address.LayerHost))
	assert.False(t, p.Interceptable(address.LayerPortal), "extended layers are boundary-only until explicitly marked")
}

func TestPlanNextWalksCoreThenFabric(t *testing.T) {
	p := DefaultPlan()

	next, ok := p.Next(address.LayerGravity, DirectionCore)
	require.True(t, ok)
	assert.Equal(t, address.LayerField, next)

	next, ok = p.Next(address.LayerCore, DirectionCore)
	assert.False(t, ok, "Core is the end of the default stack in the Core direction")

	next, ok = p.Next(address.LayerGravity, DirectionFabric)
	assert.False(t, ok, "Gravity is the end of the stack in the Fabric direction")

	next, ok = p.Next(address.LayerShell, DirectionFabric)
	require.True(t, ok)
	assert.Equal(t, address.LayerField, next)
}

func TestPlanMarkInterceptableDoesNotMutateOriginal(t *testing.T) {
	base := HostedPlan()
	marked := base.MarkInterceptable(address.LayerPortal)

	assert.False(t, base.Interceptable(address.LayerPortal))
	assert.True(t, marked.Interceptable(address.LayerPortal))
}

func TestDirectionBetween(t *testing.T) {
	dir, ok := directionBetween(address.LayerShell, address.LayerCore)
	require.True(t, ok)
	assert.Equal(t, DirectionCore, dir)

	dir, ok = directionBetween(address.LayerCore, address.LayerField)
	require.True(t, ok)
	assert.Equal(t, DirectionFabric, dir)

	_, ok = directionBetween(address.LayerShell, address.LayerShell)
	assert.False(t, ok)
}
