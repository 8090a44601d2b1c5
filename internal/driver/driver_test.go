package driver

import (
	"context"
	"testing"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/traversal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	initCalls int
	sphere    ItemSphere
	itemErr   error
}

func (d *fakeDriver) Init(context.Context) error { d.initCalls++; return nil }

func (d *fakeDriver) Item(context.Context, address.Point) (ItemSphere, error) {
	return d.sphere, d.itemErr
}

func (d *fakeDriver) Bind(context.Context) (ArtRef, error) {
	return ArtRef{Config: BindConfig{Version: "1.0.0"}}, nil
}

func TestRegistryRegisterInitializesDriverOnce(t *testing.T) {
	r := NewRegistry()
	d := &fakeDriver{sphere: ItemSphereHandler}
	require.NoError(t, r.Register(context.Background(), "Mechtron", d))
	assert.Equal(t, 1, d.initCalls)

	found, ok := r.Lookup(registry.NewKind("Mechtron"))
	require.True(t, ok)
	assert.Same(t, d, found)
}

func TestRegistryDeliverDispatchesToRegisteredKind(t *testing.T) {
	r := NewRegistry()
	d := &fakeDriver{sphere: ItemSphereRouter}
	require.NoError(t, r.Register(context.Background(), "Space", d))

	trav := &traversal.Traversal{
		Record: registry.Particle{Kind: registry.NewKind("Space")},
		Point:  address.MustParsePoint("space:app"),
	}
	assert.NoError(t, r.Deliver(context.Background(), trav))
}

func TestRegistryDeliverFailsForUnregisteredKind(t *testing.T) {
	r := NewRegistry()
	trav := &traversal.Traversal{
		Record: registry.Particle{Kind: registry.NewKind("Mechtron")},
		Point:  address.MustParsePoint("space:app:mechtron"),
	}
	err := r.Deliver(context.Background(), trav)
	assert.ErrorIs(t, err, ErrNoDriver)
}
