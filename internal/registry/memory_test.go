package registry

import (
	"context"
	"testing"

	"github.com/dreamware/starlane/internal/address"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerChain(t *testing.T, store Store, owner address.Point, points ...string) {
	t.Helper()
	for _, p := range points {
		pt := address.MustParsePoint(p)
		require.NoError(t, store.Register(context.Background(), Registration{
			Point: pt, Kind: NewKind("Thing"), Owner: owner, Strategy: StrategyCommit,
		}))
	}
}

func TestMemoryRegisterRejectsOrphan(t *testing.T) {
	m := NewMemory()
	err := m.Register(context.Background(), Registration{
		Point: address.MustParsePoint("space:app"), Kind: NewKind("App"), Strategy: StrategyCommit,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRegisterStrategies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Register(ctx, Registration{Point: address.MustParsePoint("space"), Kind: NewKind("Space"), Strategy: StrategyCommit}))

	err := m.Register(ctx, Registration{Point: address.MustParsePoint("space"), Kind: NewKind("Space"), Strategy: StrategyCommit})
	assert.ErrorIs(t, err, ErrDupe)

	require.NoError(t, m.Register(ctx, Registration{Point: address.MustParsePoint("space"), Kind: NewKind("Space"), Strategy: StrategyEnsure}))

	owner := address.MustParsePoint("space")
	require.NoError(t, m.Register(ctx, Registration{Point: address.MustParsePoint("space"), Kind: NewKind("Renamed"), Owner: owner, Strategy: StrategyOverride}))
	rec, err := m.Record(ctx, address.MustParsePoint("space"))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rec.Kind.Base)
}

func TestMemoryStatusTransitions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	registerChain(t, m, address.Root(), "space")

	require.NoError(t, m.SetStatus(ctx, address.MustParsePoint("space"), StatusPending))
	require.NoError(t, m.SetStatus(ctx, address.MustParsePoint("space"), StatusInit))
	require.NoError(t, m.SetStatus(ctx, address.MustParsePoint("space"), StatusReady))
	require.NoError(t, m.SetStatus(ctx, address.MustParsePoint("space"), StatusPanic))
	require.NoError(t, m.SetStatus(ctx, address.MustParsePoint("space"), StatusReady))

	err := m.SetStatus(ctx, address.MustParsePoint("space"), StatusPending)
	assert.Error(t, err)
}

func TestMemoryPropertiesLocking(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	registerChain(t, m, address.Root(), "space")
	pt := address.MustParsePoint("space")

	require.NoError(t, m.SetProperties(ctx, pt, []PropertyMod{SetMod("email", "a@b.com", true)}))
	err := m.SetProperties(ctx, pt, []PropertyMod{SetMod("email", "c@d.com", false)})
	assert.ErrorIs(t, err, ErrPropertyLocked)

	rec, err := m.Record(ctx, pt)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", rec.Properties["email"].Value)
}

func TestMemorySequenceIncrements(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	registerChain(t, m, address.Root(), "space")
	pt := address.MustParsePoint("space")

	n1, err := m.Sequence(ctx, pt)
	require.NoError(t, err)
	n2, err := m.Sequence(ctx, pt)
	require.NoError(t, err)
	assert.Equal(t, n1+1, n2)
}

func TestMemorySelectAndDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	registerChain(t, m, address.Root(), "space", "space:app", "space:app:users", "space:app:users:scott")

	sel := MustParseSelector("space:app:**")
	points, err := m.Select(ctx, sel)
	require.NoError(t, err)
	assert.Len(t, points, 3)

	require.NoError(t, m.Delete(ctx, MustParseSelector("space:app")))
	_, err = m.Record(ctx, address.MustParsePoint("space:app:users:scott"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Record(ctx, address.MustParsePoint("space"))
	assert.NoError(t, err)
}

func TestMemoryChownRequiresSuper(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	app := address.MustParsePoint("space:app")
	scott := address.MustParsePoint("space:users:scott")
	registerChain(t, m, HyperUser, "space", "space:app", "space:users", "space:users:scott")

	err := m.Chown(ctx, MustParseSelector("space:app"), scott, scott)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, m.Chown(ctx, MustParseSelector("space:app"), scott, HyperUser))
	rec, err := m.Record(ctx, app)
	require.NoError(t, err)
	assert.True(t, rec.Owner.Equal(scott))
}
