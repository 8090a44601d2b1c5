package topology

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvisioner assigns the next point under a fixed star,
// counting how many times Provision was actually invoked so tests can
// assert property 6's at-most-one-in-flight guarantee.
type countingProvisioner struct {
	star  address.Point
	calls int32
}

func (p *countingProvisioner) Provision(_ context.Context, _, _, point address.Point) (registry.Location, error) {
	atomic.AddInt32(&p.calls, 1)
	return registry.Location{Star: p.star, Host: p.star}, nil
}

func seedLocatorFixture(t *testing.T) (*registry.Memory, address.Point) {
	t.Helper()
	store := registry.NewMemory()
	ctx := context.Background()
	owner := registry.HyperUser

	require.NoError(t, store.Register(ctx, registry.Registration{Point: address.MustParsePoint("space"), Kind: registry.NewKind("Space"), Owner: owner, Strategy: registry.StrategyCommit}))
	require.NoError(t, store.Register(ctx, registry.Registration{Point: address.MustParsePoint("space:app"), Kind: registry.NewKind("App"), Owner: owner, Strategy: registry.StrategyCommit}))

	centralStar := address.MustParsePoint("STAR:c:central-0")
	require.NoError(t, store.AssignStar(ctx, address.MustParsePoint("space"), centralStar))
	require.NoError(t, store.AssignHost(ctx, address.MustParsePoint("space"), centralStar))

	return store, centralStar
}

// TestLocatorProvisionsUnlocatedParticle grounds scenario
// E4: registering a point without a location, then locating it,
// issues a Provision request to the parent's owning star and installs
// the returned location.
func TestLocatorProvisionsUnlocatedParticle(t *testing.T) {
	store, centralStar := seedLocatorFixture(t)
	ctx := context.Background()

	prov := &countingProvisioner{star: centralStar}
	locator := NewSmartLocator(store, prov, address.MustParsePoint("STAR:c:root-0"))

	loc, err := locator.Locate(ctx, address.MustParsePoint("space:app"))
	require.NoError(t, err)
	assert.True(t, loc.Star.Equal(centralStar))
	assert.Equal(t, int32(1), atomic.LoadInt32(&prov.calls))

	rec, err := store.Record(ctx, address.MustParsePoint("space:app"))
	require.NoError(t, err)
	assert.True(t, rec.Location.Provisioned())
}

// TestLocatorIsIdempotentUnderConcurrency grounds property 6:
// concurrent Locate calls for the same point yield the same star and
// produce only one Provision call.
func TestLocatorIsIdempotentUnderConcurrency(t *testing.T) {
	store, centralStar := seedLocatorFixture(t)
	ctx := context.Background()

	prov := &countingProvisioner{star: centralStar}
	locator := NewSmartLocator(store, prov, address.MustParsePoint("STAR:c:root-0"))

	const n = 20
	results := make([]registry.Location, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			loc, err := locator.Locate(ctx, address.MustParsePoint("space:app"))
			assert.NoError(t, err)
			results[i] = loc
		}(i)
	}
	wg.Wait()

	for _, loc := range results {
		assert.True(t, loc.Star.Equal(centralStar))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&prov.calls), "only one provision should reach the driver for the same point")
}

// TestLocatorAlreadyLocatedSkipsProvisioning grounds the first half of
// SmartLocator's fetch-or-provision rule: an already-located record
// never reaches the provisioner.
func TestLocatorAlreadyLocatedSkipsProvisioning(t *testing.T) {
	store, centralStar := seedLocatorFixture(t)
	ctx := context.Background()

	otherStar := address.MustParsePoint("STAR:c:other-0")
	require.NoError(t, store.AssignStar(ctx, address.MustParsePoint("space:app"), otherStar))
	require.NoError(t, store.AssignHost(ctx, address.MustParsePoint("space:app"), otherStar))

	prov := &countingProvisioner{star: centralStar}
	locator := NewSmartLocator(store, prov, address.MustParsePoint("STAR:c:root-0"))

	loc, err := locator.Locate(ctx, address.MustParsePoint("space:app"))
	require.NoError(t, err)
	assert.True(t, loc.Star.Equal(otherStar))
	assert.Equal(t, int32(0), atomic.LoadInt32(&prov.calls))
}

func TestLocatorUnregisteredPointFails(t *testing.T) {
	store, _ := seedLocatorFixture(t)
	_, err := NewSmartLocator(store, &countingProvisioner{}, address.MustParsePoint("STAR:c:root-0")).
		Locate(context.Background(), address.MustParsePoint("space:missing"))
	assert.ErrorIs(t, err, registry.ErrNotFound)
}
