package star

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/hyperway"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/topology"
	"github.com/dreamware/starlane/internal/traversal"
	"github.com/dreamware/starlane/internal/wave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDrivers is a fake Drivers that records every traversal
// handed to it, standing in for internal/driver in router tests.
type recordingDrivers struct {
	mu   sync.Mutex
	trav []*traversal.Traversal
}

func (d *recordingDrivers) Deliver(_ context.Context, trav *traversal.Traversal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trav = append(d.trav, trav)
	return nil
}

func (d *recordingDrivers) delivered() []*traversal.Traversal {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*traversal.Traversal, len(d.trav))
	copy(out, d.trav)
	return out
}

// fakeEndpoint is a hyperway.Endpoint backed by plain channels, standing
// in for a real lane in router tests that exercise the to-hyperway
// path without a TLS-framed transport.
type fakeEndpoint struct {
	stub hyperway.Stub
	in   chan wave.UltraWave
	out  chan wave.UltraWave
	once sync.Once
}

func newFakeEndpoint(stub hyperway.Stub) *fakeEndpoint {
	return &fakeEndpoint{stub: stub, in: make(chan wave.UltraWave, 8), out: make(chan wave.UltraWave, 8)}
}

func (e *fakeEndpoint) Stub() hyperway.Stub            { return e.stub }
func (e *fakeEndpoint) Inbound() <-chan wave.UltraWave { return e.in }
func (e *fakeEndpoint) Outbound() chan<- wave.UltraWave { return e.out }
func (e *fakeEndpoint) Terminate()                      { e.once.Do(func() { close(e.in) }) }

func newTestStar(t *testing.T, key address.StarKey, isForwarder bool, store registry.Store, drivers Drivers) (*Star, *topology.Adjacency, *hyperway.Interchange) {
	t.Helper()
	adjacency := topology.NewAdjacency()
	cache := topology.NewGoldenPathCache()
	interchange := hyperway.NewInterchange(nil)
	s := New(
		Config{Self: key, Kind: "Space", IsForwarder: isForwarder},
		store,
		adjacency,
		cache,
		interchange,
		drivers,
		nil,
		PlanForKind,
		nil,
		nil,
		nil,
	)
	return s, adjacency, interchange
}

func runStar(t *testing.T, s *Star) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("star did not shut down")
		}
	})
	return cancel
}

func registerParticle(t *testing.T, store registry.Store, point address.Point, owner address.Point) {
	t.Helper()
	for _, ancestor := range point.Ancestry()[1:] {
		require.NoError(t, store.Register(context.Background(), registry.Registration{
			Point:    ancestor,
			Kind:     registry.NewKind("Space"),
			Owner:    owner,
			Strategy: registry.StrategyEnsure,
			Status:   registry.StatusReady,
		}))
	}
	err := store.Register(context.Background(), registry.Registration{
		Point:    point,
		Kind:     registry.NewKind("Mechtron"),
		Owner:    owner,
		Strategy: registry.StrategyCommit,
		Status:   registry.StatusReady,
	})
	require.NoError(t, err)
}

// TestStarDeliversLocallyOwnedParticle grounds the to-gravity path for
// a wave whose recipient is provisioned on this very star: it should
// traverse straight through to the drivers without ever touching the
// hyperway.
func TestStarDeliversLocallyOwnedParticle(t *testing.T) {
	self := address.NewStarKey("alpha", "core", 0)
	store := registry.NewMemory()
	target := address.MustParsePoint("space:app:mechtron")
	registerParticle(t, store, target, self.Point())
	require.NoError(t, store.AssignStar(context.Background(), target, self.Point()))
	require.NoError(t, store.AssignHost(context.Background(), target, self.Point()))

	drivers := &recordingDrivers{}
	s, _, _ := newTestStar(t, self, false, store, drivers)
	runStar(t, s)

	w := wave.NewSignal(
		address.NewSurface(address.MustParsePoint("space:app:other"), address.LayerGravity),
		address.NewSurface(target, address.LayerGravity),
		"Test",
		wave.Text("hello"),
	)
	s.ToGravity(w)

	require.Eventually(t, func() bool { return len(drivers.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, target.String(), drivers.delivered()[0].Wave.To.Surfaces[0].Point.String())
}

// TestStarForwardsToDirectlyAdjacentStar grounds the to-hyperway
// routing rule's first case: a transport bound for an immediately
// adjacent star goes straight out that star's mounted endpoint as a
// freshly wrapped Hop, without a search.
func TestStarForwardsToDirectlyAdjacentStar(t *testing.T) {
	self := address.NewStarKey("alpha", "core", 0)
	peer := address.NewStarKey("alpha", "edge", 0)
	store := registry.NewMemory()
	target := address.MustParsePoint("space:app:mechtron")
	registerParticle(t, store, target, peer.Point())
	require.NoError(t, store.AssignStar(context.Background(), target, peer.Point()))
	require.NoError(t, store.AssignHost(context.Background(), target, peer.Point()))

	drivers := &recordingDrivers{}
	s, adjacency, interchange := newTestStar(t, self, true, store, drivers)

	stub := hyperway.Stub{RemoteSurface: address.NewSurface(peer.Point(), address.LayerCore), Agent: "test"}
	ep := newFakeEndpoint(stub)
	require.NoError(t, interchange.Mount(ep, false))
	adjacency.Set(peer, topology.AdjacencyEntry{LaneID: stub.Key(), Forwarder: true})

	runStar(t, s)

	w := wave.NewSignal(
		address.NewSurface(address.MustParsePoint("space:app:other"), address.LayerGravity),
		address.NewSurface(target, address.LayerGravity),
		"Test",
		wave.Text("hello"),
	)
	s.ToGravity(w)

	select {
	case hop := <-ep.out:
		assert.Equal(t, wave.KindSignal, hop.Kind)
		assert.Equal(t, "Hop", hop.Method)
		transport, err := hop.Unwrap()
		require.NoError(t, err)
		assert.Equal(t, "Transport", transport.Method)
		inner, err := transport.Unwrap()
		require.NoError(t, err)
		assert.Equal(t, target.String(), inner.To.Surfaces[0].Point.String())
	case <-time.After(time.Second):
		t.Fatal("no hop delivered to adjacent peer's outbound channel")
	}
}

// TestStarLoopsBackASelfAddressedHop grounds the self-addressed
// loopback decision recorded in DESIGN.md: a transport addressed to
// this star's own point, arriving at to-hyperway (e.g. shard routing a
// wave this star itself owns), re-enters from-hyperway directly
// instead of bouncing through the interchange.
func TestStarLoopsBackASelfAddressedHop(t *testing.T) {
	self := address.NewStarKey("alpha", "core", 0)
	store := registry.NewMemory()
	target := address.MustParsePoint("space:app:mechtron")
	registerParticle(t, store, target, self.Point())
	require.NoError(t, store.AssignStar(context.Background(), target, self.Point()))
	require.NoError(t, store.AssignHost(context.Background(), target, self.Point()))

	drivers := &recordingDrivers{}
	s, _, _ := newTestStar(t, self, false, store, drivers)
	runStar(t, s)

	inner := wave.NewSignal(
		address.NewSurface(address.MustParsePoint("space:app:other"), address.LayerGravity),
		address.NewSurface(target, address.LayerGravity),
		"Test",
		wave.Text("hello"),
	)
	transport, err := inner.Wrap(address.NewSurface(self.Point(), address.LayerCore), address.NewSurface(self.Point(), address.LayerCore), "Transport")
	require.NoError(t, err)
	s.ToHyperway(transport)

	require.Eventually(t, func() bool { return len(drivers.delivered()) == 1 }, time.Second, 5*time.Millisecond)
}

// TestStarProvisionsLocallyOwnedParticle grounds the placement
// decision recorded in DESIGN.md: a star deciding placement for a
// particle whose parent it owns assigns the particle to itself.
func TestStarProvisionsLocallyOwnedParticle(t *testing.T) {
	self := address.NewStarKey("alpha", "core", 0)
	store := registry.NewMemory()
	s, _, _ := newTestStar(t, self, false, store, &recordingDrivers{})

	loc, err := s.Provision(context.Background(), self.Point(), address.MustParsePoint("space:app"), address.MustParsePoint("space:app:mechtron"))
	require.NoError(t, err)
	assert.True(t, loc.Star.Equal(self.Point()))
	assert.True(t, loc.Host.Equal(self.Point()))
}

// TestLocatorProvisionsThroughStar exercises the full
// topology.SmartLocator -> Star.Provision -> registry.Store round trip
// for a particle whose parent this star already owns, confirming the
// locator's after-the-fact AssignStar/AssignHost calls land correctly
// on the location Star.Provision decided.
func TestLocatorProvisionsThroughStar(t *testing.T) {
	self := address.NewStarKey("alpha", "core", 0)
	store := registry.NewMemory()
	parent := address.MustParsePoint("space:app")
	registerParticle(t, store, parent, self.Point())
	require.NoError(t, store.AssignStar(context.Background(), parent, self.Point()))
	require.NoError(t, store.AssignHost(context.Background(), parent, self.Point()))

	child := address.MustParsePoint("space:app:mechtron")
	registerParticle(t, store, child, self.Point())

	s, _, _ := newTestStar(t, self, false, store, &recordingDrivers{})
	locator := topology.NewSmartLocator(store, s, self.Point())

	loc, err := locator.Locate(context.Background(), child)
	require.NoError(t, err)
	assert.True(t, loc.Star.Equal(self.Point()))
}

// TestShardStarsFansOutToEveryAdjacentStar grounds the Recipients::Stars
// ripple-sharding rule: the wave fans out to every adjacent star, not
// only those flagged as forwarders, while a peer already present in
// the wave's history is skipped.
func TestShardStarsFansOutToEveryAdjacentStar(t *testing.T) {
	self := address.NewStarKey("alpha", "core", 0)
	forwarderA := address.NewStarKey("alpha", "edge-a", 0)
	forwarderB := address.NewStarKey("alpha", "edge-b", 0)
	leaf := address.NewStarKey("alpha", "leaf", 0)
	visited := address.NewStarKey("alpha", "visited", 0)

	store := registry.NewMemory()
	drivers := &recordingDrivers{}
	s, adjacency, interchange := newTestStar(t, self, true, store, drivers)

	endpoints := make(map[address.StarKey]*fakeEndpoint)
	for _, peer := range []struct {
		key       address.StarKey
		forwarder bool
	}{
		{forwarderA, true},
		{forwarderB, true},
		{leaf, false},
		{visited, true},
	} {
		stub := hyperway.Stub{RemoteSurface: address.NewSurface(peer.key.Point(), address.LayerCore), Agent: peer.key.String()}
		ep := newFakeEndpoint(stub)
		require.NoError(t, interchange.Mount(ep, false))
		adjacency.Set(peer.key, topology.AdjacencyEntry{Star: peer.key, LaneID: stub.Key(), Forwarder: peer.forwarder})
		endpoints[peer.key] = ep
	}

	runStar(t, s)

	w := wave.NewRipple(
		address.NewSurface(address.MustParsePoint("space:app:other"), address.LayerGravity),
		wave.ToStars(),
		"Announce",
		wave.Text("hello"),
	)
	w.History = w.History.Add(visited)
	s.ToGravity(w)

	received := make(map[address.StarKey]bool)
	for key, ep := range endpoints {
		select {
		case <-ep.out:
			received[key] = true
		case <-time.After(200 * time.Millisecond):
		}
	}

	assert.Len(t, received, 3)
	assert.True(t, received[forwarderA])
	assert.True(t, received[forwarderB])
	assert.True(t, received[leaf])
	assert.False(t, received[visited])
}

func TestCommandLabelCoversEveryCommandType(t *testing.T) {
	cases := []struct {
		cmd   command
		label string
	}{
		{cmdFromHyperway{}, "from_hyperway"},
		{cmdToHyperway{}, "to_hyperway"},
		{cmdToGravity{}, "to_gravity"},
		{cmdShard{}, "shard"},
		{cmdWrangle{}, "wrangle"},
	}
	for _, c := range cases {
		assert.Equal(t, c.label, commandLabel(c.cmd))
	}
}
