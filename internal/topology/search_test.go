package topology

import (
	"context"
	"testing"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLink is a synchronous, in-process stand-in for a lane: it
// delivers a search or result directly into the peer Bounce engine on
// the other end, asynchronously so Initiate's blocking wait never
// deadlocks against a peer that recurses back into the same call
// stack.
type fakeLink struct {
	id   string
	peer *Bounce
	back *Bounce
}

func (l *fakeLink) ID() string { return l.id }

func (l *fakeLink) SendSearch(ctx context.Context, frame SearchFrame) error {
	go func() {
		_ = l.peer.HandleSearch(ctx, frame, &fakeLink{id: l.id, peer: l.back, back: l.peer})
	}()
	return nil
}

func (l *fakeLink) SendResult(ctx context.Context, result SearchResult) error {
	go func() {
		_ = l.peer.HandleResult(ctx, result, &fakeLink{id: l.id, peer: l.back, back: l.peer})
	}()
	return nil
}

// star is a test fixture pairing a Bounce engine with the mutable
// peers map its peers() closure reads.
type star struct {
	key    address.StarKey
	kind   string
	bounce *Bounce
	peers  map[string]Peer
}

func newStar(key address.StarKey, kind string, forwarder bool, cache *GoldenPathCache) *star {
	s := &star{key: key, kind: kind, peers: make(map[string]Peer)}
	s.bounce = NewBounce(key, forwarder, func() map[string]Peer { return s.peers }, func(p Pattern) bool {
		return p.Matches(key, kind)
	}, cache, nil)
	return s
}

// link connects two stars bidirectionally under the same lane id.
func link(a, b *star, laneID string) {
	a.peers[laneID] = &fakeLink{id: laneID, peer: b.bounce, back: a.bounce}
	b.peers[laneID] = &fakeLink{id: laneID, peer: a.bounce, back: b.bounce}
}

func TestBounceDirectNeighborHit(t *testing.T) {
	cache := NewGoldenPathCache()
	a := newStar(address.NewStarKey("c", "a", 0), "Relay", true, cache)
	b := newStar(address.NewStarKey("c", "b", 0), "Relay", true, cache)
	link(a, b, "ab")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := a.bounce.Initiate(ctx, ForKey(b.key), 16)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.True(t, result.Hits[0].Star.Equal(b.key))
	assert.Equal(t, 1, result.Hits[0].Hops)
}

func TestBounceMultiHopRelayCollapsesMinimum(t *testing.T) {
	cache := NewGoldenPathCache()
	a := newStar(address.NewStarKey("c", "a", 0), "Relay", true, cache)
	b := newStar(address.NewStarKey("c", "b", 0), "Relay", true, cache)
	cc := newStar(address.NewStarKey("c", "c", 0), "Leaf", false, cache)
	link(a, b, "ab")
	link(b, cc, "bc")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := a.bounce.Initiate(ctx, ForKey(cc.key), 16)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.True(t, result.Hits[0].Star.Equal(cc.key))
	assert.Equal(t, 2, result.Hits[0].Hops)

	lane, hops, ok := cache.BestLane(cc.key)
	require.True(t, ok)
	assert.Equal(t, "ab", lane)
	assert.Equal(t, 2, hops)
}

func TestBounceNoMatchReturnsEmptyHits(t *testing.T) {
	cache := NewGoldenPathCache()
	a := newStar(address.NewStarKey("c", "a", 0), "Relay", true, cache)
	b := newStar(address.NewStarKey("c", "b", 0), "Relay", true, cache)
	link(a, b, "ab")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := a.bounce.Initiate(ctx, ForKey(address.NewStarKey("c", "ghost", 0)), 16)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestBounceStarKindCollectsAllMatches(t *testing.T) {
	cache := NewGoldenPathCache()
	a := newStar(address.NewStarKey("c", "a", 0), "Relay", true, cache)
	b := newStar(address.NewStarKey("c", "b", 0), "Gateway", true, cache)
	cc := newStar(address.NewStarKey("c", "c", 0), "Gateway", false, cache)
	link(a, b, "ab")
	link(b, cc, "bc")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := a.bounce.Initiate(ctx, ForKind("Gateway"), 16)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 2)
}

func TestPatternSingleMatch(t *testing.T) {
	assert.True(t, ForKey(address.NewStarKey("c", "a", 0)).SingleMatch())
	assert.False(t, ForKind("Relay").SingleMatch())
}
