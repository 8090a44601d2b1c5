package topology

import (
	"sync"
	"sync/atomic"

	"github.com/dreamware/starlane/internal/address"
)

// AdjacencyEntry describes one directly-connected peer star.
type AdjacencyEntry struct {
	// Star is the peer's own key, carried alongside the map's string
	// key so callers that need the typed form (to build a surface
	// toward the peer) don't have to parse it back out.
	Star address.StarKey
	// LaneID identifies the live lane/endpoint to this peer (a
	// hyperway.Stub.Key(), kept here as a plain string so this package
	// never needs to import hyperway).
	LaneID string
	// Forwarder reports whether this peer's kind relays searches on
	// to its own peers.
	Forwarder bool
}

// Adjacency is the star's table of direct peers, keyed by StarKey.
// It is read-mostly, written as lanes are admitted and unmounted (Set
// and Remove); a completed Wrangle does not write to it. Readers see a
// consistent snapshot via
// copy-on-write, following the same pattern as ShardRegistry's
// defensive copies under a map+mutex, generalized here to a
// lock-free atomic snapshot swap since adjacency reads are on every
// routing decision.
type Adjacency struct {
	mu       sync.Mutex // serializes writers; readers go through snapshot lock-free
	snapshot atomic.Pointer[map[string]AdjacencyEntry]
}

// NewAdjacency builds an empty adjacency table.
func NewAdjacency() *Adjacency {
	a := &Adjacency{}
	empty := make(map[string]AdjacencyEntry)
	a.snapshot.Store(&empty)
	return a
}

// Snapshot returns the current adjacency map. The returned map must
// not be mutated; callers that need to change adjacency call Set,
// Remove, or Replace.
func (a *Adjacency) Snapshot() map[string]AdjacencyEntry {
	return *a.snapshot.Load()
}

// Lookup returns the entry for a star, if directly adjacent.
func (a *Adjacency) Lookup(star address.StarKey) (AdjacencyEntry, bool) {
	entry, ok := a.Snapshot()[star.String()]
	return entry, ok
}

// Len reports how many stars are currently adjacent.
func (a *Adjacency) Len() int {
	return len(a.Snapshot())
}

// Set installs or updates one star's adjacency entry, copying the
// table so concurrent readers never observe a partially written map.
func (a *Adjacency) Set(star address.StarKey, entry AdjacencyEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur := a.Snapshot()
	next := make(map[string]AdjacencyEntry, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	entry.Star = star
	next[star.String()] = entry
	a.snapshot.Store(&next)
}

// Remove drops a star's adjacency entry.
func (a *Adjacency) Remove(star address.StarKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur := a.Snapshot()
	if _, ok := cur[star.String()]; !ok {
		return
	}
	next := make(map[string]AdjacencyEntry, len(cur))
	for k, v := range cur {
		if k != star.String() {
			next[k] = v
		}
	}
	a.snapshot.Store(&next)
}

// Replace swaps in a wholly new adjacency table. The wrangle path does
// not call it.
func (a *Adjacency) Replace(entries map[string]AdjacencyEntry) {
	next := make(map[string]AdjacencyEntry, len(entries))
	for k, v := range entries {
		next[k] = v
	}
	a.snapshot.Store(&next)
}

// Forwarders returns the keys of every directly adjacent peer whose
// kind relays traffic on to its own peers; the router hops through the
// sole forwarder when a destination star is not directly adjacent.
func (a *Adjacency) Forwarders() []address.StarKey {
	cur := a.Snapshot()
	out := make([]address.StarKey, 0, len(cur))
	for _, entry := range cur {
		if entry.Forwarder {
			out = append(out, entry.Star)
		}
	}
	return out
}

// GoldenPathCache records, per lane, the cheapest known hop count to
// reach a discovered star, updated as search results propagate back
// through this star. BestLane answers the routing
// question behind testable property 4: which lane should carry a wave
// bound for a given star.
type GoldenPathCache struct {
	mu     sync.RWMutex
	byLane map[string]map[string]int // laneID -> star.String() -> hops
}

// NewGoldenPathCache builds an empty cache.
func NewGoldenPathCache() *GoldenPathCache {
	return &GoldenPathCache{byLane: make(map[string]map[string]int)}
}

// Record stores the hop count at which laneID reaches star, if it
// improves on (or introduces) the previously cached value.
func (c *GoldenPathCache) Record(laneID string, star address.StarKey, hops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lane, ok := c.byLane[laneID]
	if !ok {
		lane = make(map[string]int)
		c.byLane[laneID] = lane
	}
	key := star.String()
	if old, ok := lane[key]; !ok || hops < old {
		lane[key] = hops
	}
}

// BestLane returns the lane with the lowest cached hop count to star.
// Ties are broken by the lane id's lexicographic order, a deterministic
// but otherwise arbitrary tiebreak.
func (c *GoldenPathCache) BestLane(star address.StarKey) (laneID string, hops int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := star.String()
	best := -1
	for lane, stars := range c.byLane {
		h, present := stars[key]
		if !present {
			continue
		}
		if best == -1 || h < best || (h == best && lane < laneID) {
			best, laneID, ok = h, lane, true
		}
	}
	return laneID, best, ok
}

// Forget drops every cached entry for a lane, called when the lane
// tears down.
func (c *GoldenPathCache) Forget(laneID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byLane, laneID)
}
