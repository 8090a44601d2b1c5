package topology

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxSearchHops is the hard ceiling on a search's hop vector,
// independent of any caller-supplied MaxHops.
const MaxSearchHops = 16

// AggregatorTimeout bounds how long a star waits for its rebroadcast
// peers to report before collapsing whatever results have arrived.
const AggregatorTimeout = 60 * time.Second

// SearchFrame is the flood-search message broadcast across lanes,
// grounded on original_source/rust/starlane/src/star.rs's StarSearch.
type SearchFrame struct {
	Pattern     Pattern
	From        address.StarKey
	Hops        []address.StarKey
	Transaction uuid.UUID
	MaxHops     int
}

// SearchResult is a StarSearchResult: the hits collected so far,
// addressed back along the reverse hop path.
type SearchResult struct {
	Transaction uuid.UUID
	Hits        []SearchHit
}

// Peer is the sending half of one adjacent lane, as the Bounce engine
// needs it: enough to forward a search onward and to deliver a result
// back. The star router supplies a real implementation backed by a
// hyperway endpoint; tests use fakes.
type Peer interface {
	ID() string
	SendSearch(ctx context.Context, frame SearchFrame) error
	SendResult(ctx context.Context, result SearchResult) error
}

// SelfTest reports whether this star itself matches a pattern.
type SelfTest func(pattern Pattern) bool

type aggregation struct {
	pattern    Pattern
	need       int
	got        int
	hits       map[string]SearchHit // star.String() -> best hit
	originPeer string                // empty when this star initiated the search
	resultCh   chan SearchResult
	timer      *time.Timer
}

// Bounce implements the bounded flood search and result-collapsing
// algorithm, grounded on
// original_source/rust/starlane/src/star.rs's on_star_search_hop and
// StarSearchTransaction::collapse.
type Bounce struct {
	self        address.StarKey
	isForwarder bool
	peers       func() map[string]Peer
	hit         SelfTest
	cache       *GoldenPathCache
	log         *logrus.Entry

	mu      sync.Mutex
	pending map[uuid.UUID]*aggregation
}

// NewBounce builds a search engine for one star. peers should return
// the current adjacency snapshot's live Peer set; it is called fresh
// on every search so Bounce always sees up-to-date adjacency.
func NewBounce(self address.StarKey, isForwarder bool, peers func() map[string]Peer, hit SelfTest, cache *GoldenPathCache, log *logrus.Entry) *Bounce {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Bounce{
		self:        self,
		isForwarder: isForwarder,
		peers:       peers,
		hit:         hit,
		cache:       cache,
		log:         log.WithField("component", "bounce"),
		pending:     make(map[uuid.UUID]*aggregation),
	}
}

// Initiate starts a new search for pattern, broadcasting to every
// current peer and waiting for the collapsed result or ctx's
// cancellation.
func (b *Bounce) Initiate(ctx context.Context, pattern Pattern, maxHops int) (SearchResult, error) {
	if maxHops <= 0 || maxHops > MaxSearchHops {
		maxHops = MaxSearchHops
	}
	txID := uuid.New()
	peers := b.peers()

	agg := &aggregation{
		pattern:  pattern,
		need:     len(peers),
		hits:     make(map[string]SearchHit),
		resultCh: make(chan SearchResult, 1),
	}
	if b.hit(pattern) {
		agg.hits[b.self.String()] = SearchHit{Star: b.self, Hops: 0}
	}

	b.mu.Lock()
	b.pending[txID] = agg
	b.mu.Unlock()
	agg.timer = time.AfterFunc(AggregatorTimeout, func() { b.finalize(txID) })

	if len(peers) == 0 {
		b.finalize(txID)
	} else {
		frame := SearchFrame{Pattern: pattern, From: b.self, Transaction: txID, MaxHops: maxHops}
		for _, p := range peers {
			if err := p.SendSearch(ctx, frame); err != nil {
				b.log.WithError(err).WithField("peer", p.ID()).Warn("search: send failed")
				b.noteReport(txID, nil)
			}
		}
	}

	select {
	case result := <-agg.resultCh:
		return result, nil
	case <-ctx.Done():
		return SearchResult{}, ctx.Err()
	}
}

// HandleSearch processes a StarSearch frame that arrived on
// arrivalPeer, implementing steps 2-4.
func (b *Bounce) HandleSearch(ctx context.Context, frame SearchFrame, arrivalPeer Peer) error {
	if frame.MaxHops > MaxSearchHops {
		return fmt.Errorf("topology: search: max hops %d exceeds ceiling %d", frame.MaxHops, MaxSearchHops)
	}

	hit := b.hit(frame.Pattern)

	if hit && frame.Pattern.SingleMatch() {
		return arrivalPeer.SendResult(ctx, SearchResult{
			Transaction: frame.Transaction,
			Hits:        []SearchHit{{Star: b.self, Hops: len(frame.Hops) + 1}},
		})
	}

	peers := b.peers()
	others := make(map[string]Peer, len(peers))
	for id, p := range peers {
		if id != arrivalPeer.ID() {
			others[id] = p
		}
	}

	if len(frame.Hops)+1 > frame.MaxHops || len(peers) <= 1 || !b.isForwarder {
		var hits []SearchHit
		if hit {
			hits = []SearchHit{{Star: b.self, Hops: len(frame.Hops) + 1}}
		}
		return arrivalPeer.SendResult(ctx, SearchResult{Transaction: frame.Transaction, Hits: hits})
	}

	agg := &aggregation{
		pattern:    frame.Pattern,
		need:       len(others),
		hits:       make(map[string]SearchHit),
		originPeer: arrivalPeer.ID(),
	}
	if hit {
		agg.hits[b.self.String()] = SearchHit{Star: b.self, Hops: 0}
	}

	b.mu.Lock()
	b.pending[frame.Transaction] = agg
	b.mu.Unlock()
	agg.timer = time.AfterFunc(AggregatorTimeout, func() { b.finalizeTo(ctx, frame.Transaction, arrivalPeer) })

	if len(others) == 0 {
		return b.finalizeTo(ctx, frame.Transaction, arrivalPeer)
	}

	next := SearchFrame{
		Pattern:     frame.Pattern,
		From:        frame.From,
		Hops:        append(append([]address.StarKey{}, frame.Hops...), b.self),
		Transaction: frame.Transaction,
		MaxHops:     frame.MaxHops,
	}
	for _, p := range others {
		if err := p.SendSearch(ctx, next); err != nil {
			b.log.WithError(err).WithField("peer", p.ID()).Warn("search: rebroadcast failed")
			b.noteReportTo(ctx, frame.Transaction, nil, arrivalPeer)
		}
	}
	return nil
}

// HandleResult merges an inbound StarSearchResult into its pending
// aggregation, caching the reporting lane's distance to each hit star
// along the way").
func (b *Bounce) HandleResult(ctx context.Context, result SearchResult, fromPeer Peer) error {
	for _, h := range result.Hits {
		b.cache.Record(fromPeer.ID(), h.Star, h.Hops)
	}

	b.mu.Lock()
	agg, ok := b.pending[result.Transaction]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("topology: search result for unknown transaction %s", result.Transaction)
	}
	b.mergeLocked(agg, result.Hits)
	agg.got++
	done := agg.got >= agg.need
	b.mu.Unlock()

	if done {
		if agg.originPeer == "" {
			return b.deliverLocal(result.Transaction)
		}
		return b.deliverUpstream(ctx, result.Transaction)
	}
	return nil
}

// mergeLocked folds a reporting lane's hits into agg, collapsing to
// the minimum hop count per star the way StarSearchTransaction::collapse
// does. Hop counts reported by a hit star are already absolute
// (measured against the search's own growing Hops vector, not reset
// per relay), so a relay forwarding a child's result upward must not
// add to it again.
func (b *Bounce) mergeLocked(agg *aggregation, hits []SearchHit) {
	for _, h := range hits {
		key := h.Star.String()
		if old, ok := agg.hits[key]; !ok || h.Hops < old.Hops {
			agg.hits[key] = h
		}
	}
}

// noteReport records a zero-hit report from a peer that could not be
// reached at all, so a send failure still lets the aggregation
// complete rather than hang until its timeout.
func (b *Bounce) noteReport(txID uuid.UUID, hits []SearchHit) {
	b.mu.Lock()
	agg, ok := b.pending[txID]
	if !ok {
		b.mu.Unlock()
		return
	}
	b.mergeLocked(agg, hits)
	agg.got++
	done := agg.got >= agg.need
	b.mu.Unlock()
	if done {
		b.finalize(txID)
	}
}

func (b *Bounce) noteReportTo(ctx context.Context, txID uuid.UUID, hits []SearchHit, origin Peer) {
	b.mu.Lock()
	agg, ok := b.pending[txID]
	if !ok {
		b.mu.Unlock()
		return
	}
	b.mergeLocked(agg, hits)
	agg.got++
	done := agg.got >= agg.need
	b.mu.Unlock()
	if done {
		_ = b.finalizeTo(ctx, txID, origin)
	}
}

// collapse removes and returns the pending aggregation for txID along
// with its collapsed SearchResult, or false if it was already
// finalized (e.g. the timeout and the last report raced).
func (b *Bounce) collapse(txID uuid.UUID) (*aggregation, SearchResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	agg, ok := b.pending[txID]
	if !ok {
		return nil, SearchResult{}, false
	}
	delete(b.pending, txID)
	if agg.timer != nil {
		agg.timer.Stop()
	}
	hits := make([]SearchHit, 0, len(agg.hits))
	for _, h := range agg.hits {
		hits = append(hits, h)
	}
	return agg, SearchResult{Transaction: txID, Hits: hits}, true
}

// finalize collapses an initiator-side aggregation and delivers it to
// Initiate's waiting caller.
func (b *Bounce) finalize(txID uuid.UUID) {
	agg, result, ok := b.collapse(txID)
	if !ok {
		return
	}
	select {
	case agg.resultCh <- result:
	default:
	}
}

// finalizeTo collapses a relay-side aggregation and forwards it to the
// peer the original search arrived on.
func (b *Bounce) finalizeTo(ctx context.Context, txID uuid.UUID, origin Peer) error {
	_, result, ok := b.collapse(txID)
	if !ok {
		return nil
	}
	return origin.SendResult(ctx, result)
}

func (b *Bounce) deliverLocal(txID uuid.UUID) error {
	b.finalize(txID)
	return nil
}

func (b *Bounce) deliverUpstream(ctx context.Context, txID uuid.UUID) error {
	b.mu.Lock()
	agg, ok := b.pending[txID]
	var originID string
	if ok {
		originID = agg.originPeer
	}
	var origin Peer
	if ok {
		origin = b.peers()[originID]
	}
	b.mu.Unlock()
	if !ok || origin == nil {
		// The peer that asked is gone, or already finalized; just
		// drop the collapse so the map doesn't leak.
		b.collapse(txID)
		return nil
	}
	return b.finalizeTo(ctx, txID, origin)
}
