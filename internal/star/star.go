package star

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/hyperway"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/topology"
	"github.com/dreamware/starlane/internal/traversal"
	"github.com/dreamware/starlane/internal/wave"
	"github.com/sirupsen/logrus"
)

const (
	wrangleInitialBackoff = time.Second
	wrangleMaxBackoff     = 30 * time.Second
	wrangleMaxAttempts    = 6
)

// Drivers delivers a traversal that has walked all the way to Core (or
// beyond, for a hosted kind) to whatever runs the particle's kind.
// internal/driver supplies the real implementation; tests use fakes.
type Drivers interface {
	Deliver(ctx context.Context, trav *traversal.Traversal) error
}

// GlobalHandler answers waves addressed to the well-known global
// executor point, the mesh's administrative control surface.
type GlobalHandler interface {
	Handle(ctx context.Context, w wave.UltraWave)
}

type noopGlobalHandler struct {
	log *logrus.Entry
}

func (h noopGlobalHandler) Handle(_ context.Context, w wave.UltraWave) {
	h.log.WithField("method", w.Method).Warn("star: no global handler wired, dropping wave addressed to the global executor")
}

// PlanForKind is the default registry.Kind to traversal.Plan mapping:
// a hosted kind's Core hands traversal on to an externally-run guest,
// everything else uses the ordinary four-layer stack.
func PlanForKind(kind registry.Kind) traversal.Plan {
	if kind.Base == "Mechtron" {
		return traversal.HostedPlan()
	}
	return traversal.DefaultPlan()
}

// Config names the fixed identity and policy a Star is built with.
type Config struct {
	Self            address.StarKey
	Kind            string
	IsForwarder     bool
	WrangleKinds    []string
	WrangleInterval time.Duration
}

// Star is one running mesh node: a single message pump over an
// unbounded command queue, wiring the registry, topology, hyperway,
// and traversal packages together.
type Star struct {
	self        address.StarKey
	selfPoint   address.Point
	selfKind    string
	isForwarder bool

	store       registry.Store
	locator     *topology.SmartLocator
	adjacency   *topology.Adjacency
	cache       *topology.GoldenPathCache
	bounce      *topology.Bounce
	interchange *hyperway.Interchange
	engine      *traversal.Engine
	drivers     Drivers
	replies     *ReplyTracker
	global      GlobalHandler

	wrangleKinds    []string
	wrangleInterval time.Duration

	queue *commandQueue
	log   *logrus.Entry
}

// New builds a Star. fields and shells are the particle-kind-agnostic
// interceptor chains the traversal engine runs at Field and Shell.
func New(
	cfg Config,
	store registry.Store,
	adjacency *topology.Adjacency,
	cache *topology.GoldenPathCache,
	interchange *hyperway.Interchange,
	drivers Drivers,
	global GlobalHandler,
	planFor traversal.PlanFor,
	fields []traversal.FieldInterceptor,
	shells []traversal.ShellInterceptor,
	log *logrus.Entry,
) *Star {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("star", cfg.Self.String())

	s := &Star{
		self:            cfg.Self,
		selfPoint:       cfg.Self.Point(),
		selfKind:        cfg.Kind,
		isForwarder:     cfg.IsForwarder,
		store:           store,
		adjacency:       adjacency,
		cache:           cache,
		interchange:     interchange,
		drivers:         drivers,
		global:          global,
		wrangleKinds:    cfg.WrangleKinds,
		wrangleInterval: cfg.WrangleInterval,
		queue:           newCommandQueue(),
		log:             log,
	}
	if s.global == nil {
		s.global = noopGlobalHandler{log: log}
	}
	s.replies = newReplyTracker(log)
	s.locator = topology.NewSmartLocator(store, s, s.selfPoint)
	s.bounce = topology.NewBounce(cfg.Self, cfg.IsForwarder, s.peersForBounce, s.selfTest, cache, log)
	s.engine = traversal.NewEngine(s.selfPoint, store, planFor, &starExiter{star: s}, fields, shells, log)
	return s
}

// FromHyperway enqueues a Hop that arrived on some lane.
func (s *Star) FromHyperway(hop wave.UltraWave) { s.queue.push(cmdFromHyperway{hop: hop}) }

// ToHyperway enqueues a transport (Core-to-Core, not yet Hop-wrapped)
// to send into the fabric.
func (s *Star) ToHyperway(transport wave.UltraWave) { s.queue.push(cmdToHyperway{transport: transport}) }

// ToGravity enqueues a wave leaving a particle.
func (s *Star) ToGravity(w wave.UltraWave) { s.queue.push(cmdToGravity{wave: w}) }

// Shard enqueues a wave for recipient resolution and dispatch.
func (s *Star) Shard(w wave.UltraWave) { s.queue.push(cmdShard{wave: w}) }

// Wrangle triggers one round of peer discovery.
func (s *Star) Wrangle() { s.queue.push(cmdWrangle{}) }

// Run drains the command queue until ctx is canceled. It is the
// star's single long-running goroutine; every handler it calls runs
// on this goroutine alone.
func (s *Star) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		s.queue.close()
	}()

	if s.wrangleInterval > 0 {
		go s.runWrangleTicker(ctx)
	}

	for {
		c, ok := s.queue.pop()
		if !ok {
			return ctx.Err()
		}
		s.dispatch(ctx, c)
	}
}

func (s *Star) runWrangleTicker(ctx context.Context) {
	ticker := time.NewTicker(s.wrangleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Wrangle()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Star) dispatch(ctx context.Context, c command) {
	commandsTotal.WithLabelValues(commandLabel(c)).Inc()
	queueDepth.Set(float64(s.queue.len()))
	switch cmd := c.(type) {
	case cmdFromHyperway:
		s.handleFromHyperway(ctx, cmd.hop)
	case cmdToHyperway:
		s.handleToHyperway(ctx, cmd.transport)
	case cmdToGravity:
		s.handleToGravity(ctx, cmd.wave)
	case cmdShard:
		s.handleShard(ctx, cmd.wave)
	case cmdWrangle:
		s.handleWrangle(ctx)
	default:
		s.log.WithField("type", fmt.Sprintf("%T", c)).Warn("star: unrecognized command")
	}
}

// handleFromHyperway implements the router's arrival path: one Hop
// envelope is unwrapped to the transport it carries; the transport's
// hop count is incremented and bounds-checked; if the transport is
// addressed to this star, its own body either carries a control
// message this star answers directly (a search frame/result, a
// provision request) or the true wave to inject into local layer
// traversal; otherwise the transport is forwarded, which re-wraps it
// in a fresh Hop for the next lane.
func (s *Star) handleFromHyperway(ctx context.Context, hop wave.UltraWave) {
	transport, err := hop.Unwrap()
	if err != nil {
		s.log.WithError(err).Warn("star: from-hyperway: bad hop envelope")
		return
	}
	transport, ok := transport.IncrementHop()
	if !ok {
		s.log.WithField("wave", transport.ID).Warn("star: from-hyperway: hop count exceeded, dropping")
		return
	}
	to, ok := transport.To.Single()
	if !ok {
		s.log.Warn("star: from-hyperway: transport has no single destination, dropping")
		return
	}

	if !to.Point.Equal(s.selfPoint) {
		if !s.isForwarder {
			s.log.WithField("to", to).Warn("star: from-hyperway: non-forwarder rejecting transit wave")
			return
		}
		s.handleToHyperway(ctx, transport)
		return
	}

	original, err := transport.Unwrap()
	if err != nil {
		s.log.WithError(err).Warn("star: from-hyperway: bad transport envelope")
		return
	}

	switch original.Method {
	case starSearchMethod:
		s.handleInboundSearch(ctx, original)
		return
	case starSearchResultMethod:
		s.handleInboundSearchResult(ctx, original)
		return
	case provisionMethod:
		if original.Kind == wave.KindPing {
			s.handleInboundProvision(ctx, original)
			return
		}
	}
	if (original.Kind == wave.KindPong || original.Kind == wave.KindEcho) && s.replies.resolve(original) {
		return
	}

	inj := traversal.Injection{
		InjectorSurface: address.NewSurface(s.selfPoint, address.LayerGravity),
		Wave:            original,
		FromGravity:     true,
	}
	if err := s.engine.Inject(ctx, inj); err != nil {
		s.log.WithError(err).Warn("star: from-hyperway: injection failed")
	}
}

// injectFromGravity re-enters local layer traversal at this star's own
// Gravity surface, the path every locally-delivered wave takes whether
// it just arrived over a lane or is being shortcut there by Shard.
func (s *Star) injectFromGravity(ctx context.Context, w wave.UltraWave) error {
	return s.engine.Inject(ctx, traversal.Injection{
		InjectorSurface: address.NewSurface(s.selfPoint, address.LayerGravity),
		Wave:            w,
		FromGravity:     true,
	})
}

// handleToGravity implements a wave leaving a particle: record this
// star in its history, dispatch to the global handler if it targets
// the well-known global executor, satisfy a pending reply if it is
// one, and otherwise shard it toward its recipients.
func (s *Star) handleToGravity(ctx context.Context, w wave.UltraWave) {
	w.History = w.History.Add(s.self)

	if single, ok := w.To.Single(); ok && single.Point.IsGlobalExecutor() {
		s.global.Handle(ctx, w)
		return
	}
	if (w.Kind == wave.KindPong || w.Kind == wave.KindEcho) && s.replies.resolve(w) {
		return
	}
	s.handleShard(ctx, w)
}

func (s *Star) handleShard(ctx context.Context, w wave.UltraWave) {
	switch {
	case w.Kind == wave.KindRipple && w.To.Kind == wave.RecipientsMulti:
		s.shardMulti(ctx, w)
	case w.Kind == wave.KindRipple && w.To.Kind == wave.RecipientsStars:
		s.shardStars(ctx, w)
	default:
		s.shardSingle(ctx, w)
	}
}

func (s *Star) shardSingle(ctx context.Context, w wave.UltraWave) {
	to, ok := w.To.Single()
	if !ok {
		s.log.Warn("star: shard: non-ripple wave with multi recipients, dropping")
		return
	}
	loc, err := s.locator.Locate(ctx, to.Point)
	if err != nil {
		if w.Kind.Reflectable() {
			if ierr := s.injectFromGravity(ctx, w.ReflectError(to, err)); ierr != nil {
				s.log.WithError(ierr).Warn("star: shard: failed to reflect locate error")
			}
		} else {
			s.log.WithError(err).WithField("to", to).Warn("star: shard: locate failed for non-reflectable wave")
		}
		return
	}
	if loc.Star.Equal(s.selfPoint) {
		if err := s.injectFromGravity(ctx, w); err != nil {
			s.log.WithError(err).Warn("star: shard: local injection failed")
		}
		return
	}
	s.sendTransport(w, loc.Star)
}

// shardMulti handles a Ripple with an explicit recipient list. The
// traversal engine's own Injection already filters a Multi-recipient
// ripple down to the recipients located on this star, so the
// unmodified wave is injected locally unconditionally; this function's
// own job is only the remote half, grouping the rest by owning star.
func (s *Star) shardMulti(ctx context.Context, w wave.UltraWave) {
	if err := s.injectFromGravity(ctx, w); err != nil {
		s.log.WithError(err).Warn("star: shard: local multi-recipient injection failed")
	}

	byStar := make(map[string][]address.Surface)
	for _, surf := range w.To.Surfaces {
		loc, err := s.locator.Locate(ctx, surf.Point)
		if err != nil {
			s.log.WithError(err).WithField("to", surf).Warn("star: shard: locate failed for ripple recipient")
			continue
		}
		if loc.Star.Equal(s.selfPoint) {
			continue
		}
		key := loc.Star.String()
		byStar[key] = append(byStar[key], surf)
	}
	for key, surfaces := range byStar {
		starPoint, err := address.ParsePoint(key)
		if err != nil {
			continue
		}
		shard := w
		shard.To = wave.ToMulti(surfaces...)
		s.sendTransport(shard, starPoint)
	}
}

// shardStars fans a Ripple addressed to every reachable star out to
// every adjacent star this wave hasn't already visited, in addition
// to the local delivery the engine's own expansion performs.
func (s *Star) shardStars(ctx context.Context, w wave.UltraWave) {
	if err := s.injectFromGravity(ctx, w); err != nil {
		s.log.WithError(err).Warn("star: shard: local stars-recipient injection failed")
	}
	w.History = w.History.Add(s.self)
	for _, entry := range s.adjacency.Snapshot() {
		if w.History.Contains(entry.Star) {
			continue
		}
		s.sendTransport(w, entry.Star.Point())
	}
}

// sendTransport wraps w as a Core-to-Core transport addressed to
// destStar and enqueues it for the to-hyperway path.
func (s *Star) sendTransport(w wave.UltraWave, destStar address.Point) {
	w.History = w.History.Add(s.self)
	transport, err := w.Wrap(address.NewSurface(s.selfPoint, address.LayerCore), address.NewSurface(destStar, address.LayerCore), "Transport")
	if err != nil {
		s.log.WithError(err).Warn("star: shard: failed to wrap transport")
		return
	}
	transport.History = w.History
	s.ToHyperway(transport)
}

// sendDirect wraps w (already addressed star-to-star) as a transport
// to its own To surface and enqueues it, the shortcut used by control
// messages that already know their destination star and don't need
// locate/shard.
func (s *Star) sendDirect(w wave.UltraWave) {
	to, ok := w.To.Single()
	if !ok {
		s.log.Warn("star: send-direct: wave has no single destination")
		return
	}
	transport, err := w.Wrap(w.From, to, "Transport")
	if err != nil {
		s.log.WithError(err).Warn("star: send-direct: wrap failed")
		return
	}
	s.ToHyperway(transport)
}

// handleToHyperway implements the to-hyperway destination rule: hop
// directly to an immediate adjacency, to the sole forwarder adjacency
// if the destination isn't directly known, to the golden-path cache's
// best lane if one is cached, or else launch a search and retry once
// it resolves.
func (s *Star) handleToHyperway(ctx context.Context, transport wave.UltraWave) {
	s.toHyperwayAttempt(ctx, transport, false)
}

func (s *Star) toHyperwayAttempt(ctx context.Context, transport wave.UltraWave, searched bool) {
	to, ok := transport.To.Single()
	if !ok {
		s.log.Warn("star: to-hyperway: transport has no single destination, dropping")
		return
	}

	if to.Point.Equal(s.selfPoint) {
		s.routeHop(transport, s.selfPoint, true)
		return
	}
	if entry, ok := s.adjacencyEntryForPoint(to.Point); ok {
		s.routeHop(transport, entry.Star.Point(), false)
		return
	}
	if forwarders := s.adjacency.Forwarders(); len(forwarders) == 1 {
		s.routeHop(transport, forwarders[0].Point(), false)
		return
	}
	if key, ok := address.ParseStarKeyFromPoint(to.Point); ok {
		if laneID, _, ok := s.cache.BestLane(key); ok {
			if entry, ok := s.adjacencyEntryForLane(laneID); ok {
				s.routeHop(transport, entry.Star.Point(), false)
				return
			}
		}
		if !searched {
			go s.searchThenForward(ctx, key, transport)
			return
		}
	}
	s.log.WithField("to", to).Warn("star: to-hyperway: no route to destination star, dropping")
}

func (s *Star) searchThenForward(ctx context.Context, key address.StarKey, transport wave.UltraWave) {
	searchesInitiatedTotal.Inc()
	if _, err := s.bounce.Initiate(ctx, topology.ForKey(key), topology.MaxSearchHops); err != nil {
		s.log.WithError(err).WithField("star", key).Warn("star: to-hyperway: search for destination star failed")
		return
	}
	s.toHyperwayAttempt(ctx, transport, true)
}

// routeHop wraps transport in a Hop addressed to nextHop and delivers
// it: self-addressed hops loop back into from-hyperway handling
// (so handling/priority are honored the same way an arriving wave's
// would be), everything else goes out through the interchange.
func (s *Star) routeHop(transport wave.UltraWave, nextHop address.Point, loopback bool) {
	hop, err := transport.Wrap(address.NewSurface(s.selfPoint, address.LayerCore), address.NewSurface(nextHop, address.LayerCore), "Hop")
	if err != nil {
		s.log.WithError(err).Warn("star: to-hyperway: failed to wrap hop")
		return
	}
	hop.History = transport.History
	hop.Hops = transport.Hops

	if loopback {
		s.FromHyperway(hop)
		return
	}
	if err := s.interchange.Route(hop); err != nil {
		s.log.WithError(err).WithField("next_hop", nextHop).Warn("star: to-hyperway: route failed")
	}
}

func (s *Star) adjacencyEntryForPoint(p address.Point) (topology.AdjacencyEntry, bool) {
	for _, e := range s.adjacency.Snapshot() {
		if e.Star.Point().Equal(p) {
			return e, true
		}
	}
	return topology.AdjacencyEntry{}, false
}

func (s *Star) adjacencyEntryForLane(laneID string) (topology.AdjacencyEntry, bool) {
	for _, e := range s.adjacency.Snapshot() {
		if e.LaneID == laneID {
			return e, true
		}
	}
	return topology.AdjacencyEntry{}, false
}

func (s *Star) peersForBounce() map[string]topology.Peer {
	snap := s.adjacency.Snapshot()
	out := make(map[string]topology.Peer, len(snap))
	for key, entry := range snap {
		out[key] = &starPeer{entry: entry, star: s}
	}
	return out
}

func (s *Star) selfTest(pattern topology.Pattern) bool {
	return pattern.Matches(s.self, s.selfKind)
}

// handleWrangle launches one independent discovery round per
// configured kind; each round retries on failure with an
// exponential-then-linear backoff until it succeeds or exhausts its
// attempts.
func (s *Star) handleWrangle(ctx context.Context) {
	for _, kind := range s.wrangleKinds {
		go s.wrangleOnce(ctx, kind)
	}
}

func (s *Star) wrangleOnce(ctx context.Context, kind string) {
	backoff := wrangleInitialBackoff
	for attempt := 1; attempt <= wrangleMaxAttempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, topology.AggregatorTimeout)
		result, err := s.bounce.Initiate(cctx, topology.ForKind(kind), topology.MaxSearchHops)
		cancel()
		if err == nil {
			wrangleAttemptsTotal.WithLabelValues(kind, "success").Inc()
			s.log.WithFields(logrus.Fields{"kind": kind, "hits": len(result.Hits)}).Debug("star: wrangle: discovery complete")
			return
		}
		wrangleAttemptsTotal.WithLabelValues(kind, "failure").Inc()
		s.log.WithError(err).WithFields(logrus.Fields{"kind": kind, "attempt": attempt}).Warn("star: wrangle: discovery attempt failed")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < wrangleMaxBackoff {
			backoff *= 2
			if backoff > wrangleMaxBackoff {
				backoff = wrangleMaxBackoff
			}
		}
	}
}
