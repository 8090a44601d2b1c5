package main

import (
	"context"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/hyperway"
	"github.com/dreamware/starlane/internal/lane"
	"github.com/dreamware/starlane/internal/logging"
	"github.com/dreamware/starlane/internal/topology"
	"github.com/dreamware/starlane/internal/wave"
)

// protocolVersion is the local hyperlane wire version, a
// semantic-versioning triple, that every lane handshake advertises.
const protocolVersion = "1.0.0"

// runLanes starts the inbound listener and the outbound dialers for
// every configured peer, returning once ctx is canceled.
func (n *node) runLanes(ctx context.Context) error {
	auth := hyperway.NewTokenAuthenticator()
	for _, p := range n.cfg.Lane.Peers {
		peerKey := address.NewStarKey(p.Constellation, p.Name, p.Index)
		auth.Register(peerKey.String(), peerKey.String())
	}
	greeter := hyperway.StarGreeter{StarPoint: n.self.Point()}
	gate := hyperway.NewGate(n.interchange, auth, greeter, hyperway.IdentityConfigurator{}, logging.ForComponent(n.log, "gate"))

	listener, err := lane.Listen(n.cfg.Lane.ListenAddr, n.tlsServer, protocolVersion, logging.ForComponent(n.log, "lane-listener"))
	if err != nil {
		return err
	}
	go n.acceptLoop(ctx, listener, gate)

	for _, p := range n.cfg.Lane.Peers {
		target := peerTarget{
			key:       address.NewStarKey(p.Constellation, p.Name, p.Index),
			addr:      p.Addr,
			forwarder: p.Forwarder,
		}
		go n.dialLoop(ctx, target)
	}
	<-ctx.Done()
	return listener.Close()
}

func (n *node) acceptLoop(ctx context.Context, listener *lane.Listener, gate *hyperway.Gate) {
	for {
		l, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				n.log.WithError(err).Warn("star: lane accept failed")
				continue
			}
		}
		go n.admit(ctx, l, gate)
	}
}

func (n *node) admit(ctx context.Context, l *lane.Lane, gate *hyperway.Gate) {
	go func() { _ = l.Run(ctx) }()

	ep, _, err := gate.Admit(ctx, l, false)
	if err != nil {
		n.log.WithError(err).Warn("star: lane admission failed")
		return
	}

	stub := ep.Stub()
	if peerKey, ok := address.ParseStarKeyFromPoint(stub.RemoteSurface.Point); ok {
		n.adjacency.Set(peerKey, topology.AdjacencyEntry{Star: peerKey, LaneID: stub.Key(), Forwarder: n.isConfiguredForwarder(peerKey)})
		defer n.adjacency.Remove(peerKey)
	}
	n.pumpInbound(ctx, ep)
}

// isConfiguredForwarder reports whether peer appears in this star's
// configured peer list with Forwarder set, for the case where a
// configured peer dials in rather than being dialed.
func (n *node) isConfiguredForwarder(peer address.StarKey) bool {
	for _, p := range n.cfg.Lane.Peers {
		if address.NewStarKey(p.Constellation, p.Name, p.Index).Equal(peer) {
			return p.Forwarder
		}
	}
	return false
}

// dialLoop keeps a lane to peer alive, reconnecting with backoff on
// any failure, for as long as ctx remains open.
func (n *node) dialLoop(ctx context.Context, peer peerTarget) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if err := n.dialOnce(ctx, peer); err != nil {
			n.log.WithError(err).WithField("peer", peer.key.String()).Warn("star: lane to peer failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (n *node) dialOnce(ctx context.Context, peer peerTarget) error {
	l, err := lane.Dial(ctx, peer.addr, n.tlsClient, protocolVersion, logging.ForComponent(n.log, "lane-connector"))
	if err != nil {
		return err
	}
	go func() { _ = l.Run(ctx) }()

	knock := wave.NewSignal(
		address.NewSurface(n.self.Point(), address.LayerCore),
		address.NewSurface(peer.key.Point(), address.LayerCore),
		"Knock",
		wave.Knock{Credentials: []byte(n.self.String()), PointPattern: n.self.Point().String()}.ToSubstance(),
	)
	select {
	case l.Outbound() <- knock:
	case <-l.Done():
		return l.Err()
	case <-ctx.Done():
		return ctx.Err()
	}

	peerCore := address.NewSurface(peer.key.Point(), address.LayerCore)
	stub := hyperway.Stub{RemoteSurface: peerCore, Agent: peer.key.String()}
	ep := hyperway.NewLaneEndpoint(stub, l, hyperway.RewriteSet{
		From:      peerCore,
		Hop:       address.NewSurface(n.self.Point(), address.LayerCore),
		Transport: peerCore,
	})
	if err := n.interchange.Mount(ep, false); err != nil {
		ep.Terminate()
		return err
	}
	n.adjacency.Set(peer.key, topology.AdjacencyEntry{Star: peer.key, LaneID: stub.Key(), Forwarder: peer.forwarder})

	n.pumpInbound(ctx, ep)
	n.adjacency.Remove(peer.key)
	return l.Err()
}

// pumpInbound feeds every wave a mounted endpoint receives into the
// router's from-hyperway path until the endpoint closes.
func (n *node) pumpInbound(ctx context.Context, ep hyperway.Endpoint) {
	defer ep.Terminate()
	for {
		select {
		case w, ok := <-ep.Inbound():
			if !ok {
				return
			}
			n.star.FromHyperway(w)
		case <-ctx.Done():
			return
		}
	}
}

// peerTarget is a resolved outbound peer: its key, the address to
// dial, and whether it relays searches on to its own peers.
type peerTarget struct {
	key       address.StarKey
	addr      string
	forwarder bool
}
