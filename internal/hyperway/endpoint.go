package hyperway

import (
	"sync"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/lane"
	"github.com/dreamware/starlane/internal/wave"
)

// Endpoint is anything the interchange can mount: a channel-pair
// identified by a Stub. *lane.Lane satisfies the parts of this
// interface that matter for routing; hyperway wraps it with identity
// and rewrite behavior via LaneEndpoint.
type Endpoint interface {
	Stub() Stub
	Inbound() <-chan wave.UltraWave
	Outbound() chan<- wave.UltraWave
	Terminate()
}

// RewriteSet holds the inbound transforms a Configurator attaches to a
// newly mounted endpoint, rewriting how the remote's waves present
// themselves once inside the fabric.
type RewriteSet struct {
	// From replaces an inbound wave's declared From surface, so a
	// remote cannot forge another particle's identity.
	From address.Surface
	// Hop is this star's own Core surface on this endpoint.
	Hop address.Surface
	// Transport is the address at which the remote's own waves
	// appear once they have entered the fabric through this
	// endpoint.
	Transport address.Surface
}

// LaneEndpoint adapts a handshaken *lane.Lane into an Endpoint, applying
// a RewriteSet to every inbound wave before it reaches the interchange.
type LaneEndpoint struct {
	stub    Stub
	lane    *lane.Lane
	rewrite RewriteSet
	inbound chan wave.UltraWave
	done    chan struct{}
	once    sync.Once
}

// NewLaneEndpoint wraps l as a mounted endpoint under stub, applying
// rewrite to every wave the lane delivers.
func NewLaneEndpoint(stub Stub, l *lane.Lane, rewrite RewriteSet) *LaneEndpoint {
	ep := &LaneEndpoint{
		stub:    stub,
		lane:    l,
		rewrite: rewrite,
		inbound: make(chan wave.UltraWave, lane.DefaultOutboundBuffer),
		done:    make(chan struct{}),
	}
	go ep.pump()
	return ep
}

func (e *LaneEndpoint) pump() {
	defer close(e.inbound)
	for {
		select {
		case w, ok := <-e.lane.Inbound():
			if !ok {
				return
			}
			w.From = e.rewrite.From
			select {
			case e.inbound <- w:
			case <-e.done:
				return
			}
		case <-e.lane.Done():
			return
		case <-e.done:
			return
		}
	}
}

// Stub returns the endpoint's identity.
func (e *LaneEndpoint) Stub() Stub { return e.stub }

// Inbound returns rewritten waves arriving from the remote.
func (e *LaneEndpoint) Inbound() <-chan wave.UltraWave { return e.inbound }

// Outbound returns the channel to send waves to the remote on.
func (e *LaneEndpoint) Outbound() chan<- wave.UltraWave { return e.lane.Outbound() }

// Terminate tears down the underlying lane and stops the pump.
func (e *LaneEndpoint) Terminate() {
	e.once.Do(func() { close(e.done) })
	e.lane.Terminate()
}
