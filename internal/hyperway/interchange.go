package hyperway

import (
	"fmt"
	"sync"

	"github.com/dreamware/starlane/internal/wave"
	"github.com/sirupsen/logrus"
)

// ErrAlreadyMounted is returned by Mount when a non-singular mount
// collides with an existing one under the same stub.
var ErrAlreadyMounted = fmt.Errorf("hyperway: stub already mounted")

// Interchange is a per-star container of mounted endpoints plus a
// router. It holds no routing logic beyond matching a wave's
// destination point to a mounted stub's remote surface.
type Interchange struct {
	mu     sync.RWMutex
	mounts map[string]Endpoint
	log    *logrus.Entry
}

// NewInterchange builds an empty interchange.
func NewInterchange(log *logrus.Entry) *Interchange {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Interchange{
		mounts: make(map[string]Endpoint),
		log:    log.WithField("component", "interchange"),
	}
}

// Mount attaches an authenticated endpoint. It fails with
// ErrAlreadyMounted if the stub is already mounted, unless singular is
// true and the current mount's remote matches — in which case the old
// mount is replaced (a reconnect from the same remote).
func (ic *Interchange) Mount(ep Endpoint, singular bool) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	key := ep.Stub().Key()
	if existing, ok := ic.mounts[key]; ok {
		if !singular || !existing.Stub().Equal(ep.Stub()) {
			return fmt.Errorf("%w: %s", ErrAlreadyMounted, key)
		}
		existing.Terminate()
	}
	ic.mounts[key] = ep
	ic.log.WithField("stub", key).Info("mounted endpoint")
	return nil
}

// Unmount drops the endpoint identified by stub and closes its
// channels.
func (ic *Interchange) Unmount(stub Stub) {
	ic.mu.Lock()
	ep, ok := ic.mounts[stub.Key()]
	if ok {
		delete(ic.mounts, stub.Key())
	}
	ic.mu.Unlock()
	if ok {
		ep.Terminate()
		ic.log.WithField("stub", stub.Key()).Info("unmounted endpoint")
	}
}

// Lookup returns the endpoint mounted under stub's key, if any.
func (ic *Interchange) Lookup(stub Stub) (Endpoint, bool) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	ep, ok := ic.mounts[stub.Key()]
	return ep, ok
}

// LookupByPoint finds a mounted endpoint whose remote surface's point
// matches point, regardless of agent.
func (ic *Interchange) LookupByPoint(pointStr string) (Endpoint, bool) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	for _, ep := range ic.mounts {
		if ep.Stub().RemoteSurface.Point.String() == pointStr {
			return ep, true
		}
	}
	return nil, false
}

// Route delivers an inbound transport to the endpoint whose stub
// matches w's destination point. Waves matching no endpoint are
// dropped with a warning, per the design's "fail open, log loud"
// policy for unroutable traffic.
func (ic *Interchange) Route(w wave.UltraWave) error {
	dest, ok := w.To.Single()
	if !ok {
		return fmt.Errorf("hyperway: route: %w: recipients kind %v unsupported for direct routing", wave.ErrUnimplemented, w.To.Kind)
	}
	ep, ok := ic.LookupByPoint(dest.Point.String())
	if !ok {
		ic.log.WithField("to", dest.String()).Warn("route: no mounted endpoint for destination")
		return fmt.Errorf("hyperway: route: %w: %s", wave.ErrNotFound, dest)
	}
	select {
	case ep.Outbound() <- w:
		return nil
	default:
		return fmt.Errorf("hyperway: route: %w: outbound queue full for %s", wave.ErrIoFailure, dest)
	}
}

// Mounts returns a snapshot of all currently mounted stubs.
func (ic *Interchange) Mounts() []Stub {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	out := make([]Stub, 0, len(ic.mounts))
	for _, ep := range ic.mounts {
		out = append(out, ep.Stub())
	}
	return out
}
