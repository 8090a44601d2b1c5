package star

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreamware/starlane/internal/wave"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReplyTracker correlates an outbound Ping or Ripple with its
// reflected Pong or Echo, resubmitting on timeout per the wave's own
// Handling.Retries policy. A star has exactly one tracker; every
// locally-originated request that expects a reply registers here
// before it is sent, and handleFromHyperway/handleToGravity resolve
// against it before falling through to ordinary layer traversal.
type ReplyTracker struct {
	log *logrus.Entry

	mu      sync.Mutex
	pending map[uuid.UUID]chan wave.UltraWave
}

func newReplyTracker(log *logrus.Entry) *ReplyTracker {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ReplyTracker{
		log:     log.WithField("component", "reply-tracker"),
		pending: make(map[uuid.UUID]chan wave.UltraWave),
	}
}

// Await registers w, sends it via send, and blocks for the reflected
// reply, resubmitting per w.Handling.Retries on timeout. send is
// called once immediately and again on each resubmission.
func (rt *ReplyTracker) Await(ctx context.Context, w wave.UltraWave, send func(wave.UltraWave)) (wave.UltraWave, error) {
	if !w.Kind.Reflectable() {
		return wave.UltraWave{}, fmt.Errorf("star: reply tracker: %w: kind %s does not reflect", wave.ErrUnimplemented, w.Kind)
	}

	deadline := waitDeadline(w.Handling.Wait)
	ch := rt.register(w.ID)
	defer rt.unregister(w.ID)
	send(w)

	switch w.Handling.Retries {
	case wave.RetriesNone:
		return rt.waitOnce(ctx, ch, deadline)
	case wave.RetriesMax:
		return rt.waitIndefinitely(ctx, ch, w, deadline, send)
	default:
		return rt.waitMedium(ctx, ch, w, deadline, send)
	}
}

func (rt *ReplyTracker) register(id uuid.UUID) chan wave.UltraWave {
	ch := make(chan wave.UltraWave, 1)
	rt.mu.Lock()
	rt.pending[id] = ch
	rt.mu.Unlock()
	return ch
}

func (rt *ReplyTracker) unregister(id uuid.UUID) {
	rt.mu.Lock()
	delete(rt.pending, id)
	rt.mu.Unlock()
}

// resolve delivers w to whichever Await call is waiting on
// w.ReflectOf, reporting whether one was found. Called from the
// star's pump goroutine whenever a reflected Pong/Echo is observed,
// before it would otherwise fall through to ordinary layer traversal.
func (rt *ReplyTracker) resolve(w wave.UltraWave) bool {
	rt.mu.Lock()
	ch, ok := rt.pending[w.ReflectOf]
	rt.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- w:
	default:
	}
	return true
}

func (rt *ReplyTracker) waitOnce(ctx context.Context, ch chan wave.UltraWave, deadline time.Duration) (wave.UltraWave, error) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply, nil
	case <-timer.C:
		return wave.UltraWave{}, wave.ErrTimeout
	case <-ctx.Done():
		return wave.UltraWave{}, ctx.Err()
	}
}

func (rt *ReplyTracker) waitMedium(ctx context.Context, ch chan wave.UltraWave, w wave.UltraWave, deadline time.Duration, send func(wave.UltraWave)) (wave.UltraWave, error) {
	for attempt := 1; attempt <= wave.MaxMediumAttempts; attempt++ {
		timer := time.NewTimer(deadline)
		select {
		case reply := <-ch:
			timer.Stop()
			return reply, nil
		case <-timer.C:
			if attempt == wave.MaxMediumAttempts {
				return wave.UltraWave{}, wave.ErrTimeout
			}
			rt.log.WithFields(logrus.Fields{"wave": w.ID, "attempt": attempt}).Debug("star: reply tracker: resubmitting after timeout")
			send(w)
		case <-ctx.Done():
			timer.Stop()
			return wave.UltraWave{}, ctx.Err()
		}
	}
	return wave.UltraWave{}, wave.ErrTimeout
}

// waitIndefinitely implements RetriesMax: every wait-budget interval
// that elapses without a reply, the pending registration is re-keyed
// under a fresh id and the wave resubmitted under that id, until a
// reply arrives or ctx is canceled.
func (rt *ReplyTracker) waitIndefinitely(ctx context.Context, ch chan wave.UltraWave, w wave.UltraWave, deadline time.Duration, send func(wave.UltraWave)) (wave.UltraWave, error) {
	cur := w
	defer func() {
		rt.mu.Lock()
		delete(rt.pending, cur.ID)
		rt.mu.Unlock()
	}()
	for {
		timer := time.NewTimer(deadline)
		select {
		case reply := <-ch:
			timer.Stop()
			return reply, nil
		case <-timer.C:
			rt.mu.Lock()
			delete(rt.pending, cur.ID)
			cur.ID = uuid.New()
			rt.pending[cur.ID] = ch
			rt.mu.Unlock()
			rt.log.WithField("wave", cur.ID).Debug("star: reply tracker: re-keyed and resubmitted")
			send(cur)
		case <-ctx.Done():
			timer.Stop()
			return wave.UltraWave{}, ctx.Err()
		}
	}
}

func waitDeadline(w wave.Wait) time.Duration {
	switch w {
	case wave.WaitLow:
		return 2 * time.Second
	case wave.WaitHigh:
		return 30 * time.Second
	default:
		return 10 * time.Second
	}
}
