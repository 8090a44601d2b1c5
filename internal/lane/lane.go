package lane

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/dreamware/starlane/internal/wave"
	"github.com/sirupsen/logrus"
)

// DefaultOutboundBuffer matches the default bounded-queue capacity used
// throughout the mesh's message-passing boundaries.
const DefaultOutboundBuffer = 1024

// Lane is a single live, handshaken TLS connection carrying framed
// waves between two stars. A Lane owns its connection outright: any
// I/O error on either half tears the whole lane down.
type Lane struct {
	conn net.Conn
	log  *logrus.Entry

	inbound  chan wave.UltraWave
	outbound chan wave.UltraWave
	done     chan struct{}
	closeErr error
	closeOnce sync.Once
}

// New wraps an already-handshaken connection as a Lane. Call Run to
// start the multiplexing loop.
func New(conn net.Conn, log *logrus.Entry) *Lane {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Lane{
		conn:     conn,
		log:      log.WithField("component", "lane"),
		inbound:  make(chan wave.UltraWave, DefaultOutboundBuffer),
		outbound: make(chan wave.UltraWave, DefaultOutboundBuffer),
		done:     make(chan struct{}),
	}
}

// Inbound returns the channel on which waves arriving from the remote
// peer are delivered.
func (l *Lane) Inbound() <-chan wave.UltraWave {
	return l.inbound
}

// Outbound returns the channel callers send waves to for transmission
// to the remote peer. The channel is never closed; after Terminate
// nothing drains it, so a send blocks unless callers select on Done()
// alongside it.
func (l *Lane) Outbound() chan<- wave.UltraWave {
	return l.outbound
}

// Done returns a channel closed when the lane terminates, by error or
// by explicit Terminate.
func (l *Lane) Done() <-chan struct{} {
	return l.done
}

// Err returns the error that caused termination, if any. Valid only
// after Done() is closed.
func (l *Lane) Err() error {
	return l.closeErr
}

// RemoteAddr reports the underlying connection's remote address.
func (l *Lane) RemoteAddr() net.Addr {
	return l.conn.RemoteAddr()
}

// Run starts the lane's bidirectional multiplexing loop and blocks
// until it terminates (by I/O error, context cancellation, or
// Terminate). It concurrently reads frames and forwards them to
// Inbound(), and drains Outbound(), writing each wave as a frame.
func (l *Lane) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		l.readLoop()
	}()
	go func() {
		defer wg.Done()
		l.writeLoop()
	}()

	go func() {
		select {
		case <-ctx.Done():
			l.terminate(ctx.Err())
		case <-l.done:
		}
	}()

	wg.Wait()
	return l.closeErr
}

func (l *Lane) readLoop() {
	for {
		w, err := ReadWave(l.conn)
		if err != nil {
			l.terminate(fmt.Errorf("lane: read loop: %w", err))
			return
		}
		select {
		case l.inbound <- w:
		case <-l.done:
			return
		}
	}
}

func (l *Lane) writeLoop() {
	for {
		select {
		case w := <-l.outbound:
			if err := WriteWave(l.conn, w); err != nil {
				l.terminate(fmt.Errorf("lane: write loop: %w", err))
				return
			}
		case <-l.done:
			return
		}
	}
}

// Terminate tears the lane down without an associated error, as when a
// peer cleanly unmounts.
func (l *Lane) Terminate() {
	l.terminate(nil)
}

func (l *Lane) terminate(err error) {
	l.closeOnce.Do(func() {
		l.closeErr = err
		close(l.done)
		if cerr := l.conn.Close(); cerr != nil && err == nil {
			l.log.WithError(cerr).Debug("lane: close underlying connection")
		}
		if err != nil {
			l.log.WithError(err).Warn("lane terminated")
		} else {
			l.log.Debug("lane terminated")
		}
	})
}
