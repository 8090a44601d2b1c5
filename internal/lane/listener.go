package lane

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// Listener accepts incoming TLS connections and runs the handshake on
// each, producing a handshaken Lane for the gate to authenticate and
// mount.
type Listener struct {
	ln           net.Listener
	localVersion string
	log          *logrus.Entry
}

// Listen binds addr (e.g. "127.0.0.1:4344") and wraps it with tlsConfig.
// Whether the TLS layer itself demands and verifies a client
// certificate is entirely up to tlsConfig; the gate's Knock exchange
// authenticates the remote's claimed identity independently of
// whatever the TLS handshake already established.
func Listen(addr string, tlsConfig *tls.Config, localVersion string, log *logrus.Entry) (*Listener, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	ln, err := tls.Listen("tcp", addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("lane: listen %s: %w", addr, err)
	}
	return &Listener{ln: ln, localVersion: localVersion, log: log.WithField("component", "lane-listener")}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Accept blocks for the next incoming connection, runs the handshake,
// and returns a ready-to-Run Lane. A handshake failure closes the
// connection and returns an error without affecting the listener.
func (l *Listener) Accept() (*Lane, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("lane: accept: %w", err)
	}
	if err := Handshake(conn, l.localVersion); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lane: accept: handshake: %w", err)
	}
	return New(conn, l.log), nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}
