package lane

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Dial opens a TLS connection to addr, runs the handshake as the
// initiating side, and returns a ready-to-Run Lane.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config, localVersion string, log *logrus.Entry) (*Lane, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	dialer := tls.Dialer{Config: tlsConfig}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("lane: dial %s: %w", addr, err)
	}
	if err := Handshake(conn, localVersion); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lane: dial: handshake: %w", err)
	}
	return New(conn, log.WithField("component", "lane-connector")), nil
}
