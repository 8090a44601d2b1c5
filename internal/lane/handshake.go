package lane

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dreamware/starlane/internal/wave"
)

// HandshakeTimeout bounds each read in the version/status exchange.
const HandshakeTimeout = 30 * time.Second

const statusOK = "Ok"

// Handshake runs the version exchange described in the package doc
// over conn, using localVersion as this side's semantic-versioning
// triple. It returns nil only if both sides agreed on the version and
// both confirmed with an "Ok" status frame.
func Handshake(conn net.Conn, localVersion string) error {
	if err := WriteFrame(conn, []byte(localVersion)); err != nil {
		return fmt.Errorf("lane: handshake: send version: %w", err)
	}

	peerVersion, err := readFrameWithDeadline(conn, HandshakeTimeout)
	if err != nil {
		return fmt.Errorf("lane: handshake: read peer version: %w", err)
	}

	if string(peerVersion) != localVersion {
		msg := fmt.Sprintf("Err(\"expected version %s. encountered version %s\")", localVersion, string(peerVersion))
		_ = WriteFrame(conn, []byte(msg))
		return fmt.Errorf("lane: handshake: %s: %w", msg, wave.ErrVersionMismatch)
	}
	if err := WriteFrame(conn, []byte(statusOK)); err != nil {
		return fmt.Errorf("lane: handshake: send status: %w", err)
	}

	status, err := readFrameWithDeadline(conn, HandshakeTimeout)
	if err != nil {
		return fmt.Errorf("lane: handshake: read peer status: %w", err)
	}
	if string(status) != statusOK {
		return fmt.Errorf("lane: handshake: peer reported %q: %w", string(status), wave.ErrVersionMismatch)
	}
	return nil
}

func readFrameWithDeadline(conn net.Conn, d time.Duration) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return nil, fmt.Errorf("lane: set read deadline: %w", err)
	}
	defer conn.SetReadDeadline(time.Time{})
	payload, err := ReadFrame(conn)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %w", wave.ErrTimeout, err)
		}
		return nil, err
	}
	return payload, nil
}
