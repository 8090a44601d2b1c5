package lane

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dreamware/starlane/internal/wave"
)

// MaxFrameSize bounds a single frame's payload to guard against a
// corrupt or hostile length prefix causing an unbounded allocation.
const MaxFrameSize = 16 * 1024 * 1024

// WriteFrame writes a u32-BE length prefix followed by payload to w, and
// flushes if w supports it. It never observes a partial write: either
// the whole frame reaches the underlying connection's buffer or an
// error is returned before any byte is written.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("lane: frame of %d bytes exceeds max %d", len(payload), MaxFrameSize)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	framed := make([]byte, 0, 4+len(payload))
	framed = append(framed, lenBuf[:]...)
	framed = append(framed, payload...)
	if _, err := w.Write(framed); err != nil {
		return fmt.Errorf("lane: write frame: %w: %w", wave.ErrIoFailure, err)
	}
	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("lane: flush frame: %w: %w", wave.ErrIoFailure, err)
		}
	}
	return nil
}

type flusher interface {
	Flush() error
}

// ReadFrame reads a single length-prefixed frame from r. It returns
// ErrIoFailure wrapping the underlying error on any I/O failure,
// including a length prefix exceeding MaxFrameSize.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("lane: read frame length: %w: %w", wave.ErrIoFailure, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("lane: frame of %d bytes exceeds max %d: %w", n, MaxFrameSize, wave.ErrIoFailure)
	}
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("lane: read frame payload: %w: %w", wave.ErrIoFailure, err)
		}
	}
	return payload, nil
}

// WriteWave encodes w with its deterministic binary codec and writes it
// as a single frame.
func WriteWave(conn io.Writer, w wave.UltraWave) error {
	payload, err := w.MarshalBinary()
	if err != nil {
		return fmt.Errorf("lane: encode wave: %w", err)
	}
	return WriteFrame(conn, payload)
}

// ReadWave reads a single frame and decodes it as an UltraWave. A
// decode failure implies protocol skew and is always treated as fatal
// to the lane by the caller.
func ReadWave(conn io.Reader) (wave.UltraWave, error) {
	payload, err := ReadFrame(conn)
	if err != nil {
		return wave.UltraWave{}, err
	}
	var w wave.UltraWave
	if err := w.UnmarshalBinary(payload); err != nil {
		return wave.UltraWave{}, fmt.Errorf("lane: decode wave: %w", err)
	}
	return w, nil
}
