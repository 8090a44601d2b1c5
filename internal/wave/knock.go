package wave

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Knock is the authentication request a gate reads immediately after a
// lane's handshake completes: credentials plus the point pattern the
// remote wishes to be assigned under.
type Knock struct {
	Credentials []byte
	PointPattern string
}

// ToSubstance encodes k as a wave substance.
func (k Knock) ToSubstance() Substance {
	var buf bytes.Buffer
	writeBytes(&buf, k.Credentials)
	writeString(&buf, k.PointPattern)
	return Substance{Type: SubstanceTypeKnock, Payload: buf.Bytes()}
}

// KnockFromSubstance decodes a Knock from a wave substance.
func KnockFromSubstance(s Substance) (Knock, error) {
	if s.Type != SubstanceTypeKnock {
		return Knock{}, fmt.Errorf("wave: substance type %q is not a Knock", s.Type)
	}
	r := bytes.NewReader(s.Payload)
	creds, err := readBytes(r)
	if err != nil {
		return Knock{}, fmt.Errorf("wave: decode knock credentials: %w", err)
	}
	pattern, err := readString(r)
	if err != nil {
		return Knock{}, fmt.Errorf("wave: decode knock pattern: %w", err)
	}
	return Knock{Credentials: creds, PointPattern: pattern}, nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
