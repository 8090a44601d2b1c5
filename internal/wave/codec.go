package wave

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dreamware/starlane/internal/address"
	"github.com/google/uuid"
)

// magic identifies the start of an encoded UltraWave and guards against
// decoding a payload the peer never meant as a wave.
var magic = [4]byte{'w', 'a', 'v', 'e'}

// wireVersion is the codec's own format version, independent of the
// lane handshake's software version.
const wireVersion = 0

// MarshalBinary implements encoding.BinaryMarshaler with Starlane's
// fixed, deterministic wire scheme: magic bytes, a version and kind
// byte, then big-endian length-prefixed fields in a fixed order. There
// is no self-describing type metadata beyond field lengths; any
// truncation or field-order skew is a DecodeFailure, never a silent
// misparse.
func (w UltraWave) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(wireVersion)
	buf.WriteByte(byte(w.Kind))
	buf.Write([]byte{0, 0}) // reserved, kept zero for future flags

	idBytes, err := w.ID.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("wave: marshal id: %w", err)
	}
	buf.Write(idBytes)

	writeSurface(&buf, w.From)
	writeRecipients(&buf, w.To)
	writeString(&buf, w.Method)
	writeSubstance(&buf, w.Body)
	writeUint16(&buf, w.Status)
	writeHistory(&buf, w.History)
	buf.WriteByte(w.Hops)
	writeHandling(&buf, w.Handling)
	writeString(&buf, w.Scope)
	writeString(&buf, w.Agent)
	if w.Track {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	reflectOfBytes, err := w.ReflectOf.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("wave: marshal reflect-of: %w", err)
	}
	buf.Write(reflectOfBytes)

	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the inverse of
// MarshalBinary. Any structural error is wrapped in ErrDecodeFailure.
func (w *UltraWave) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return fmt.Errorf("wave: read magic: %w: %w", ErrDecodeFailure, err)
	}
	if gotMagic != magic {
		return fmt.Errorf("wave: bad magic %v: %w", gotMagic, ErrDecodeFailure)
	}

	version, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("wave: read version: %w: %w", ErrDecodeFailure, err)
	}
	if version != wireVersion {
		return fmt.Errorf("wave: unsupported wire version %d: %w", version, ErrDecodeFailure)
	}

	kindByte, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("wave: read kind: %w: %w", ErrDecodeFailure, err)
	}

	var reserved [2]byte
	if _, err := io.ReadFull(r, reserved[:]); err != nil {
		return fmt.Errorf("wave: read reserved: %w: %w", ErrDecodeFailure, err)
	}

	var idBytes [16]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		return fmt.Errorf("wave: read id: %w: %w", ErrDecodeFailure, err)
	}
	id, err := uuid.FromBytes(idBytes[:])
	if err != nil {
		return fmt.Errorf("wave: parse id: %w: %w", ErrDecodeFailure, err)
	}

	from, err := readSurface(r)
	if err != nil {
		return fmt.Errorf("wave: read from: %w", err)
	}
	to, err := readRecipients(r)
	if err != nil {
		return fmt.Errorf("wave: read to: %w", err)
	}
	method, err := readString(r)
	if err != nil {
		return fmt.Errorf("wave: read method: %w: %w", ErrDecodeFailure, err)
	}
	body, err := readSubstance(r)
	if err != nil {
		return fmt.Errorf("wave: read body: %w", err)
	}
	status, err := readUint16(r)
	if err != nil {
		return fmt.Errorf("wave: read status: %w: %w", ErrDecodeFailure, err)
	}
	history, err := readHistory(r)
	if err != nil {
		return fmt.Errorf("wave: read history: %w", err)
	}
	hops, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("wave: read hops: %w: %w", ErrDecodeFailure, err)
	}
	handling, err := readHandling(r)
	if err != nil {
		return fmt.Errorf("wave: read handling: %w", err)
	}
	scope, err := readString(r)
	if err != nil {
		return fmt.Errorf("wave: read scope: %w: %w", ErrDecodeFailure, err)
	}
	agent, err := readString(r)
	if err != nil {
		return fmt.Errorf("wave: read agent: %w: %w", ErrDecodeFailure, err)
	}
	trackByte, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("wave: read track: %w: %w", ErrDecodeFailure, err)
	}

	var reflectOfBytes [16]byte
	if _, err := io.ReadFull(r, reflectOfBytes[:]); err != nil {
		return fmt.Errorf("wave: read reflect-of: %w: %w", ErrDecodeFailure, err)
	}
	reflectOf, err := uuid.FromBytes(reflectOfBytes[:])
	if err != nil {
		return fmt.Errorf("wave: parse reflect-of: %w: %w", ErrDecodeFailure, err)
	}

	*w = UltraWave{
		ID:        id,
		Kind:      Kind(kindByte),
		From:      from,
		To:        to,
		Method:    method,
		Body:      body,
		Status:    status,
		History:   history,
		Hops:      hops,
		Handling:  handling,
		Scope:     scope,
		Agent:     agent,
		Track:     trackByte != 0,
		ReflectOf: reflectOf,
	}
	return nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func readUint16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeSurface(buf *bytes.Buffer, s address.Surface) {
	writeString(buf, s.Point.String())
	buf.WriteByte(byte(s.Layer))
}

func readSurface(r *bytes.Reader) (address.Surface, error) {
	pointStr, err := readString(r)
	if err != nil {
		return address.Surface{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	point, err := address.ParsePoint(pointStr)
	if err != nil {
		return address.Surface{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	layerByte, err := r.ReadByte()
	if err != nil {
		return address.Surface{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return address.NewSurface(point, address.Layer(layerByte)), nil
}

func writeRecipients(buf *bytes.Buffer, to Recipients) {
	buf.WriteByte(byte(to.Kind))
	writeUint16(buf, uint16(len(to.Surfaces)))
	for _, s := range to.Surfaces {
		writeSurface(buf, s)
	}
}

func readRecipients(r *bytes.Reader) (Recipients, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Recipients{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	count, err := readUint16(r)
	if err != nil {
		return Recipients{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	surfaces := make([]address.Surface, 0, count)
	for i := uint16(0); i < count; i++ {
		s, err := readSurface(r)
		if err != nil {
			return Recipients{}, err
		}
		surfaces = append(surfaces, s)
	}
	return Recipients{Kind: RecipientsKind(kindByte), Surfaces: surfaces}, nil
}

func writeSubstance(buf *bytes.Buffer, s Substance) {
	writeString(buf, s.Type)
	writeBytes(buf, s.Payload)
}

func readSubstance(r *bytes.Reader) (Substance, error) {
	typ, err := readString(r)
	if err != nil {
		return Substance{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	payload, err := readBytes(r)
	if err != nil {
		return Substance{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return Substance{Type: typ, Payload: payload}, nil
}

func writeHistory(buf *bytes.Buffer, h History) {
	keys := h.Keys()
	writeUint16(buf, uint16(len(keys)))
	for _, k := range keys {
		writeString(buf, k)
	}
}

func readHistory(r *bytes.Reader) (History, error) {
	count, err := readUint16(r)
	if err != nil {
		return History{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	keys := make([]string, 0, count)
	for i := uint16(0); i < count; i++ {
		k, err := readString(r)
		if err != nil {
			return History{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
		}
		keys = append(keys, k)
	}
	return HistoryFromKeys(keys), nil
}

func writeHandling(buf *bytes.Buffer, h Handling) {
	buf.WriteByte(byte(h.Priority))
	buf.WriteByte(byte(h.Kind))
	buf.WriteByte(byte(h.Retries))
	buf.WriteByte(byte(h.Wait))
}

func readHandling(r *bytes.Reader) (Handling, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Handling{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return Handling{
		Priority: Priority(b[0]),
		Kind:     HandlingKind(b[1]),
		Retries:  Retries(b[2]),
		Wait:     Wait(b[3]),
	}, nil
}
