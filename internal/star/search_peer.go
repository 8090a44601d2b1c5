package star

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/topology"
	"github.com/dreamware/starlane/internal/wave"
	"github.com/google/uuid"
)

// starSearchMethod and starSearchResultMethod name the Core-to-Core
// control signals a star sends a directly adjacent peer to carry one
// leg of a flood search; provisionMethod carries a child-provisioning
// request to the star that owns its parent. All three are intercepted
// by handleFromHyperway before a transport's body is treated as a
// nested wave to inject into layer traversal.
const (
	starSearchMethod       = "StarSearch"
	starSearchResultMethod = "StarSearchResult"
	provisionMethod        = "Provision"
)

const (
	substanceTypeSearchFrame  = "StarSearchFrame"
	substanceTypeSearchResult = "StarSearchResultSet"
)

// starPeer adapts one adjacency entry to topology.Peer, encoding
// search control messages with the same deterministic binary scheme
// internal/wave uses for UltraWave itself, and delivering them as
// direct Core-to-Core signals through the owning star's to-hyperway
// path.
type starPeer struct {
	entry topology.AdjacencyEntry
	star  *Star
}

func (p *starPeer) ID() string { return p.entry.LaneID }

func (p *starPeer) SendSearch(_ context.Context, frame topology.SearchFrame) error {
	w := wave.NewSignal(
		address.NewSurface(p.star.selfPoint, address.LayerCore),
		address.NewSurface(p.entry.Star.Point(), address.LayerCore),
		starSearchMethod,
		encodeSearchFrame(frame),
	)
	p.star.sendDirect(w)
	return nil
}

func (p *starPeer) SendResult(_ context.Context, result topology.SearchResult) error {
	w := wave.NewSignal(
		address.NewSurface(p.star.selfPoint, address.LayerCore),
		address.NewSurface(p.entry.Star.Point(), address.LayerCore),
		starSearchResultMethod,
		encodeSearchResult(result),
	)
	p.star.sendDirect(w)
	return nil
}

// handleInboundSearch answers a StarSearch control signal that named
// this star as its immediate destination, dispatching to the shared
// flood-search engine with the sending peer resolved from adjacency.
func (s *Star) handleInboundSearch(ctx context.Context, w wave.UltraWave) {
	frame, err := decodeSearchFrame(w.Body)
	if err != nil {
		s.log.WithError(err).Warn("star: search: failed to decode inbound frame")
		return
	}
	arrival, ok := s.adjacencyEntryForPoint(w.From.Point)
	if !ok {
		s.log.WithField("from", w.From).Warn("star: search: frame arrived from a non-adjacent point")
		return
	}
	if err := s.bounce.HandleSearch(ctx, frame, &starPeer{entry: arrival, star: s}); err != nil {
		s.log.WithError(err).Warn("star: search: handling inbound frame failed")
	}
}

func (s *Star) handleInboundSearchResult(ctx context.Context, w wave.UltraWave) {
	result, err := decodeSearchResult(w.Body)
	if err != nil {
		s.log.WithError(err).Warn("star: search: failed to decode inbound result")
		return
	}
	arrival, ok := s.adjacencyEntryForPoint(w.From.Point)
	if !ok {
		s.log.WithField("from", w.From).Warn("star: search: result arrived from a non-adjacent point")
		return
	}
	if err := s.bounce.HandleResult(ctx, result, &starPeer{entry: arrival, star: s}); err != nil {
		s.log.WithError(err).Warn("star: search: handling inbound result failed")
	}
}

func writeStr(buf *bytes.Buffer, str string) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(str)))
	buf.Write(lenBuf[:])
	buf.WriteString(str)
}

func readStr(r *bytes.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeStarKey(buf *bytes.Buffer, k address.StarKey) {
	writeStr(buf, k.Constellation)
	writeStr(buf, k.Name)
	var idxBuf [2]byte
	binary.BigEndian.PutUint16(idxBuf[:], k.Index)
	buf.Write(idxBuf[:])
}

func readStarKey(r *bytes.Reader) (address.StarKey, error) {
	c, err := readStr(r)
	if err != nil {
		return address.StarKey{}, err
	}
	n, err := readStr(r)
	if err != nil {
		return address.StarKey{}, err
	}
	var idxBuf [2]byte
	if _, err := io.ReadFull(r, idxBuf[:]); err != nil {
		return address.StarKey{}, err
	}
	return address.NewStarKey(c, n, binary.BigEndian.Uint16(idxBuf[:])), nil
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

func encodeSearchFrame(f topology.SearchFrame) wave.Substance {
	var buf bytes.Buffer
	buf.WriteByte(byte(f.Pattern.Kind))
	writeStarKey(&buf, f.Pattern.Key)
	writeStr(&buf, f.Pattern.StarKind)
	writeStarKey(&buf, f.From)
	writeUint16(&buf, uint16(len(f.Hops)))
	for _, h := range f.Hops {
		writeStarKey(&buf, h)
	}
	txBytes, _ := f.Transaction.MarshalBinary()
	buf.Write(txBytes)
	writeUint16(&buf, uint16(f.MaxHops))
	return wave.Substance{Type: substanceTypeSearchFrame, Payload: buf.Bytes()}
}

func decodeSearchFrame(s wave.Substance) (topology.SearchFrame, error) {
	if s.Type != substanceTypeSearchFrame {
		return topology.SearchFrame{}, fmt.Errorf("star: decode search frame: %w: unexpected substance type %q", wave.ErrDecodeFailure, s.Type)
	}
	r := bytes.NewReader(s.Payload)
	kindByte, err := r.ReadByte()
	if err != nil {
		return topology.SearchFrame{}, err
	}
	key, err := readStarKey(r)
	if err != nil {
		return topology.SearchFrame{}, err
	}
	starKind, err := readStr(r)
	if err != nil {
		return topology.SearchFrame{}, err
	}
	from, err := readStarKey(r)
	if err != nil {
		return topology.SearchFrame{}, err
	}
	hopsLen, err := readUint16(r)
	if err != nil {
		return topology.SearchFrame{}, err
	}
	hops := make([]address.StarKey, 0, hopsLen)
	for i := uint16(0); i < hopsLen; i++ {
		h, err := readStarKey(r)
		if err != nil {
			return topology.SearchFrame{}, err
		}
		hops = append(hops, h)
	}
	var txBytes [16]byte
	if _, err := io.ReadFull(r, txBytes[:]); err != nil {
		return topology.SearchFrame{}, err
	}
	tx, err := uuid.FromBytes(txBytes[:])
	if err != nil {
		return topology.SearchFrame{}, err
	}
	maxHops, err := readUint16(r)
	if err != nil {
		return topology.SearchFrame{}, err
	}
	return topology.SearchFrame{
		Pattern:     topology.Pattern{Kind: topology.PatternKind(kindByte), Key: key, StarKind: starKind},
		From:        from,
		Hops:        hops,
		Transaction: tx,
		MaxHops:     int(maxHops),
	}, nil
}

func encodeSearchResult(res topology.SearchResult) wave.Substance {
	var buf bytes.Buffer
	txBytes, _ := res.Transaction.MarshalBinary()
	buf.Write(txBytes)
	writeUint16(&buf, uint16(len(res.Hits)))
	for _, h := range res.Hits {
		writeStarKey(&buf, h.Star)
		writeUint16(&buf, uint16(h.Hops))
	}
	return wave.Substance{Type: substanceTypeSearchResult, Payload: buf.Bytes()}
}

func decodeSearchResult(s wave.Substance) (topology.SearchResult, error) {
	if s.Type != substanceTypeSearchResult {
		return topology.SearchResult{}, fmt.Errorf("star: decode search result: %w: unexpected substance type %q", wave.ErrDecodeFailure, s.Type)
	}
	r := bytes.NewReader(s.Payload)
	var txBytes [16]byte
	if _, err := io.ReadFull(r, txBytes[:]); err != nil {
		return topology.SearchResult{}, err
	}
	tx, err := uuid.FromBytes(txBytes[:])
	if err != nil {
		return topology.SearchResult{}, err
	}
	hitsLen, err := readUint16(r)
	if err != nil {
		return topology.SearchResult{}, err
	}
	hits := make([]topology.SearchHit, 0, hitsLen)
	for i := uint16(0); i < hitsLen; i++ {
		star, err := readStarKey(r)
		if err != nil {
			return topology.SearchResult{}, err
		}
		hops, err := readUint16(r)
		if err != nil {
			return topology.SearchResult{}, err
		}
		hits = append(hits, topology.SearchHit{Star: star, Hops: int(hops)})
	}
	return topology.SearchResult{Transaction: tx, Hits: hits}, nil
}
