package wave

import (
	"fmt"

	"github.com/dreamware/starlane/internal/address"
	"github.com/google/uuid"
)

// StatusOK and StatusError are the reflected-wave status codes used in
// place of a full HTTP-style status vocabulary; drivers may use any
// uint16 value, but the core only distinguishes success from failure.
const (
	StatusOK    uint16 = 200
	StatusError uint16 = 500
)

// UltraWave is the wire-level envelope carried by every message in the
// mesh. Transports and Hops are UltraWaves of KindSignal whose Body is
// itself an encoded UltraWave (see Wrap/Unwrap).
type UltraWave struct {
	ID       uuid.UUID
	Kind     Kind
	From     address.Surface
	To       Recipients
	Method   string
	Body     Substance
	Status   uint16
	History  History
	Hops     uint8
	Handling Handling
	Scope    string
	Agent    string
	Track    bool
	// ReflectOf is the zero UUID on a directed wave, and the original
	// wave's ID on a reflected one — the correlator a reply tracker
	// matches an inbound Pong/Echo back to the Ping/Ripple awaiting it.
	ReflectOf uuid.UUID
}

// New builds a directed wave of the given kind with a fresh id and
// default handling.
func New(kind Kind, from address.Surface, to Recipients, method string, body Substance) UltraWave {
	return UltraWave{
		ID:       uuid.New(),
		Kind:     kind,
		From:     from,
		To:       to,
		Method:   method,
		Body:     body,
		History:  NewHistory(),
		Handling: DefaultHandling(),
	}
}

// NewPing builds a single-recipient request expecting a Pong.
func NewPing(from, to address.Surface, method string, body Substance) UltraWave {
	return New(KindPing, from, ToSingle(to), method, body)
}

// NewRipple builds a multi-recipient request expecting one Echo per
// recipient.
func NewRipple(from address.Surface, to Recipients, method string, body Substance) UltraWave {
	return New(KindRipple, from, to, method, body)
}

// NewSignal builds a fire-and-forget wave.
func NewSignal(from, to address.Surface, method string, body Substance) UltraWave {
	return New(KindSignal, from, ToSingle(to), method, body)
}

// Reflect builds the reflected reply to w (Pong for Ping, Echo for
// Ripple with a single responding recipient), addressed back to w's
// From surface. It panics if w's kind does not reflect; callers must
// check Kind.Reflectable() first.
func (w UltraWave) Reflect(from address.Surface, status uint16, body Substance) UltraWave {
	replyKind, ok := w.Kind.ReflectsTo()
	if !ok {
		panic(fmt.Sprintf("wave: kind %s does not reflect", w.Kind))
	}
	return UltraWave{
		ID:        uuid.New(),
		Kind:      replyKind,
		From:      from,
		To:        ToSingle(w.From),
		Method:    w.Method,
		Body:      body,
		Status:    status,
		History:   NewHistory(),
		Handling:  w.Handling,
		Scope:     w.Scope,
		Agent:     w.Agent,
		ReflectOf: w.ID,
	}
}

// ReflectError is Reflect with an error substance and StatusError,
// the standard shape for a layer failure reflected back to its
// originator.
func (w UltraWave) ReflectError(from address.Surface, err error) UltraWave {
	return w.Reflect(from, StatusError, ErrorBody(err.Error()))
}

// IsSuccess reports whether a reflected wave's status indicates
// success.
func (w UltraWave) IsSuccess() bool {
	return w.Status == StatusOK
}

// IncrementHop returns a copy of w with its hop count incremented by
// one, and whether the result still satisfies the 255-hop bound.
func (w UltraWave) IncrementHop() (UltraWave, bool) {
	if w.Hops >= 255 {
		return w, false
	}
	w.Hops++
	return w, true
}

// Wrap encodes w as the body of a new Signal addressed from/to the
// given surfaces — the mechanism used to build Transport and Hop
// envelopes.
func (w UltraWave) Wrap(from, to address.Surface, method string) (UltraWave, error) {
	payload, err := w.MarshalBinary()
	if err != nil {
		return UltraWave{}, fmt.Errorf("wave: wrap: %w", err)
	}
	envelope := NewSignal(from, to, method, Substance{Type: SubstanceTypeRaw, Payload: payload})
	envelope.History = w.History
	envelope.Hops = w.Hops
	return envelope, nil
}

// Unwrap decodes the nested UltraWave carried in w's body, the inverse
// of Wrap.
func (w UltraWave) Unwrap() (UltraWave, error) {
	if w.Kind != KindSignal {
		return UltraWave{}, fmt.Errorf("wave: unwrap: %w: not a signal envelope", ErrDecodeFailure)
	}
	var inner UltraWave
	if err := inner.UnmarshalBinary(w.Body.Payload); err != nil {
		return UltraWave{}, fmt.Errorf("wave: unwrap: %w", err)
	}
	return inner, nil
}
