package wave

// Substance is a wave's opaque body: a type tag plus its encoded bytes.
// The wave codec treats every substance as an uninterpreted byte blob;
// interpreting the bytes according to Type is the concern of whichever
// component declared that type (drivers, the gate, the registry).
type Substance struct {
	Type    string
	Payload []byte
}

// Well-known substance type tags used by the core (drivers may define
// their own).
const (
	SubstanceTypeEmpty    = ""
	SubstanceTypeKnock    = "Knock"
	SubstanceTypeLocation = "Location"
	SubstanceTypeError    = "Error"
	SubstanceTypeGreet    = "Greet"
	SubstanceTypeText     = "Text"
	SubstanceTypeRaw      = "Raw"
)

// Empty is the zero substance, carried by waves with no meaningful
// body (e.g. a bare Ping used as a liveness probe).
func Empty() Substance {
	return Substance{}
}

// Text wraps a UTF-8 string as a substance.
func Text(s string) Substance {
	return Substance{Type: SubstanceTypeText, Payload: []byte(s)}
}

// Raw wraps an arbitrary byte slice as a substance.
func Raw(b []byte) Substance {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Substance{Type: SubstanceTypeRaw, Payload: cp}
}

// ErrorBody wraps an error's message as a reflected failure substance.
func ErrorBody(msg string) Substance {
	return Substance{Type: SubstanceTypeError, Payload: []byte(msg)}
}

// IsError reports whether s carries a reflected failure.
func (s Substance) IsError() bool {
	return s.Type == SubstanceTypeError
}

// String renders the payload as a string, for error substances and
// diagnostics; it does not interpret binary payload types.
func (s Substance) String() string {
	return string(s.Payload)
}
