package wave

import "fmt"

// Kind discriminates the shape and reflective behavior of a wave.
type Kind uint8

const (
	// KindPing is a directed, single-recipient request; reflects to Pong.
	KindPing Kind = iota
	// KindPong is the reflected reply to a Ping.
	KindPong
	// KindRipple is a directed, multi-recipient request that may fan
	// out across stars; reflects to one Echo per recipient.
	KindRipple
	// KindEcho is a reflected reply to a Ripple.
	KindEcho
	// KindSignal is directed and fire-and-forget; never reflects.
	// Transports and Hops are modeled as Signals whose body is a
	// nested wave and never cross a particle boundary directly.
	KindSignal
)

var kindNames = [...]string{
	KindPing:   "Ping",
	KindPong:   "Pong",
	KindRipple: "Ripple",
	KindEcho:   "Echo",
	KindSignal: "Signal",
}

// String renders the kind's name.
func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Directed reports whether k originates a request (as opposed to
// reflecting one).
func (k Kind) Directed() bool {
	return k == KindPing || k == KindRipple || k == KindSignal
}

// Reflectable reports whether a directed wave of kind k expects a
// reflected reply on failure or completion.
func (k Kind) Reflectable() bool {
	return k == KindPing || k == KindRipple
}

// ReflectsTo returns the kind produced when reflecting a directed wave
// of kind k, and whether k reflects at all.
func (k Kind) ReflectsTo() (Kind, bool) {
	switch k {
	case KindPing:
		return KindPong, true
	case KindRipple:
		return KindEcho, true
	default:
		return 0, false
	}
}
