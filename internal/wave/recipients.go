package wave

import "github.com/dreamware/starlane/internal/address"

// RecipientsKind discriminates how a wave's destinations are expressed.
type RecipientsKind uint8

const (
	// RecipientsSingle addresses exactly one surface.
	RecipientsSingle RecipientsKind = iota
	// RecipientsMulti addresses an explicit list of surfaces. Only
	// Ripple waves may carry Multi recipients; any other kind with
	// Multi recipients is rejected with ErrUnimplemented rather than
	// silently degraded, per the design notes.
	RecipientsMulti
	// RecipientsStars addresses every star reachable from the
	// originator (used by Ripple sharding to reach a whole
	// constellation).
	RecipientsStars
	// RecipientsWatchers addresses every surface currently watching
	// the originating point.
	RecipientsWatchers
)

// Recipients names the destination(s) of a wave.
type Recipients struct {
	Kind     RecipientsKind
	Surfaces []address.Surface
}

// ToSingle builds a single-recipient destination.
func ToSingle(s address.Surface) Recipients {
	return Recipients{Kind: RecipientsSingle, Surfaces: []address.Surface{s}}
}

// ToMulti builds an explicit multi-recipient destination, only valid
// paired with a Ripple wave.
func ToMulti(surfaces ...address.Surface) Recipients {
	cp := make([]address.Surface, len(surfaces))
	copy(cp, surfaces)
	return Recipients{Kind: RecipientsMulti, Surfaces: cp}
}

// ToStars builds a recipients expression targeting every reachable star.
func ToStars() Recipients {
	return Recipients{Kind: RecipientsStars}
}

// ToWatchers builds a recipients expression targeting active watchers.
func ToWatchers() Recipients {
	return Recipients{Kind: RecipientsWatchers}
}

// Single returns the sole destination surface and true if r addresses
// exactly one recipient.
func (r Recipients) Single() (address.Surface, bool) {
	if r.Kind != RecipientsSingle || len(r.Surfaces) != 1 {
		return address.Surface{}, false
	}
	return r.Surfaces[0], true
}
