package wave

import "github.com/dreamware/starlane/internal/address"

// History records every star a wave has already traversed, so ripple
// sharding never re-enters a star it has already visited. Order is not
// significant; membership is.
type History struct {
	stars map[string]struct{}
}

// NewHistory builds an empty history set.
func NewHistory() History {
	return History{stars: make(map[string]struct{})}
}

// Add records k as visited and returns the updated history (History is
// a value type; callers must reassign the result).
func (h History) Add(k address.StarKey) History {
	if h.stars == nil {
		h.stars = make(map[string]struct{})
	}
	h.stars[k.String()] = struct{}{}
	return h
}

// Contains reports whether k has already been visited.
func (h History) Contains(k address.StarKey) bool {
	if h.stars == nil {
		return false
	}
	_, ok := h.stars[k.String()]
	return ok
}

// Len returns the number of distinct stars recorded.
func (h History) Len() int {
	return len(h.stars)
}

// Keys returns the recorded star keys' canonical string forms, for
// encoding.
func (h History) Keys() []string {
	out := make([]string, 0, len(h.stars))
	for k := range h.stars {
		out = append(out, k)
	}
	return out
}

// HistoryFromKeys rebuilds a History from canonical star key strings,
// used by the decoder (which has no StarKey parser available — history
// entries are opaque strings on the wire).
func HistoryFromKeys(keys []string) History {
	h := NewHistory()
	for _, k := range keys {
		h.stars[k] = struct{}{}
	}
	return h
}

// ContainsString reports whether the canonical star key string s has
// already been visited.
func (h History) ContainsString(s string) bool {
	if h.stars == nil {
		return false
	}
	_, ok := h.stars[s]
	return ok
}
