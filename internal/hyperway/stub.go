package hyperway

import "github.com/dreamware/starlane/internal/address"

// Stub identifies an endpoint mounted into an interchange: the remote's
// surface plus the agent (principal identity) it authenticated as.
type Stub struct {
	RemoteSurface address.Surface
	Agent         string
}

// Key returns a value suitable for map lookups; two stubs with equal
// RemoteSurface and Agent produce equal keys.
func (s Stub) Key() string {
	return s.RemoteSurface.String() + "#" + s.Agent
}

// Equal reports whether s and other identify the same mount.
func (s Stub) Equal(other Stub) bool {
	return s.Agent == other.Agent && s.RemoteSurface.Equal(other.RemoteSurface)
}
