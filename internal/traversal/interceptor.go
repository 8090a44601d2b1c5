package traversal

import (
	"context"
	"sync"

	"github.com/dreamware/starlane/internal/address"
)

// FieldInterceptor implements one concern applied at a particle's
// Field layer — tracing, admission, rate limiting.
// Visit fails the traversal when it returns an error.
type FieldInterceptor interface {
	Visit(ctx context.Context, trav *Traversal) error
}

// ShellInterceptor implements one concern applied at a particle's
// Shell layer, with access to that particle's session-scoped state.
type ShellInterceptor interface {
	Visit(ctx context.Context, trav *Traversal, state *ShellState) error
}

// ShellState is the session/state-keyed store a Shell interceptor may
// read or write, one instance per particle address, living as long as
// the owning star does.
type ShellState struct {
	Point address.Point

	mu     sync.Mutex
	values map[string]string
}

func newShellState(point address.Point) *ShellState {
	return &ShellState{Point: point, values: make(map[string]string)}
}

// Get returns a stored value and whether it was present.
func (s *ShellState) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value.
func (s *ShellState) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// ShellStates owns one ShellState per particle address, created on
// first access.
type ShellStates struct {
	mu      sync.Mutex
	byPoint map[string]*ShellState
}

// NewShellStates builds an empty state table.
func NewShellStates() *ShellStates {
	return &ShellStates{byPoint: make(map[string]*ShellState)}
}

// For returns the ShellState for point, creating it if this is the
// first traversal to reach that particle's Shell.
func (s *ShellStates) For(point address.Point) *ShellState {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := point.String()
	st, ok := s.byPoint[key]
	if !ok {
		st = newShellState(point)
		s.byPoint[key] = st
	}
	return st
}
