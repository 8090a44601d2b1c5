package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/dreamware/starlane/internal/address"
	"github.com/google/uuid"
)

// Memory is an in-memory Store, used by unit tests
// and the integration harness so they never need a live Postgres. It
// implements exactly the same invariants and access algorithm as
// postgres.go, just over Go maps instead of SQL.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Particle
	seq     map[string]uint64
	grants  map[string]AccessGrant
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*Particle),
		seq:     make(map[string]uint64),
		grants:  make(map[string]AccessGrant),
	}
}

// Nuke implements Store.
func (m *Memory) Nuke(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*Particle)
	m.seq = make(map[string]uint64)
	m.grants = make(map[string]AccessGrant)
	return nil
}

// Register implements Store.
func (m *Memory) Register(_ context.Context, reg Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if parent, ok := reg.Point.Parent(); ok && !parent.IsRoot() {
		if _, exists := m.records[parent.String()]; !exists {
			return fmt.Errorf("registry: register %s: %w: parent %s not registered", reg.Point, ErrNotFound, parent)
		}
	}

	key := reg.Point.String()
	existing, dupe := m.records[key]
	switch {
	case !dupe:
		props := make(map[string]Property, len(reg.Properties))
		for _, p := range reg.Properties {
			props[p.Key] = p
		}
		m.records[key] = &Particle{
			Point:      reg.Point,
			Kind:       reg.Kind,
			Owner:      reg.Owner,
			Status:     reg.Status,
			Properties: props,
		}
		return nil
	case reg.Strategy == StrategyCommit:
		return fmt.Errorf("registry: register %s: %w", reg.Point, ErrDupe)
	case reg.Strategy == StrategyEnsure:
		return nil
	default: // StrategyOverride
		existing.Kind = reg.Kind
		existing.Owner = reg.Owner
		return nil
	}
}

// AssignStar implements Store.
func (m *Memory) AssignStar(_ context.Context, point, star address.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[point.String()]
	if !ok {
		return fmt.Errorf("registry: assign_star %s: %w", point, ErrNotFound)
	}
	rec.Location.Star = star
	return nil
}

// AssignHost implements Store.
func (m *Memory) AssignHost(_ context.Context, point, host address.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[point.String()]
	if !ok {
		return fmt.Errorf("registry: assign_host %s: %w", point, ErrNotFound)
	}
	rec.Location.Host = host
	return nil
}

func statusRank(s Status) int {
	switch s {
	case StatusPending:
		return 1
	case StatusInit:
		return 2
	case StatusReady:
		return 3
	case StatusPanic:
		return 4
	case StatusFatal:
		return 5
	default:
		return 0
	}
}

// statusTransitionAllowed enforces "transitions are
// monotonic except Ready<->Panic" particle-status invariant.
func statusTransitionAllowed(from, to Status) bool {
	if from == to {
		return true
	}
	if (from == StatusReady && to == StatusPanic) || (from == StatusPanic && to == StatusReady) {
		return true
	}
	return statusRank(to) > statusRank(from)
}

// SetStatus implements Store.
func (m *Memory) SetStatus(_ context.Context, point address.Point, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[point.String()]
	if !ok {
		return fmt.Errorf("registry: set_status %s: %w", point, ErrNotFound)
	}
	if !statusTransitionAllowed(rec.Status, status) {
		return fmt.Errorf("registry: set_status %s: illegal transition %s -> %s", point, rec.Status, status)
	}
	rec.Status = status
	return nil
}

// SetProperties implements Store.
func (m *Memory) SetProperties(_ context.Context, point address.Point, mods []PropertyMod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[point.String()]
	if !ok {
		return fmt.Errorf("registry: set_properties %s: %w", point, ErrNotFound)
	}
	return applyMods(rec.Properties, mods)
}

// Sequence implements Store.
func (m *Memory) Sequence(_ context.Context, point address.Point) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := point.String()
	if _, ok := m.records[key]; !ok {
		return 0, fmt.Errorf("registry: sequence %s: %w", point, ErrNotFound)
	}
	m.seq[key]++
	return m.seq[key], nil
}

// Record implements Store.
func (m *Memory) Record(_ context.Context, point address.Point) (Particle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[point.String()]
	if !ok {
		return Particle{}, fmt.Errorf("registry: record %s: %w", point, ErrNotFound)
	}
	return cloneParticle(rec), nil
}

func cloneParticle(rec *Particle) Particle {
	props := make(map[string]Property, len(rec.Properties))
	for k, v := range rec.Properties {
		props[k] = v
	}
	out := *rec
	out.Properties = props
	return out
}

// Query implements Store: walk root to point assembling each
// segment's registered kind.
func (m *Memory) Query(_ context.Context, point address.Point) (PointHierarchy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryLocked(point)
}

func (m *Memory) queryLocked(point address.Point) (PointHierarchy, error) {
	segments := point.Segments()
	hierarchy := make(PointHierarchy, 0, len(segments))
	cur := address.Root()
	for _, seg := range segments {
		cur = cur.Child(seg)
		rec, ok := m.records[cur.String()]
		if !ok {
			return nil, fmt.Errorf("registry: query %s: %w: %s not registered", point, ErrNotFound, cur)
		}
		hierarchy = append(hierarchy, SegmentKind{Segment: seg, Kind: rec.Kind})
	}
	return hierarchy, nil
}

// Select implements Store. The in-memory backend scans every record
// rather than recursing hop-by-hop the way a SQL backend's sub_select
// must; both satisfy the same "select completeness" property since matching is defined purely in terms of the
// assembled PointHierarchy.
func (m *Memory) Select(_ context.Context, sel Selector) ([]address.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []address.Point
	for key, rec := range m.records {
		h, err := m.queryLocked(rec.Point)
		if err != nil {
			return nil, fmt.Errorf("registry: select: %w", err)
		}
		if sel.Matches(h) {
			out = append(out, rec.Point)
		}
		_ = key
	}
	return out, nil
}

// Delete implements Store: every point matched by sel, plus all of
// its descendants, is removed.
func (m *Memory) Delete(_ context.Context, sel Selector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched, err := m.selectLocked(sel)
	if err != nil {
		return err
	}
	for _, p := range matched {
		for key, rec := range m.records {
			if rec.Point.Equal(p) || rec.Point.IsDescendantOf(p) {
				delete(m.records, key)
				delete(m.seq, key)
			}
		}
	}
	return nil
}

func (m *Memory) selectLocked(sel Selector) ([]address.Point, error) {
	var out []address.Point
	for _, rec := range m.records {
		h, err := m.queryLocked(rec.Point)
		if err != nil {
			return nil, fmt.Errorf("registry: select: %w", err)
		}
		if sel.Matches(h) {
			out = append(out, rec.Point)
		}
	}
	return out, nil
}

// Grant implements Store.
func (m *Memory) Grant(_ context.Context, grant AccessGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	m.grants[grant.ID] = grant
	return nil
}

// RemoveAccess implements Store: principal must hold full access on
// the grant's on-point query root to revoke it.
func (m *Memory) RemoveAccess(_ context.Context, id string, principal address.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	grant, ok := m.grants[id]
	if !ok {
		return fmt.Errorf("registry: remove_access %s: %w", id, ErrNotFound)
	}
	onRoot, err := address.ParsePoint(grant.OnPoint.QueryRoot())
	if err != nil {
		return fmt.Errorf("registry: remove_access %s: %w", id, err)
	}
	access, err := m.access(principal, onRoot)
	if err != nil {
		return err
	}
	if !access.HasFull() {
		return fmt.Errorf("registry: remove_access %s: %w", id, ErrUnauthorized)
	}
	delete(m.grants, id)
	return nil
}

// ListAccess implements Store.
func (m *Memory) ListAccess(_ context.Context, to *address.Point, on Selector) ([]AccessGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched, err := m.selectLocked(on)
	if err != nil {
		return nil, err
	}

	var toHierarchy PointHierarchy
	if to != nil {
		toHierarchy, err = m.queryLocked(*to)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]AccessGrant)
	for _, p := range matched {
		for _, g := range m.grants {
			if g.OnPoint.QueryRoot() != p.String() {
				continue
			}
			if to != nil && !g.ToPoint.Matches(toHierarchy) {
				continue
			}
			seen[g.ID] = g
		}
	}
	out := make([]AccessGrant, 0, len(seen))
	for _, g := range seen {
		out = append(out, g)
	}
	return out, nil
}

// Chown implements Store: by must hold super access on every point
// matched by on, checked before any mutation so the operation never
// applies partially.
func (m *Memory) Chown(_ context.Context, on Selector, owner, by address.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched, err := m.selectLocked(on)
	if err != nil {
		return err
	}
	for _, p := range matched {
		access, err := m.access(by, p)
		if err != nil {
			return err
		}
		if !access.HasSuper() {
			return fmt.Errorf("registry: chown %s: %w: only a super can change owners", p, ErrUnauthorized)
		}
	}
	for _, p := range matched {
		m.records[p.String()].Owner = owner
	}
	return nil
}

// Access implements Store, running the grant evaluation algorithm.
func (m *Memory) Access(_ context.Context, to, on address.Point) (Access, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access(to, on)
}

// access is the unlocked recursive core; callers must already hold
// m.mu for reading. It never re-acquires the lock, so its recursive
// calls (evaluating a grantor's own access) are safe.
func (m *Memory) access(to, on address.Point) (Access, error) {
	onRec, onExists := m.records[on.String()]
	hasOwner := onExists && onRec.Owner.Equal(to)

	if to.Equal(HyperUser) {
		return AccessSuper(hasOwner), nil
	}
	if to.Equal(on) && hasOwner {
		return AccessOwner(), nil
	}

	toHierarchy, err := m.queryLocked(to)
	if err != nil {
		return Access{}, err
	}
	onHierarchy, err := m.queryLocked(on)
	if err != nil {
		return Access{}, err
	}

	grantsAtLevel := func(level address.Point) ([]AccessGrant, error) {
		root := level.String()
		var out []AccessGrant
		for _, g := range m.grants {
			if g.OnPoint.QueryRoot() == root {
				out = append(out, g)
			}
		}
		return out, nil
	}
	grantorAccess := func(by address.Point) (Access, error) {
		return m.access(by, on)
	}

	return evaluateAccess(to, on, hasOwner, toHierarchy, onHierarchy, grantsAtLevel, grantorAccess)
}

var _ Store = (*Memory)(nil)
