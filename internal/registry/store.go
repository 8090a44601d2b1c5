package registry

import (
	"context"
	"fmt"

	"github.com/dreamware/starlane/internal/address"
)

// ErrDupe is returned by Register under StrategyCommit when the point
// is already registered.
var ErrDupe = fmt.Errorf("registry: point already registered")

// ErrNotFound is returned when an operation targets a point with no
// record.
var ErrNotFound = fmt.Errorf("registry: no such particle")

// ErrUnauthorized is returned by RemoveAccess/Chown when the acting
// principal lacks the access the operation requires.
var ErrUnauthorized = fmt.Errorf("registry: unauthorized")

// Store is the registry's full surface: authoritative
// relational store of particles, properties, and access grants. Every
// operation is transaction-per-call; callers needing atomicity across
// several operations issue them through a single Store handle but get
// no cross-call transaction guarantee beyond each call's own.
type Store interface {
	// Nuke empties every table and counter of the store. Test-only.
	Nuke(ctx context.Context) error

	Register(ctx context.Context, reg Registration) error
	AssignStar(ctx context.Context, point address.Point, star address.Point) error
	AssignHost(ctx context.Context, point address.Point, host address.Point) error
	SetStatus(ctx context.Context, point address.Point, status Status) error
	SetProperties(ctx context.Context, point address.Point, mods []PropertyMod) error
	Sequence(ctx context.Context, point address.Point) (uint64, error)
	Record(ctx context.Context, point address.Point) (Particle, error)
	Query(ctx context.Context, point address.Point) (PointHierarchy, error)
	Select(ctx context.Context, sel Selector) ([]address.Point, error)
	Delete(ctx context.Context, sel Selector) error

	Grant(ctx context.Context, grant AccessGrant) error
	RemoveAccess(ctx context.Context, id string, principal address.Point) error
	ListAccess(ctx context.Context, to *address.Point, on Selector) ([]AccessGrant, error)
	Chown(ctx context.Context, on Selector, owner address.Point, by address.Point) error
	Access(ctx context.Context, to address.Point, on address.Point) (Access, error)
}
