package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/traversal"
)

// ItemSphere names what a driver hands back for a particular item: a
// Handler runs a particle's own logic directly, a Router forwards
// further traversal to a nested item of its own (a Space routing down
// to its children, for instance).
type ItemSphere uint8

const (
	ItemSphereHandler ItemSphere = iota
	ItemSphereRouter
)

func (s ItemSphere) String() string {
	if s == ItemSphereRouter {
		return "Router"
	}
	return "Handler"
}

// BindConfig is a particle kind's declared wave-handling contract: the
// methods and scopes a kind's items answer. The language that parses a
// bind config's textual form is an external collaborator; this is the
// parsed shape a driver publishes.
type BindConfig struct {
	Version string
	Methods []string
}

// ArtRef is a reference-counted handle to a versioned artifact, here
// specialized to a driver's BindConfig — the same indirection a real
// artifact repository would resolve "latest" or a pinned version
// through, collapsed to a simple value holder since artifact-bundle
// storage is out of scope.
type ArtRef struct {
	Point  address.Point
	Config BindConfig
}

// Driver is the boundary a particle kind's implementation exposes to
// the router: Init prepares the driver once at star start-up, Item
// answers what sphere a specific point's item falls into, and Bind
// publishes the kind's wave contract. The router calls into a driver
// only through this interface and never touches a driver's internal
// state.
type Driver interface {
	Init(ctx context.Context) error
	Item(ctx context.Context, point address.Point) (ItemSphere, error)
	Bind(ctx context.Context) (ArtRef, error)
}

// ErrNoDriver is returned when a kind has no driver registered.
var ErrNoDriver = fmt.Errorf("driver: no driver registered for kind")

// Registry is an in-memory, thread-safe map from a particle kind's
// base name to the Driver that implements it. It satisfies
// star.Drivers directly, so a star can be wired straight to a
// Registry without an adapter.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry builds an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

// Register installs driver for every particle whose kind's Base equals
// base, initializing it immediately.
func (r *Registry) Register(ctx context.Context, base string, d Driver) error {
	if err := d.Init(ctx); err != nil {
		return fmt.Errorf("driver: init %s: %w", base, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[base] = d
	return nil
}

// Lookup returns the driver registered for kind.Base.
func (r *Registry) Lookup(kind registry.Kind) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[kind.Base]
	return d, ok
}

// Deliver implements star.Drivers: it resolves the traversal's kind to
// a driver and asks it for the item's sphere, the full extent of what
// the router itself needs from a driver. Dispatching the traversal
// into the sphere's own handling logic belongs to the driver
// implementation, an external collaborator.
func (r *Registry) Deliver(ctx context.Context, trav *traversal.Traversal) error {
	d, ok := r.Lookup(trav.Record.Kind)
	if !ok {
		return fmt.Errorf("driver: deliver %s: %w: %s", trav.Point, ErrNoDriver, trav.Record.Kind)
	}
	if _, err := d.Item(ctx, trav.Point); err != nil {
		return fmt.Errorf("driver: deliver %s: %w", trav.Point, err)
	}
	return nil
}
