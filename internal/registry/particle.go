package registry

import (
	"fmt"

	"github.com/dreamware/starlane/internal/address"
)

// Location records where a particle has been provisioned: the star
// that owns its router state, and optionally the host machine running
// that star.
type Location struct {
	Star address.Point
	Host address.Point
}

// Provisioned reports whether the particle has been assigned a star.
func (l Location) Provisioned() bool {
	return !l.Star.IsRoot()
}

// Property is a single key/value pair attached to a particle. Locked
// properties reject every further Set or UnSet mod.
type Property struct {
	Key    string
	Value  string
	Locked bool
}

// PropertyMod is either a Set (with an optional lock) or an UnSet,
// applied atomically as a batch by set_properties.
type PropertyMod struct {
	Key    string
	Unset  bool
	Value  string
	Lock   bool
}

// SetMod builds a Set mod.
func SetMod(key, value string, lock bool) PropertyMod {
	return PropertyMod{Key: key, Value: value, Lock: lock}
}

// UnsetMod builds an UnSet mod.
func UnsetMod(key string) PropertyMod {
	return PropertyMod{Key: key, Unset: true}
}

// Registration is the input to Store.Register.
type Registration struct {
	Point      address.Point
	Kind       Kind
	Owner      address.Point
	Strategy   Strategy
	Status     Status
	Properties []Property
}

// Particle is the full registry record for an address.
type Particle struct {
	Point      address.Point
	Kind       Kind
	Owner      address.Point
	Status     Status
	Location   Location
	Properties map[string]Property
}

// ErrPropertyLocked is returned by SetProperties when a mod targets a
// locked property.
var ErrPropertyLocked = fmt.Errorf("registry: property is locked")

// applyMods mutates p's Properties map in place per mods, in order,
// failing the whole batch (no partial application) if any mod targets
// a locked property. This mirrors set_properties's invariant that
// locked properties "may not be overwritten or unset."
func applyMods(props map[string]Property, mods []PropertyMod) error {
	for _, m := range mods {
		if existing, ok := props[m.Key]; ok && existing.Locked {
			return fmt.Errorf("%w: %s", ErrPropertyLocked, m.Key)
		}
	}
	for _, m := range mods {
		if m.Unset {
			delete(props, m.Key)
			continue
		}
		props[m.Key] = Property{Key: m.Key, Value: m.Value, Locked: m.Lock}
	}
	return nil
}
