package registry

import "fmt"

// Kind names a particle's base type (Space, App, Mechtron, User, ...)
// plus an optional specific descriptor. The base set is open: drivers
// register their own kind names, so Base is a plain string rather than
// a closed enum.
type Kind struct {
	Base     string
	Specific *Specific
}

// Specific further narrows a Kind the way a package manager narrows a
// package: provider/vendor/product/variant/version. Only Mechtron and
// a handful of artifact-bearing kinds populate this.
type Specific struct {
	Provider string
	Vendor   string
	Product  string
	Variant  string
	Version  string
}

// NewKind builds a bare Kind with no specific descriptor.
func NewKind(base string) Kind {
	return Kind{Base: base}
}

// String renders a Kind for logging and selector matching.
func (k Kind) String() string {
	if k.Specific == nil {
		return k.Base
	}
	return fmt.Sprintf("%s<%s:%s:%s:%s:%s>", k.Base, k.Specific.Provider, k.Specific.Vendor, k.Specific.Product, k.Specific.Variant, k.Specific.Version)
}

// Status is a particle's lifecycle state.
type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusInit
	StatusReady
	StatusPanic
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInit:
		return "Init"
	case StatusReady:
		return "Ready"
	case StatusPanic:
		return "Panic"
	case StatusFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Strategy governs register's behavior when a point is already taken.
type Strategy int

const (
	// StrategyCommit fails with ErrDupe on collision.
	StrategyCommit Strategy = iota
	// StrategyEnsure succeeds silently on collision, leaving the
	// existing record untouched.
	StrategyEnsure
	// StrategyOverride succeeds on collision, replacing the existing
	// record's kind and owner.
	StrategyOverride
)

func (s Strategy) String() string {
	switch s {
	case StrategyEnsure:
		return "Ensure"
	case StrategyOverride:
		return "Override"
	default:
		return "Commit"
	}
}
