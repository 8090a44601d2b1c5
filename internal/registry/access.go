package registry

import (
	"strings"

	"github.com/dreamware/starlane/internal/address"
)

// HyperUser is the one principal that always carries Super access,
// the root of trust every other grant is ultimately rooted under.
var HyperUser = address.MustParsePoint("hyperspace:users:hyperuser")

// Permissions is the (create, select, delete, read, write, execute)
// tuple describes, one bit per operation. Upper-case in the
// string form means granted; lower-case means not granted.
type Permissions struct {
	Create, Select, Delete bool
	Read, Write, Execute   bool
}

// NoPermissions is the all-ungranted tuple.
func NoPermissions() Permissions { return Permissions{} }

// ParsePermissions parses the "csd-rwx"-shaped string form: three
// child-operation letters, a literal '-', then three particle-operation
// letters, case indicating grant state.
func ParsePermissions(s string) (Permissions, bool) {
	if len(s) != 7 || s[3] != '-' {
		return Permissions{}, false
	}
	bit := func(b byte, upper byte) bool { return b == upper }
	return Permissions{
		Create:  bit(s[0], 'C'),
		Select:  bit(s[1], 'S'),
		Delete:  bit(s[2], 'D'),
		Read:    bit(s[4], 'R'),
		Write:   bit(s[5], 'W'),
		Execute: bit(s[6], 'X'),
	}, true
}

// String renders the "csd-rwx" form.
func (p Permissions) String() string {
	ch := func(granted bool, upper, lower byte) byte {
		if granted {
			return upper
		}
		return lower
	}
	return string([]byte{
		ch(p.Create, 'C', 'c'),
		ch(p.Select, 'S', 's'),
		ch(p.Delete, 'D', 'd'),
		'-',
		ch(p.Read, 'R', 'r'),
		ch(p.Write, 'W', 'w'),
		ch(p.Execute, 'X', 'x'),
	})
}

// Or sets any bit mask grants, leaving already-granted bits untouched.
func (p *Permissions) Or(mask Permissions) {
	p.Create = p.Create || mask.Create
	p.Select = p.Select || mask.Select
	p.Delete = p.Delete || mask.Delete
	p.Read = p.Read || mask.Read
	p.Write = p.Write || mask.Write
	p.Execute = p.Execute || mask.Execute
}

// And restricts to only the bits mask also grants.
func (p *Permissions) And(mask Permissions) {
	p.Create = p.Create && mask.Create
	p.Select = p.Select && mask.Select
	p.Delete = p.Delete && mask.Delete
	p.Read = p.Read && mask.Read
	p.Write = p.Write && mask.Write
	p.Execute = p.Execute && mask.Execute
}

// MaskKind distinguishes an Or-mask (widens permissions, applied as
// grants are discovered walking up) from an And-mask (narrows
// permissions, applied root-to-leaf once the walk completes).
type MaskKind int

const (
	MaskOr MaskKind = iota
	MaskAnd
)

// PermissionsMask pairs a mask kind with the permission bits it
// carries; its string form is "+csd-Rwx" for Or, "&csd-Rwx" for And.
type PermissionsMask struct {
	Kind        MaskKind
	Permissions Permissions
}

// ParsePermissionsMask parses the "+csd-Rwx" / "&csd-Rwx" form.
func ParsePermissionsMask(s string) (PermissionsMask, bool) {
	if len(s) == 0 {
		return PermissionsMask{}, false
	}
	var kind MaskKind
	switch s[0] {
	case '+':
		kind = MaskOr
	case '&':
		kind = MaskAnd
	default:
		return PermissionsMask{}, false
	}
	perms, ok := ParsePermissions(s[1:])
	if !ok {
		return PermissionsMask{}, false
	}
	return PermissionsMask{Kind: kind, Permissions: perms}, true
}

func (m PermissionsMask) String() string {
	prefix := byte('+')
	if m.Kind == MaskAnd {
		prefix = '&'
	}
	return string(prefix) + m.Permissions.String()
}

// Privilege is a named capability granted independently of the
// (create,select,delete,read,write,execute) tuple, such as
// "property:email:read". PrivilegeAll grants every privilege.
const PrivilegeAll = "*"

// Privileges is an accumulated set of granted privilege names.
type Privileges map[string]struct{}

// NoPrivileges returns an empty privilege set.
func NoPrivileges() Privileges { return make(Privileges) }

// Add grants name into the set.
func (p Privileges) Add(name string) { p[name] = struct{}{} }

// Has reports whether name (or PrivilegeAll) is granted.
func (p Privileges) Has(name string) bool {
	if _, ok := p[PrivilegeAll]; ok {
		return true
	}
	_, ok := p[name]
	return ok
}

func (p Privileges) String() string {
	if len(p) == 0 {
		return "none"
	}
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	return strings.Join(names, ",")
}

// AccessGrantKind discriminates the three kinds of grant // describes.
type AccessGrantKind int

const (
	GrantSuper AccessGrantKind = iota
	GrantPrivilege
	GrantPermissionsMask
)

// AccessGrant is a single row of the access_grants table: by_particle
// grants something to principals matching to_point, scoped to
// particles matching on_point.
type AccessGrant struct {
	ID         string
	Kind       AccessGrantKind
	Privilege  string          // set when Kind == GrantPrivilege
	Mask       PermissionsMask // set when Kind == GrantPermissionsMask
	OnPoint    Selector
	ToPoint    Selector
	ByParticle address.Point
}

// Access is the outcome of an access-evaluation walk: either a
// short-circuited Super/SuperOwner/Owner, or an enumerated set of
// privileges and permissions.
type Access struct {
	Super       bool
	SuperOwner  bool
	Owner       bool
	Privileges  Privileges
	Permissions Permissions
}

// AccessOwner builds an Owner-only access result.
func AccessOwner() Access {
	return Access{Owner: true, Privileges: NoPrivileges()}
}

// AccessSuper builds a Super access result, SuperOwner if owner is
// also true.
func AccessSuper(owner bool) Access {
	if owner {
		return Access{Super: true, SuperOwner: true, Privileges: NoPrivileges()}
	}
	return Access{Super: true, Privileges: NoPrivileges()}
}

// HasSuper reports Super or SuperOwner.
func (a Access) HasSuper() bool { return a.Super || a.SuperOwner }

// HasOwner reports Owner or SuperOwner.
func (a Access) HasOwner() bool { return a.Owner || a.SuperOwner }

// HasFull is "has full access" predicate: Super ∨
// SuperOwner ∨ Owner.
func (a Access) HasFull() bool { return a.HasSuper() || a.HasOwner() }

// CheckPrivilege reports whether name is granted, either directly or
// implied by full access.
func (a Access) CheckPrivilege(name string) bool {
	if a.HasFull() {
		return true
	}
	return a.Privileges != nil && a.Privileges.Has(name)
}
