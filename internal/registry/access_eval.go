package registry

import "github.com/dreamware/starlane/internal/address"

// grantsAtLevelFunc fetches every access grant whose query_root equals
// level's textual form — the set a backing store indexes on
// access_grants.query_root.6's schema invariant.
type grantsAtLevelFunc func(level address.Point) ([]AccessGrant, error)

// grantorAccessFunc recursively evaluates a grant's by_particle
// against the same `on` target the outer walk is evaluating.
type grantorAccessFunc func(by address.Point) (Access, error)

// evaluateAccess is the backing-store-agnostic core of // access-evaluation algorithm: a leaf-to-root walk over `on`'s
// address, short-circuiting on Super/Owner, accumulating privileges
// and Or-masked permissions as grants are discovered, and deferring
// And-masks to be applied root-to-leaf once the walk completes.
// Memory and the Postgres-backed Store both call this with their own
// grant-lookup and recursive-access plumbing.
func evaluateAccess(to, on address.Point, hasOwner bool, toHierarchy, onHierarchy PointHierarchy, grantsAtLevel grantsAtLevelFunc, grantorAccess grantorAccessFunc) (Access, error) {
	if to.Equal(HyperUser) {
		return AccessSuper(hasOwner), nil
	}
	if to.Equal(on) && hasOwner {
		return AccessOwner(), nil
	}

	privileges := NoPrivileges()
	permissions := NoPermissions()
	var levelAnds [][]PermissionsMask

	traversal := on
	for {
		grants, err := grantsAtLevel(traversal)
		if err != nil {
			return Access{}, err
		}

		var ands []PermissionsMask
		for _, g := range grants {
			if !g.ToPoint.Matches(toHierarchy) || !g.OnPoint.Matches(onHierarchy) {
				continue
			}
			switch g.Kind {
			case GrantSuper:
				byAccess, err := grantorAccess(g.ByParticle)
				if err != nil {
					return Access{}, err
				}
				if byAccess.HasSuper() {
					return AccessSuper(hasOwner), nil
				}
			case GrantPrivilege:
				byAccess, err := grantorAccess(g.ByParticle)
				if err != nil {
					return Access{}, err
				}
				if byAccess.HasFull() {
					privileges.Add(g.Privilege)
				}
			case GrantPermissionsMask:
				if g.Mask.Kind == MaskAnd {
					ands = append(ands, g.Mask)
					continue
				}
				byAccess, err := grantorAccess(g.ByParticle)
				if err != nil {
					return Access{}, err
				}
				if byAccess.HasFull() {
					permissions.Or(g.Mask.Permissions)
				}
			}
		}
		levelAnds = append(levelAnds, ands)

		if traversal.IsRoot() {
			break
		}
		parent, _ := traversal.Parent()
		traversal = parent
	}

	if hasOwner {
		return AccessOwner(), nil
	}

	for i := len(levelAnds) - 1; i >= 0; i-- {
		for _, mask := range levelAnds[i] {
			permissions.And(mask.Permissions)
		}
	}

	return Access{Privileges: privileges, Permissions: permissions}, nil
}
