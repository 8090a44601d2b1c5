package registry

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/dreamware/starlane/internal/address"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres is a pgxpool-backed Store, the "single authoritative
// relational store" describes for a real deployment.
// It is modeled directly on celestiaorg-popsigner's repository
// package: narrow query methods over a shared *pgxpool.Pool, schema
// managed by golang-migrate against an embedded migrations tree.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an already-connected pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate applies the embedded migration tree to dbURL.
func Migrate(dbURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("registry: migrate: build source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("registry: migrate: new instance: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("registry: migrate: up: %w", err)
	}
	return nil
}

// Nuke implements Store by truncating every table; test-only.
func (p *Postgres) Nuke(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `TRUNCATE access_grants, properties, sequences, particles RESTART IDENTITY CASCADE`)
	return err
}

// Register implements Store.
func (p *Postgres) Register(ctx context.Context, reg Registration) error {
	if parent, ok := reg.Point.Parent(); ok && !parent.IsRoot() {
		var exists bool
		if err := p.pool.QueryRow(ctx, `SELECT count(*) > 0 FROM particles WHERE point = $1`, parent.String()).Scan(&exists); err != nil {
			return fmt.Errorf("registry: register %s: %w", reg.Point, err)
		}
		if !exists {
			return fmt.Errorf("registry: register %s: %w: parent %s not registered", reg.Point, ErrNotFound, parent)
		}
	}

	id := uuid.New()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO particles (id, point, kind_base, owner_point, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, reg.Point.String(), reg.Kind.Base, reg.Owner.String(), int(reg.Status))

	var pgErr interface{ SQLState() string }
	if err != nil && errors.As(err, &pgErr) && pgErr.SQLState() == "23505" { // unique_violation
		switch reg.Strategy {
		case StrategyCommit:
			return fmt.Errorf("registry: register %s: %w", reg.Point, ErrDupe)
		case StrategyEnsure:
			return nil
		case StrategyOverride:
			_, err := p.pool.Exec(ctx, `UPDATE particles SET kind_base = $2, owner_point = $3 WHERE point = $1`,
				reg.Point.String(), reg.Kind.Base, reg.Owner.String())
			return err
		}
	}
	if err != nil {
		return fmt.Errorf("registry: register %s: %w", reg.Point, err)
	}
	for _, prop := range reg.Properties {
		if _, err := p.pool.Exec(ctx,
			`INSERT INTO properties (resource_id, key, value, locked) VALUES ($1, $2, $3, $4)`,
			id, prop.Key, prop.Value, prop.Locked); err != nil {
			return fmt.Errorf("registry: register %s: property %s: %w", reg.Point, prop.Key, err)
		}
	}
	return nil
}

// AssignStar implements Store.
func (p *Postgres) AssignStar(ctx context.Context, point, star address.Point) error {
	tag, err := p.pool.Exec(ctx, `UPDATE particles SET star_point = $2 WHERE point = $1`, point.String(), star.String())
	if err != nil {
		return fmt.Errorf("registry: assign_star %s: %w", point, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registry: assign_star %s: %w", point, ErrNotFound)
	}
	return nil
}

// AssignHost implements Store.
func (p *Postgres) AssignHost(ctx context.Context, point, host address.Point) error {
	tag, err := p.pool.Exec(ctx, `UPDATE particles SET host_point = $2 WHERE point = $1`, point.String(), host.String())
	if err != nil {
		return fmt.Errorf("registry: assign_host %s: %w", point, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registry: assign_host %s: %w", point, ErrNotFound)
	}
	return nil
}

// SetStatus implements Store.
func (p *Postgres) SetStatus(ctx context.Context, point address.Point, status Status) error {
	var current int
	if err := p.pool.QueryRow(ctx, `SELECT status FROM particles WHERE point = $1`, point.String()).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("registry: set_status %s: %w", point, ErrNotFound)
		}
		return fmt.Errorf("registry: set_status %s: %w", point, err)
	}
	if !statusTransitionAllowed(Status(current), status) {
		return fmt.Errorf("registry: set_status %s: illegal transition %s -> %s", point, Status(current), status)
	}
	_, err := p.pool.Exec(ctx, `UPDATE particles SET status = $2 WHERE point = $1`, point.String(), int(status))
	return err
}

// SetProperties implements Store. Lock checks happen before any
// mutation so a locked-property conflict never leaves a partial batch
// applied.
func (p *Postgres) SetProperties(ctx context.Context, point address.Point, mods []PropertyMod) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("registry: set_properties %s: %w", point, err)
	}
	defer tx.Rollback(ctx)

	var resourceID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM particles WHERE point = $1`, point.String()).Scan(&resourceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("registry: set_properties %s: %w", point, ErrNotFound)
		}
		return fmt.Errorf("registry: set_properties %s: %w", point, err)
	}

	for _, m := range mods {
		var locked bool
		err := tx.QueryRow(ctx, `SELECT locked FROM properties WHERE resource_id = $1 AND key = $2`, resourceID, m.Key).Scan(&locked)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("registry: set_properties %s: %w", point, err)
		}
		if locked {
			return fmt.Errorf("registry: set_properties %s: %w: %s", point, ErrPropertyLocked, m.Key)
		}
	}

	for _, m := range mods {
		if m.Unset {
			if _, err := tx.Exec(ctx, `DELETE FROM properties WHERE resource_id = $1 AND key = $2`, resourceID, m.Key); err != nil {
				return fmt.Errorf("registry: set_properties %s: %w", point, err)
			}
			continue
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO properties (resource_id, key, value, locked) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (resource_id, key) DO UPDATE SET value = $3, locked = $4`,
			resourceID, m.Key, m.Value, m.Lock)
		if err != nil {
			return fmt.Errorf("registry: set_properties %s: %w", point, err)
		}
	}
	return tx.Commit(ctx)
}

// Sequence implements Store.
func (p *Postgres) Sequence(ctx context.Context, point address.Point) (uint64, error) {
	var value int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO sequences (point, value) VALUES ($1, 1)
		 ON CONFLICT (point) DO UPDATE SET value = sequences.value + 1
		 RETURNING value`,
		point.String()).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("registry: sequence %s: %w", point, err)
	}
	return uint64(value), nil
}

// Record implements Store.
func (p *Postgres) Record(ctx context.Context, point address.Point) (Particle, error) {
	var (
		id                    uuid.UUID
		kindBase, ownerPoint  string
		status                int
		starPoint, hostPoint  *string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, kind_base, owner_point, status, star_point, host_point FROM particles WHERE point = $1`,
		point.String()).Scan(&id, &kindBase, &ownerPoint, &status, &starPoint, &hostPoint)
	if errors.Is(err, pgx.ErrNoRows) {
		return Particle{}, fmt.Errorf("registry: record %s: %w", point, ErrNotFound)
	}
	if err != nil {
		return Particle{}, fmt.Errorf("registry: record %s: %w", point, err)
	}

	owner, err := address.ParsePoint(ownerPoint)
	if err != nil {
		return Particle{}, fmt.Errorf("registry: record %s: owner: %w", point, err)
	}
	particle := Particle{
		Point:      point,
		Kind:       NewKind(kindBase),
		Owner:      owner,
		Status:     Status(status),
		Properties: make(map[string]Property),
	}
	if starPoint != nil {
		star, err := address.ParsePoint(*starPoint)
		if err == nil {
			particle.Location.Star = star
		}
	}
	if hostPoint != nil {
		host, err := address.ParsePoint(*hostPoint)
		if err == nil {
			particle.Location.Host = host
		}
	}

	rows, err := p.pool.Query(ctx, `SELECT key, value, locked FROM properties WHERE resource_id = $1`, id)
	if err != nil {
		return Particle{}, fmt.Errorf("registry: record %s: properties: %w", point, err)
	}
	defer rows.Close()
	for rows.Next() {
		var prop Property
		if err := rows.Scan(&prop.Key, &prop.Value, &prop.Locked); err != nil {
			return Particle{}, fmt.Errorf("registry: record %s: properties: %w", point, err)
		}
		particle.Properties[prop.Key] = prop
	}
	return particle, rows.Err()
}

// Query implements Store.
func (p *Postgres) Query(ctx context.Context, point address.Point) (PointHierarchy, error) {
	segments := point.Segments()
	hierarchy := make(PointHierarchy, 0, len(segments))
	cur := address.Root()
	for _, seg := range segments {
		cur = cur.Child(seg)
		var kindBase string
		err := p.pool.QueryRow(ctx, `SELECT kind_base FROM particles WHERE point = $1`, cur.String()).Scan(&kindBase)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("registry: query %s: %w: %s not registered", point, ErrNotFound, cur)
		}
		if err != nil {
			return nil, fmt.Errorf("registry: query %s: %w", point, err)
		}
		hierarchy = append(hierarchy, SegmentKind{Segment: seg, Kind: NewKind(kindBase)})
	}
	return hierarchy, nil
}

// allPoints lists every registered point; Select and Delete both scan
// this set and filter in Go rather than walking the tree hop-by-hop in
// SQL, the same simplification internal/registry's in-memory Store
// makes (see access_eval.go's doc comment on the shared algorithm).
func (p *Postgres) allPoints(ctx context.Context) ([]address.Point, error) {
	rows, err := p.pool.Query(ctx, `SELECT point FROM particles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []address.Point
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		pt, err := address.ParsePoint(s)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

// Select implements Store.
func (p *Postgres) Select(ctx context.Context, sel Selector) ([]address.Point, error) {
	points, err := p.allPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: select: %w", err)
	}
	var out []address.Point
	for _, pt := range points {
		h, err := p.Query(ctx, pt)
		if err != nil {
			return nil, fmt.Errorf("registry: select: %w", err)
		}
		if sel.Matches(h) {
			out = append(out, pt)
		}
	}
	return out, nil
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, sel Selector) error {
	matched, err := p.Select(ctx, sel)
	if err != nil {
		return err
	}
	all, err := p.allPoints(ctx)
	if err != nil {
		return err
	}
	for _, root := range matched {
		for _, pt := range all {
			if pt.Equal(root) || pt.IsDescendantOf(root) {
				if _, err := p.pool.Exec(ctx, `DELETE FROM particles WHERE point = $1`, pt.String()); err != nil {
					return fmt.Errorf("registry: delete %s: %w", pt, err)
				}
			}
		}
	}
	return nil
}

// Grant implements Store.
func (p *Postgres) Grant(ctx context.Context, grant AccessGrant) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	var byID uuid.UUID
	if err := p.pool.QueryRow(ctx, `SELECT id FROM particles WHERE point = $1`, grant.ByParticle.String()).Scan(&byID); err != nil {
		return fmt.Errorf("registry: grant: by_particle %s: %w", grant.ByParticle, err)
	}

	var kind, privilege, maskKind, maskPerms string
	switch grant.Kind {
	case GrantSuper:
		kind = "super"
	case GrantPrivilege:
		kind = "priv"
		privilege = grant.Privilege
	case GrantPermissionsMask:
		kind = "perm"
		if grant.Mask.Kind == MaskAnd {
			maskKind = "and"
		} else {
			maskKind = "or"
		}
		maskPerms = grant.Mask.Permissions.String()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO access_grants (id, kind, privilege, mask_kind, mask_permissions, query_root, on_point, to_point, by_particle)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		grant.ID, kind, privilege, maskKind, maskPerms, grant.OnPoint.QueryRoot(), grant.OnPoint.String(), grant.ToPoint.String(), byID)
	if err != nil {
		return fmt.Errorf("registry: grant: %w", err)
	}
	return nil
}

func scanGrant(id, kind, privilege, maskKind, maskPerms, onPoint, toPoint, byParticle string) (AccessGrant, error) {
	on, err := ParseSelector(onPoint)
	if err != nil {
		return AccessGrant{}, err
	}
	to, err := ParseSelector(toPoint)
	if err != nil {
		return AccessGrant{}, err
	}
	by, err := address.ParsePoint(byParticle)
	if err != nil {
		return AccessGrant{}, err
	}
	g := AccessGrant{ID: id, OnPoint: on, ToPoint: to, ByParticle: by}
	switch kind {
	case "super":
		g.Kind = GrantSuper
	case "priv":
		g.Kind = GrantPrivilege
		g.Privilege = privilege
	case "perm":
		g.Kind = GrantPermissionsMask
		perms, _ := ParsePermissions(maskPerms)
		k := MaskOr
		if maskKind == "and" {
			k = MaskAnd
		}
		g.Mask = PermissionsMask{Kind: k, Permissions: perms}
	}
	return g, nil
}

func (p *Postgres) grantsAtLevel(ctx context.Context, level address.Point) ([]AccessGrant, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT access_grants.id, access_grants.kind, access_grants.privilege, access_grants.mask_kind,
		        access_grants.mask_permissions, access_grants.on_point, access_grants.to_point, particles.point
		 FROM access_grants JOIN particles ON particles.id = access_grants.by_particle
		 WHERE access_grants.query_root = $1`, level.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccessGrant
	for rows.Next() {
		var id, kind, privilege, maskKind, maskPerms, onPoint, toPoint, byPoint string
		if err := rows.Scan(&id, &kind, &privilege, &maskKind, &maskPerms, &onPoint, &toPoint, &byPoint); err != nil {
			return nil, err
		}
		g, err := scanGrant(id, kind, privilege, maskKind, maskPerms, onPoint, toPoint, byPoint)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RemoveAccess implements Store.
func (p *Postgres) RemoveAccess(ctx context.Context, id string, principal address.Point) error {
	var onPoint string
	if err := p.pool.QueryRow(ctx, `SELECT query_root FROM access_grants WHERE id = $1`, id).Scan(&onPoint); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("registry: remove_access %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("registry: remove_access %s: %w", id, err)
	}
	onRoot, err := address.ParsePoint(onPoint)
	if err != nil {
		return fmt.Errorf("registry: remove_access %s: %w", id, err)
	}
	access, err := p.Access(ctx, principal, onRoot)
	if err != nil {
		return err
	}
	if !access.HasFull() {
		return fmt.Errorf("registry: remove_access %s: %w", id, ErrUnauthorized)
	}
	_, err = p.pool.Exec(ctx, `DELETE FROM access_grants WHERE id = $1`, id)
	return err
}

// ListAccess implements Store.
func (p *Postgres) ListAccess(ctx context.Context, to *address.Point, on Selector) ([]AccessGrant, error) {
	matched, err := p.Select(ctx, on)
	if err != nil {
		return nil, err
	}
	var toHierarchy PointHierarchy
	if to != nil {
		toHierarchy, err = p.Query(ctx, *to)
		if err != nil {
			return nil, err
		}
	}
	seen := make(map[string]AccessGrant)
	for _, pt := range matched {
		grants, err := p.grantsAtLevel(ctx, pt)
		if err != nil {
			return nil, err
		}
		for _, g := range grants {
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

// Chown implements Store.
func (p *Postgres) Chown(ctx context.Context, on Selector, owner, by address.Point) error {
	matched, err := p.Select(ctx, on)
	if err != nil {
		return err
	}
	for _, pt := range matched {
		access, err := p.Access(ctx, by, pt)
		if err != nil {
			return err
		}
		if !access.HasSuper() {
			return fmt.Errorf("registry: chown %s: %w: only a super can change owners", pt, ErrUnauthorized)
		}
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, pt := range matched {
		if _, err := tx.Exec(ctx, `UPDATE particles SET owner_point = $2 WHERE point = $1`, pt.String(), owner.String()); err != nil {
			return fmt.Errorf("registry: chown %s: %w", pt, err)
		}
	}
	return tx.Commit(ctx)
}

// Access implements Store, running the grant evaluation algorithm
// against live queries rather than an in-memory snapshot.
func (p *Postgres) Access(ctx context.Context, to, on address.Point) (Access, error) {
	var ownerPoint string
	onExists := true
	if err := p.pool.QueryRow(ctx, `SELECT owner_point FROM particles WHERE point = $1`, on.String()).Scan(&ownerPoint); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Access{}, fmt.Errorf("registry: access: %w", err)
		}
		onExists = false
	}
	hasOwner := onExists && ownerPoint == to.String()

	if to.Equal(HyperUser) {
		return AccessSuper(hasOwner), nil
	}
	if to.Equal(on) && hasOwner {
		return AccessOwner(), nil
	}

	toHierarchy, err := p.Query(ctx, to)
	if err != nil {
		return Access{}, err
	}
	onHierarchy, err := p.Query(ctx, on)
	if err != nil {
		return Access{}, err
	}

	grantsAtLevel := func(level address.Point) ([]AccessGrant, error) {
		return p.grantsAtLevel(ctx, level)
	}
	grantorAccess := func(by address.Point) (Access, error) {
		return p.Access(ctx, by, on)
	}
	return evaluateAccess(to, on, hasOwner, toHierarchy, onHierarchy, grantsAtLevel, grantorAccess)
}

var _ Store = (*Postgres)(nil)
