package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

var partitionUnsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// partitionTables are the tables partitioned by realm_id (spec.md §3);
// every realm needs a matching partition on each before it can hold
// rows, the Go-side equivalent of the original schema's
// create_realm_partition_if_not_exists trigger.
var partitionTables = []string{"resource", "acl", "external_ids"}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ensureRealmPartitions creates, if missing, the realm_id partition of
// every partitioned table for realmID. It is idempotent (CREATE TABLE
// IF NOT EXISTS ... PARTITION OF) and safe to call on every
// EnsureRealm, not just the first.
func (r *CatalogRepo) ensureRealmPartitions(ctx context.Context, realmID int, realmName string) error {
	safe := partitionUnsafeChars.ReplaceAllString(strings.ToLower(realmName), "_")
	for _, parent := range partitionTables {
		partition := fmt.Sprintf("%s_%s_%d", parent, safe, realmID)
		stmt := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES IN (%d)`,
			quoteIdent(partition), parent, realmID,
		)
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return pkgerrors.Wrapf(err, "store: create %s partition for realm %d", parent, realmID)
		}
	}
	return nil
}

// CatalogRepo persists the reference data a realm is built from:
// resource types, actions, principals, roles and principal-role
// assignments. ACLs and resources have their own repos since they
// carry the compiler hook and geometry handling respectively.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// EnsureRealm returns the realm's ID, creating the row if absent.
func (r *CatalogRepo) EnsureRealm(ctx context.Context, name string) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO realm (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "store: ensure realm")
	}
	if err := r.ensureRealmPartitions(ctx, id, name); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *CatalogRepo) GetRealmByName(ctx context.Context, name string) (*Realm, error) {
	var realm Realm
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM realm WHERE name = $1`, name).
		Scan(&realm.ID, &realm.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRealmNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: get realm")
	}
	return &realm, nil
}

// EnsureResourceType returns the resource type's ID, creating it (or
// updating its is_public flag) if needed.
func (r *CatalogRepo) EnsureResourceType(ctx context.Context, realmID int, name string, isPublic bool) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO resource_type (realm_id, name, is_public) VALUES ($1, $2, $3)
		 ON CONFLICT (realm_id, name) DO UPDATE SET is_public = EXCLUDED.is_public
		 RETURNING id`, realmID, name, isPublic).Scan(&id)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "store: ensure resource type")
	}
	return id, nil
}

func (r *CatalogRepo) GetResourceType(ctx context.Context, realmID int, name string) (*ResourceType, error) {
	var rt ResourceType
	err := r.db.QueryRowContext(ctx,
		`SELECT id, realm_id, name, is_public FROM resource_type WHERE realm_id = $1 AND name = $2`,
		realmID, name).Scan(&rt.ID, &rt.RealmID, &rt.Name, &rt.IsPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceTypeNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: get resource type")
	}
	return &rt, nil
}

// ListResourceTypes returns every resource type declared in the realm,
// for manifest export.
func (r *CatalogRepo) ListResourceTypes(ctx context.Context, realmID int) ([]ResourceType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, realm_id, name, is_public FROM resource_type WHERE realm_id = $1 ORDER BY name`, realmID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: list resource types")
	}
	defer rows.Close()

	var out []ResourceType
	for rows.Next() {
		var rt ResourceType
		if err := rows.Scan(&rt.ID, &rt.RealmID, &rt.Name, &rt.IsPublic); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan resource type")
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// EnsureAction returns the action's ID, creating it if absent.
func (r *CatalogRepo) EnsureAction(ctx context.Context, realmID int, name string) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO action (realm_id, name) VALUES ($1, $2)
		 ON CONFLICT (realm_id, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, realmID, name).Scan(&id)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "store: ensure action")
	}
	return id, nil
}

func (r *CatalogRepo) GetAction(ctx context.Context, realmID int, name string) (*Action, error) {
	var a Action
	err := r.db.QueryRowContext(ctx,
		`SELECT id, realm_id, name FROM action WHERE realm_id = $1 AND name = $2`,
		realmID, name).Scan(&a.ID, &a.RealmID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActionNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: get action")
	}
	return &a, nil
}

// ListActions returns every action declared in the realm, for
// manifest export.
func (r *CatalogRepo) ListActions(ctx context.Context, realmID int) ([]Action, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, realm_id, name FROM action WHERE realm_id = $1 ORDER BY name`, realmID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: list actions")
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.RealmID, &a.Name); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan action")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// EnsurePrincipal returns the principal's ID, creating it (or replacing
// its attributes) if needed.
func (r *CatalogRepo) EnsurePrincipal(ctx context.Context, realmID int, username string, attrs json.RawMessage) (int, error) {
	if attrs == nil {
		attrs = json.RawMessage("{}")
	}
	var id int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO principal (realm_id, username, attributes) VALUES ($1, $2, $3)
		 ON CONFLICT (realm_id, username) DO UPDATE SET attributes = EXCLUDED.attributes
		 RETURNING id`, realmID, username, attrs).Scan(&id)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "store: ensure principal")
	}
	return id, nil
}

func (r *CatalogRepo) GetPrincipal(ctx context.Context, realmID int, username string) (*Principal, error) {
	var p Principal
	err := r.db.QueryRowContext(ctx,
		`SELECT id, realm_id, username, attributes FROM principal WHERE realm_id = $1 AND username = $2`,
		realmID, username).Scan(&p.ID, &p.RealmID, &p.Username, &p.Attributes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: get principal")
	}
	return &p, nil
}

// ListPrincipals returns every principal in the realm, for manifest
// export. Role names come from RoleNamesForPrincipal.
func (r *CatalogRepo) ListPrincipals(ctx context.Context, realmID int) ([]Principal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, realm_id, username, attributes FROM principal WHERE realm_id = $1 ORDER BY username`, realmID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: list principals")
	}
	defer rows.Close()

	var out []Principal
	for rows.Next() {
		var p Principal
		if err := rows.Scan(&p.ID, &p.RealmID, &p.Username, &p.Attributes); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan principal")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RoleNamesForPrincipal returns the names of every role assigned to
// principalID, for manifest export.
func (r *CatalogRepo) RoleNamesForPrincipal(ctx context.Context, realmID, principalID int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role.name FROM principal_roles pr
		 JOIN role ON role.id = pr.role_id
		 WHERE pr.realm_id = $1 AND pr.principal_id = $2 ORDER BY role.name`,
		realmID, principalID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: role names for principal")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan role name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListRoles returns every role declared in the realm, for manifest
// export.
func (r *CatalogRepo) ListRoles(ctx context.Context, realmID int) ([]Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, realm_id, name, attributes FROM role WHERE realm_id = $1 ORDER BY name`, realmID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: list roles")
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.RealmID, &role.Name, &role.Attributes); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan role")
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// EnsureRole returns the role's ID, creating it if absent.
func (r *CatalogRepo) EnsureRole(ctx context.Context, realmID int, name string, attrs json.RawMessage) (int, error) {
	if attrs == nil {
		attrs = json.RawMessage("{}")
	}
	var id int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO role (realm_id, name, attributes) VALUES ($1, $2, $3)
		 ON CONFLICT (realm_id, name) DO UPDATE SET attributes = EXCLUDED.attributes
		 RETURNING id`, realmID, name, attrs).Scan(&id)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "store: ensure role")
	}
	return id, nil
}

func (r *CatalogRepo) GetRole(ctx context.Context, realmID int, name string) (*Role, error) {
	var role Role
	err := r.db.QueryRowContext(ctx,
		`SELECT id, realm_id, name, attributes FROM role WHERE realm_id = $1 AND name = $2`,
		realmID, name).Scan(&role.ID, &role.RealmID, &role.Name, &role.Attributes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: get role")
	}
	return &role, nil
}

// AssignRole grants roleID to principalID, idempotently.
func (r *CatalogRepo) AssignRole(ctx context.Context, realmID, principalID, roleID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principal_roles (realm_id, principal_id, role_id) VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`, realmID, principalID, roleID)
	if err != nil {
		return pkgerrors.Wrap(err, "store: assign role")
	}
	return nil
}

// RoleIDsForPrincipal returns every role assigned to principalID.
func (r *CatalogRepo) RoleIDsForPrincipal(ctx context.Context, realmID, principalID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_id FROM principal_roles WHERE realm_id = $1 AND principal_id = $2`,
		realmID, principalID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: role ids for principal")
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan role id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
