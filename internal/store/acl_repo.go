package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/dosco/stateful-abac/internal/condition"
	pkgerrors "github.com/pkg/errors"
)

// ACLRepo persists ACL rows. Put is the Compile Trigger/Hook from
// SPEC_FULL.md §4.3: it recompiles Conditions to CompiledSQL before
// writing, replacing the original schema's database-side
// compile_acl trigger with an application-side hook, since the
// compiler now lives in Go rather than PL/pgSQL.
type ACLRepo struct {
	db       *sql.DB
	compiler *condition.Compiler
	onMutate func(realmID int)
}

func NewACLRepo(db *sql.DB) *ACLRepo {
	return &ACLRepo{db: db, compiler: condition.NewCompiler()}
}

// OnMutate registers fn to be called with the realm ID of every ACL
// Put. The Authorization Runner uses this to invalidate its decision
// plan cache, which would otherwise keep serving a tier decision from
// before the write — including a cached blanket grant that outlives
// its revocation.
func (r *ACLRepo) OnMutate(fn func(realmID int)) {
	r.onMutate = fn
}

// Put validates the subject invariant, compiles Conditions, and
// upserts the row keyed on (realm, resource_type, action, principal,
// role, resource) — the rule key invariant from spec.md §3.
func (r *ACLRepo) Put(ctx context.Context, acl *ACL) (int, error) {
	if acl.PrincipalID != SubjectNone && acl.RoleID != SubjectNone {
		return 0, ErrInvalidSubject
	}

	var cond *condition.Condition
	if len(acl.Conditions) > 0 && string(acl.Conditions) != "null" {
		parsed, err := condition.Parse(acl.Conditions)
		if err != nil {
			return 0, pkgerrors.Wrap(err, "store: parse acl conditions")
		}
		cond = parsed
	}

	var compiledSQL *string
	if cond != nil {
		fragment, err := r.compiler.Compile(cond)
		if err != nil {
			return 0, pkgerrors.Wrap(err, "store: compile acl conditions")
		}
		compiledSQL = &fragment
	}

	var id int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO acl (realm_id, resource_type_id, action_id, principal_id, role_id, resource_id, conditions, compiled_sql)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (realm_id, resource_type_id, action_id, principal_id, role_id, COALESCE(resource_id, 0))
		DO UPDATE SET conditions = EXCLUDED.conditions, compiled_sql = EXCLUDED.compiled_sql
		RETURNING id`,
		acl.RealmID, acl.ResourceTypeID, acl.ActionID, acl.PrincipalID, acl.RoleID,
		acl.ResourceID, nullableJSON(acl.Conditions), compiledSQL,
	).Scan(&id)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "store: put acl")
	}
	if r.onMutate != nil {
		r.onMutate(acl.RealmID)
	}
	return id, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// MatchingRules returns every ACL row whose realm/type/action matches
// and whose subject is the given principal, one of the given roles, or
// the anyone sentinel — the candidate set Tier 3 of the Authorization
// Runner unions over. Resource-level rules come first, type-level rules
// (resource_id NULL) last; the Runner still evaluates every row.
func (r *ACLRepo) MatchingRules(ctx context.Context, realmID, resourceTypeID, actionID, principalID int, roleIDs []int) ([]ACL, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, realm_id, resource_type_id, action_id, principal_id, role_id, resource_id, conditions, compiled_sql
		FROM acl
		WHERE realm_id = $1 AND resource_type_id = $2 AND action_id = $3
		  AND (principal_id = $4 OR role_id = ANY($5::int[]) OR (principal_id = 0 AND role_id = 0))
		ORDER BY resource_id NULLS LAST`,
		realmID, resourceTypeID, actionID, principalID, toIntArray(roleIDs))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: matching rules")
	}
	defer rows.Close()

	var out []ACL
	for rows.Next() {
		var a ACL
		var compiled sql.NullString
		if err := rows.Scan(&a.ID, &a.RealmID, &a.ResourceTypeID, &a.ActionID, &a.PrincipalID, &a.RoleID,
			&a.ResourceID, &a.Conditions, &compiled); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan acl")
		}
		if compiled.Valid {
			a.CompiledSQL = &compiled.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// HasUnconditionalTypeLevelGrant reports whether a blanket (no
// conditions, no resource_id) grant exists for the subject, the Tier 2
// short-circuit from spec.md §4.2.
func (r *ACLRepo) HasUnconditionalTypeLevelGrant(ctx context.Context, realmID, resourceTypeID, actionID, principalID int, roleIDs []int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM acl
			WHERE realm_id = $1 AND resource_type_id = $2 AND action_id = $3
			  AND resource_id IS NULL
			  AND (conditions IS NULL OR conditions = 'null'::jsonb)
			  AND (principal_id = $4 OR role_id = ANY($5::int[]) OR (principal_id = 0 AND role_id = 0))
		)`, realmID, resourceTypeID, actionID, principalID, toIntArray(roleIDs)).Scan(&exists)
	if err != nil {
		return false, pkgerrors.Wrap(err, "store: type-level grant check")
	}
	return exists, nil
}

// ExportRow is a single ACL joined with the human-readable names
// manifest export needs in place of internal IDs.
type ExportRow struct {
	ResourceType       string
	Action             string
	Principal          string
	Role                string
	ExternalResourceID string
	Conditions         json.RawMessage
}

// ListForRealm returns every ACL in the realm joined with its resource
// type, action, principal/role and (if resource-scoped) external
// resource ID, for manifest export.
func (r *ACLRepo) ListForRealm(ctx context.Context, realmID int) ([]ExportRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rt.name, act.name,
		       COALESCE(p.username, ''), COALESCE(role.name, ''),
		       COALESCE(ext.external_id, ''), acl.conditions
		FROM acl
		JOIN resource_type rt ON rt.id = acl.resource_type_id
		JOIN action act ON act.id = acl.action_id
		LEFT JOIN principal p ON p.id = acl.principal_id AND acl.principal_id != 0
		LEFT JOIN role ON role.id = acl.role_id AND acl.role_id != 0
		LEFT JOIN external_ids ext ON ext.resource_id = acl.resource_id AND acl.resource_id IS NOT NULL
		WHERE acl.realm_id = $1
		ORDER BY rt.name, act.name`, realmID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: list acls for export")
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(&row.ResourceType, &row.Action, &row.Principal, &row.Role,
			&row.ExternalResourceID, &row.Conditions); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan export row")
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func toIntArray(ids []int) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}
