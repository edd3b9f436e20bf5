package authz

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dosco/stateful-abac/internal/condition"
	"github.com/dosco/stateful-abac/internal/store"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// rule is the minimal shape the Tier 3 execution loop needs out of an
// ACL row: which resource (if any) it is pinned to, and the compiled
// SQL fragment to union into the final query.
type rule struct {
	resourceID  *int
	compiledSQL *string
}

// Runner implements the Authorization Runner: the three-tier decision
// procedure from SPEC_FULL.md §4.2, grounded on the
// get_authorized_resources PL/pgSQL function (Tier 1 public floodgate,
// Tier 2 unconditional type-level blanket-grant short-circuit, Tier 3
// per-rule conditional/resource-level union), reimplemented as Go
// control flow issuing one query per tier/rule instead of one stored
// procedure.
type Runner struct {
	db    *sql.DB
	acl   *store.ACLRepo
	cache *cache
	log   *zap.Logger
}

// New builds a Runner. cacheSize is the number of decision plans kept
// in the LRU cache; pass 0 for the default. Runner registers itself
// with acl's mutation hook so a Put invalidates that realm's cached
// plans instead of leaving them to be served stale.
func New(db *sql.DB, acl *store.ACLRepo, log *zap.Logger, cacheSize int) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	c := newCache(cacheSize)
	acl.OnMutate(c.invalidateRealm)
	return &Runner{db: db, acl: acl, cache: c, log: log}
}

// Authorize returns the set of resource IDs req's principal may
// perform req's action against, among req.ResourceIDs if non-nil or
// every resource of the type otherwise.
func (r *Runner) Authorize(ctx context.Context, req Request) (*ResourceSet, error) {
	key := r.cache.key(req.RealmID, req.ResourceTypeID, req.ActionID, req.PrincipalID, req.RoleIDs)

	p, ok := r.cache.get(key)
	if !ok {
		built, err := r.buildPlan(ctx, req)
		if err != nil {
			return nil, err
		}
		p = built
		r.cache.set(key, p)
	}

	switch p.tier {
	case TierDenied:
		return &ResourceSet{Tier: TierDenied}, nil
	case TierPublic, TierBlanketGrant:
		ids, err := r.resourceIDsForType(ctx, req.RealmID, req.ResourceTypeID, req.ResourceIDs)
		if err != nil {
			return nil, err
		}
		return &ResourceSet{IDs: ids, Tier: p.tier}, nil
	default:
		return r.executeRules(ctx, req, p.rules)
	}
}

// buildPlan runs Tiers 1 and 2's lookups and, failing those, fetches
// the Tier 3 candidate rule set, caching whichever tier resolves.
func (r *Runner) buildPlan(ctx context.Context, req Request) (plan, error) {
	public, err := r.isPublicType(ctx, req.ResourceTypeID)
	if err != nil {
		return plan{}, err
	}
	if public {
		return plan{tier: TierPublic}, nil
	}

	blanket, err := r.acl.HasUnconditionalTypeLevelGrant(ctx, req.RealmID, req.ResourceTypeID, req.ActionID, req.PrincipalID, req.RoleIDs)
	if err != nil {
		return plan{}, err
	}
	if blanket {
		return plan{tier: TierBlanketGrant}, nil
	}

	acls, err := r.acl.MatchingRules(ctx, req.RealmID, req.ResourceTypeID, req.ActionID, req.PrincipalID, req.RoleIDs)
	if err != nil {
		return plan{}, err
	}
	if len(acls) == 0 {
		return plan{tier: TierDenied}, nil
	}

	rules := make([]rule, len(acls))
	for i, a := range acls {
		a := a
		rules[i] = rule{resourceID: a.ResourceID, compiledSQL: a.CompiledSQL}
	}
	return plan{tier: TierConditional, rules: rules}, nil
}

func (r *Runner) isPublicType(ctx context.Context, resourceTypeID int) (bool, error) {
	var public bool
	err := r.db.QueryRowContext(ctx,
		`SELECT is_public FROM resource_type WHERE id = $1`, resourceTypeID).Scan(&public)
	if pkgerrors.Is(err, sql.ErrNoRows) {
		return false, ErrResourceTypeNotFound
	}
	if err != nil {
		return false, pkgerrors.Wrap(err, "authz: resource type lookup")
	}
	return public, nil
}

// resourceIDsForType is the Tier 1/2 fast path: every resource of the
// type, narrowed to req.ResourceIDs when given.
func (r *Runner) resourceIDsForType(ctx context.Context, realmID, resourceTypeID int, restrictTo []int) ([]int, error) {
	query := `SELECT id FROM resource WHERE realm_id = $1 AND resource_type_id = $2`
	args := []any{realmID, resourceTypeID}
	if restrictTo != nil {
		query += ` AND id = ANY($3::int[])`
		args = append(args, toIntArray(restrictTo))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "authz: resource scan")
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, pkgerrors.Wrap(err, "authz: scan resource id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// executeRules is Tier 3: union the resource IDs each rule's compiled
// SQL matches. A rule whose compiled fragment fails to execute (e.g. a
// stale CompiledSQL referencing a dropped column) is logged, skipped,
// and counted — see SPEC_FULL.md §4.2 — rather than aborting the
// whole call.
func (r *Runner) executeRules(ctx context.Context, req Request, rules []rule) (*ResourceSet, error) {
	seen := make(map[int]struct{})
	var ids []int
	var skipped int

	restrictClause := ""
	baseArgs := []any{req.Context, req.RealmID, req.ResourceTypeID}
	if req.ResourceIDs != nil {
		restrictClause = " AND resource.id = ANY($4::int[])"
		baseArgs = append(baseArgs, toIntArray(req.ResourceIDs))
	}

	for _, rl := range rules {
		fragment := "TRUE"
		if rl.compiledSQL != nil && strings.TrimSpace(*rl.compiledSQL) != "" {
			// $1 arrives over the wire as an untyped bytea/text parameter;
			// the original compile_condition_to_sql could rely on p_ctx
			// already being a declared jsonb argument, so the cast has to
			// be reattached here at substitution time.
			fragment = strings.ReplaceAll(*rl.compiledSQL, condition.DefaultCtxParam, "$1::jsonb")
		}
		if rl.resourceID != nil {
			fragment = fmt.Sprintf("resource.id = %d AND (%s)", *rl.resourceID, fragment)
		}

		query := fmt.Sprintf(
			"SELECT resource.id FROM resource WHERE realm_id = $2 AND resource_type_id = $3 AND (%s)%s",
			fragment, restrictClause,
		)

		matched, err := r.queryResourceIDs(ctx, query, baseArgs)
		if err != nil {
			r.log.Warn("authz: skipping rule with unexecutable compiled sql",
				zap.Error(err), zap.Intp("resource_id", rl.resourceID))
			skipped++
			continue
		}
		for _, id := range matched {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	return &ResourceSet{IDs: ids, Tier: TierConditional, SkippedRules: skipped}, nil
}

func (r *Runner) queryResourceIDs(ctx context.Context, query string, args []any) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func toIntArray(ids []int) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}
