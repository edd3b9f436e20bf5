// Package store implements the partitioned-by-realm Postgres schema
// backing the Rule Store: realms, resource types, actions, principals,
// roles, resources, external IDs, ACLs and the authorization log.
package store

import (
	"encoding/json"
	"time"
)

// Realm is a top-level isolation boundary: every other row in the
// schema belongs to exactly one realm, and authorization never
// evaluates across realms.
type Realm struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

// ResourceType names a class of protected resource within a realm.
// IsPublic short-circuits the Authorization Runner's Tier 1 floodgate:
// any principal may perform any action against a public resource type
// without an ACL row.
type ResourceType struct {
	ID       int    `db:"id"`
	RealmID  int    `db:"realm_id"`
	Name     string `db:"name"`
	IsPublic bool   `db:"is_public"`
}

// Action names an operation a principal may be authorized to perform
// against a resource type (e.g. "view", "edit").
type Action struct {
	ID      int    `db:"id"`
	RealmID int    `db:"realm_id"`
	Name    string `db:"name"`
}

// Principal is an individual subject within a realm.
type Principal struct {
	ID         int             `db:"id"`
	RealmID    int             `db:"realm_id"`
	Username   string          `db:"username"`
	Attributes json.RawMessage `db:"attributes"`
}

// Role is a named group of principals within a realm.
type Role struct {
	ID         int             `db:"id"`
	RealmID    int             `db:"realm_id"`
	Name       string          `db:"name"`
	Attributes json.RawMessage `db:"attributes"`
}

// PrincipalRole assigns a Role to a Principal.
type PrincipalRole struct {
	RealmID     int `db:"realm_id"`
	PrincipalID int `db:"principal_id"`
	RoleID      int `db:"role_id"`
}

// Resource is a single protected entity within a realm. Attributes
// carries the JSON attribute bag conditions evaluate against; Geometry
// carries an optional SRID 3857 WKB geometry for spatial conditions.
type Resource struct {
	ID             int             `db:"id"`
	RealmID        int             `db:"realm_id"`
	ResourceTypeID int             `db:"resource_type_id"`
	Attributes     json.RawMessage `db:"attributes"`
	Geometry       []byte          `db:"geometry"`
}

// ExternalID maps a resource to the identifier a host system uses for
// it, so manifests can reference resources without knowing the Rule
// Store's internal integer IDs.
type ExternalID struct {
	RealmID        int    `db:"realm_id"`
	ResourceTypeID int    `db:"resource_type_id"`
	ResourceID     int    `db:"resource_id"`
	ExternalID     string `db:"external_id"`
}

// SubjectNone is the sentinel principal/role ID meaning "not bound to
// a specific subject" when paired with its counterpart also being
// SubjectNone — that combination denotes a grant to any authenticated
// principal. An ACL row must have at most one of PrincipalID/RoleID
// non-zero: exactly one subject, or neither (anyone).
const SubjectNone = 0

// ACL is a single grant: realm + resource_type + action, scoped to
// either a specific principal, a role, or anyone (PrincipalID==RoleID==
// SubjectNone), optionally further scoped to one resource
// (ResourceID != nil) and/or gated by Conditions. CompiledSQL is the
// condition compiler's output for Conditions, recomputed by ACLRepo.Put
// whenever Conditions changes — see internal/condition.
type ACL struct {
	ID             int             `db:"id"`
	RealmID        int             `db:"realm_id"`
	ResourceTypeID int             `db:"resource_type_id"`
	ActionID       int             `db:"action_id"`
	PrincipalID    int             `db:"principal_id"`
	RoleID         int             `db:"role_id"`
	ResourceID     *int            `db:"resource_id"`
	Conditions     json.RawMessage `db:"conditions"`
	CompiledSQL    *string         `db:"compiled_sql"`
}

// IsTypeLevel reports whether the ACL applies to every resource of its
// type rather than a single resource.
func (a *ACL) IsTypeLevel() bool { return a.ResourceID == nil }

// IsUnconditional reports whether the ACL carries no Conditions, i.e.
// it is a blanket grant once its subject/type/action match.
func (a *ACL) IsUnconditional() bool {
	return len(a.Conditions) == 0 || string(a.Conditions) == "null"
}

// AuthorizationLog is an append-only record of a single authorization
// decision, written by internal/auditlog when enabled.
type AuthorizationLog struct {
	ID             string    `db:"id"`
	RealmID        int       `db:"realm_id"`
	PrincipalID    int       `db:"principal_id"`
	ResourceTypeID int       `db:"resource_type_id"`
	ActionID       int       `db:"action_id"`
	ResourceID     *int      `db:"resource_id"`
	Decision       bool      `db:"decision"`
	CreatedAt      time.Time `db:"created_at"`
}
