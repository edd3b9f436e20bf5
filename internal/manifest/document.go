package manifest

import "encoding/json"

// Document is the on-disk/wire form of a realm manifest: everything
// Builder accumulates, serialized for storage or transport between
// Build and Importer.Import. Field names mirror ManifestGenerator's
// call shape (add_resource_type/add_action/add_role/add_principal/
// add_acl) since that is the only surface the retrieval pack exposes
// for the manifest's top-level shape.
type Document struct {
	Realm         string             `yaml:"realm" json:"realm" validate:"required"`
	ResourceTypes []ResourceTypeDoc  `yaml:"resource_types,omitempty" json:"resource_types,omitempty"`
	Actions       []string           `yaml:"actions,omitempty" json:"actions,omitempty"`
	Roles         []RoleDoc          `yaml:"roles,omitempty" json:"roles,omitempty"`
	Principals    []PrincipalDoc     `yaml:"principals,omitempty" json:"principals,omitempty"`
	Resources     []ResourceDoc      `yaml:"resources,omitempty" json:"resources,omitempty"`
	ACLs          []ACLDoc           `yaml:"acls,omitempty" json:"acls,omitempty"`
	Keycloak      *KeycloakConfigDoc `yaml:"keycloak,omitempty" json:"keycloak,omitempty"`
}

// ResourceTypeDoc declares a resource type and whether it is public.
type ResourceTypeDoc struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	IsPublic bool   `yaml:"is_public,omitempty" json:"is_public,omitempty"`
}

// RoleDoc declares a role and its attribute bag.
type RoleDoc struct {
	Name       string          `yaml:"name" json:"name" validate:"required"`
	Attributes json.RawMessage `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// PrincipalDoc declares a principal, its role assignments and
// attributes.
type PrincipalDoc struct {
	Username   string          `yaml:"username" json:"username" validate:"required"`
	Roles      []string        `yaml:"roles,omitempty" json:"roles,omitempty"`
	Attributes json.RawMessage `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// ResourceDoc declares a concrete resource instance of ResourceType,
// identified by ExternalID — the external system's own key for it,
// which ACLDoc.ExternalResourceID and the importer's ForResource ACLs
// resolve against. Mirrors ManifestGenerator's add_resource/
// with_attribute/with_geometry call shape.
type ResourceDoc struct {
	ExternalID   string          `yaml:"external_id" json:"external_id" validate:"required"`
	ResourceType string          `yaml:"resource_type" json:"resource_type" validate:"required"`
	Attributes   json.RawMessage `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Geometry     json.RawMessage `yaml:"geometry,omitempty" json:"geometry,omitempty"`
	SRID         int             `yaml:"srid,omitempty" json:"srid,omitempty"`
}

// KeycloakConfigDoc carries the realm's Keycloak sync settings, mirroring
// set_keycloak_config's keyword arguments.
type KeycloakConfigDoc struct {
	ServerURL     string          `yaml:"server_url" json:"server_url" validate:"required"`
	KeycloakRealm string          `yaml:"keycloak_realm" json:"keycloak_realm" validate:"required"`
	ClientID      string          `yaml:"client_id" json:"client_id" validate:"required"`
	ClientSecret  string          `yaml:"client_secret,omitempty" json:"client_secret,omitempty"`
	VerifySSL     bool            `yaml:"verify_ssl" json:"verify_ssl"`
	SyncCron      string          `yaml:"sync_cron,omitempty" json:"sync_cron,omitempty"`
	SyncGroups    bool            `yaml:"sync_groups,omitempty" json:"sync_groups,omitempty"`
	PublicKey     string          `yaml:"public_key,omitempty" json:"public_key,omitempty"`
	Algorithm     string          `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`
	Settings      json.RawMessage `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// ACLDoc declares a single grant: a resource type + action, scoped to
// a principal, a role, or anyone, optionally to one resource
// (ExternalResourceID) and/or gated by Condition.
type ACLDoc struct {
	ResourceType       string          `yaml:"resource_type" json:"resource_type" validate:"required"`
	Action             string          `yaml:"action" json:"action" validate:"required"`
	Principal          string          `yaml:"principal,omitempty" json:"principal,omitempty"`
	Role               string          `yaml:"role,omitempty" json:"role,omitempty"`
	ExternalResourceID string          `yaml:"resource,omitempty" json:"resource,omitempty"`
	Condition          json.RawMessage `yaml:"condition,omitempty" json:"condition,omitempty"`
}
