package manifest

import (
	"encoding/json"

	"github.com/dosco/stateful-abac/internal/condition"
)

// Builder is a fluent, in-memory accumulator for a realm manifest,
// named and shaped from its callers in ManifestGenerator.generate
// (add_resource_type/add_action/add_role/add_principal/add_acl) since
// the Python SDK's top-level ManifestBuilder class body is not itself
// present in the retrieval pack.
type Builder struct {
	doc Document
}

// NewBuilder starts a manifest for the named realm.
func NewBuilder(realm string) *Builder {
	return &Builder{doc: Document{Realm: realm}}
}

// AddResourceType declares a resource type.
func (b *Builder) AddResourceType(name string, isPublic bool) *Builder {
	b.doc.ResourceTypes = append(b.doc.ResourceTypes, ResourceTypeDoc{Name: name, IsPublic: isPublic})
	return b
}

// AddAction declares an action.
func (b *Builder) AddAction(name string) *Builder {
	b.doc.Actions = append(b.doc.Actions, name)
	return b
}

// AddRole declares a role and its attribute bag.
func (b *Builder) AddRole(name string, attrs json.RawMessage) *Builder {
	b.doc.Roles = append(b.doc.Roles, RoleDoc{Name: name, Attributes: attrs})
	return b
}

// AddPrincipal starts a chainable PrincipalBuilder for the named
// principal. Call WithRole zero or more times, then End to return to
// the manifest builder.
func (b *Builder) AddPrincipal(username string, attrs json.RawMessage) *PrincipalBuilder {
	return &PrincipalBuilder{parent: b, doc: PrincipalDoc{Username: username, Attributes: attrs}}
}

// AddResource starts a chainable ResourceBuilder for a concrete
// resource instance of resourceType, identified by externalID — the
// external system's own key for it. Call WithAttribute/WithGeometry
// zero or more times, then End to return to the manifest builder.
func (b *Builder) AddResource(externalID, resourceType string) *ResourceBuilder {
	return &ResourceBuilder{parent: b, doc: ResourceDoc{ExternalID: externalID, ResourceType: resourceType}}
}

// SetKeycloakConfig attaches Keycloak sync configuration to the realm.
func (b *Builder) SetKeycloakConfig(cfg KeycloakConfigDoc) *Builder {
	b.doc.Keycloak = &cfg
	return b
}

// AddACL starts a chainable ACLBuilder for a resource_type/action
// pair. Exactly one of ForRole/ForPrincipal should be called (or
// neither, for an anyone grant), optionally followed by ForResource
// and/or When, then End.
func (b *Builder) AddACL(resourceType, action string) *ACLBuilder {
	return &ACLBuilder{parent: b, doc: ACLDoc{ResourceType: resourceType, Action: action}}
}

// Build returns the accumulated Document.
func (b *Builder) Build() *Document {
	return &b.doc
}

// PrincipalBuilder chains role assignments onto a principal being
// added to a Builder.
type PrincipalBuilder struct {
	parent *Builder
	doc    PrincipalDoc
}

// WithRole assigns roleName to the principal.
func (p *PrincipalBuilder) WithRole(roleName string) *PrincipalBuilder {
	p.doc.Roles = append(p.doc.Roles, roleName)
	return p
}

// End commits the principal to the parent Builder and returns it.
func (p *PrincipalBuilder) End() *Builder {
	p.parent.doc.Principals = append(p.parent.doc.Principals, p.doc)
	return p.parent
}

// ResourceBuilder chains attributes and geometry onto a resource being
// added to a Builder.
type ResourceBuilder struct {
	parent *Builder
	doc    ResourceDoc
	attrs  map[string]any
}

// WithAttribute sets a single attribute on the resource's attribute bag.
func (r *ResourceBuilder) WithAttribute(key string, value any) *ResourceBuilder {
	if r.attrs == nil {
		r.attrs = make(map[string]any)
	}
	r.attrs[key] = value
	return r
}

// WithGeometry attaches a geometry (GeoJSON object, EWKT/WKT string, or
// any value the condition compiler's spatial literal handling accepts)
// and its source SRID.
func (r *ResourceBuilder) WithGeometry(geometry any, srid int) *ResourceBuilder {
	raw, err := json.Marshal(geometry)
	if err != nil {
		// geometry is always a map/string/number produced by this
		// package's own callers, whose json.Marshal never fails.
		panic(err)
	}
	r.doc.Geometry = raw
	r.doc.SRID = srid
	return r
}

// End commits the resource to the parent Builder and returns it.
func (r *ResourceBuilder) End() *Builder {
	if r.attrs != nil {
		raw, err := json.Marshal(r.attrs)
		if err != nil {
			panic(err)
		}
		r.doc.Attributes = raw
	}
	r.parent.doc.Resources = append(r.parent.doc.Resources, r.doc)
	return r.parent
}

// ACLBuilder chains subject/scope/condition onto an ACL being added
// to a Builder.
type ACLBuilder struct {
	parent *Builder
	doc    ACLDoc
}

// ForRole scopes the ACL to a role.
func (a *ACLBuilder) ForRole(roleName string) *ACLBuilder {
	a.doc.Role = roleName
	return a
}

// ForPrincipal scopes the ACL to a specific principal.
func (a *ACLBuilder) ForPrincipal(username string) *ACLBuilder {
	a.doc.Principal = username
	return a
}

// ForResource scopes the ACL to a single resource, identified by the
// external ID a host system uses for it.
func (a *ACLBuilder) ForResource(externalID string) *ACLBuilder {
	a.doc.ExternalResourceID = externalID
	return a
}

// When attaches a condition built via Attr(...)/And/Or/Not.
func (a *ACLBuilder) When(cond *condition.Condition) *ACLBuilder {
	if cond == nil {
		return a
	}
	raw, err := json.Marshal(cond)
	if err != nil {
		// cond is built exclusively from this package's own types, whose
		// json.Marshal never fails.
		panic(err)
	}
	a.doc.Condition = raw
	return a
}

// End commits the ACL to the parent Builder and returns it.
func (a *ACLBuilder) End() *Builder {
	a.parent.doc.ACLs = append(a.parent.doc.ACLs, a.doc)
	return a.parent
}
