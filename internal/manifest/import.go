package manifest

import (
	"context"

	"github.com/dosco/stateful-abac/internal/store"
	validator "github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
)

var docValidator = validator.New()

// Importer compiles a Document into Rule Store rows, the Go analog of
// the backend's manifest-apply service referenced (but not included in
// the retrieval pack) by the Python SDK's export.py docstring.
type Importer struct {
	catalog   *store.CatalogRepo
	resources *store.ResourceRepo
	acl       *store.ACLRepo
}

// NewImporter builds an Importer over the given repos.
func NewImporter(catalog *store.CatalogRepo, resources *store.ResourceRepo, acl *store.ACLRepo) *Importer {
	return &Importer{catalog: catalog, resources: resources, acl: acl}
}

// Import validates doc, then upserts its realm, resource types,
// resources, actions, roles, principals and ACLs, in that order, so
// ACLDocs can resolve the resources this same document just declared.
// Resource-scoped ACLDocs naming a resource Import did not just create
// are resolved against resources already known to the store via their
// external ID; an ACLDoc naming an unknown external resource fails the
// whole import rather than silently dropping the rule.
func (imp *Importer) Import(ctx context.Context, doc *Document) error {
	if err := docValidator.Struct(doc); err != nil {
		return pkgerrors.Wrap(err, "manifest: validate document")
	}

	realmID, err := imp.catalog.EnsureRealm(ctx, doc.Realm)
	if err != nil {
		return err
	}

	resourceTypeIDs := make(map[string]int, len(doc.ResourceTypes))
	for _, rt := range doc.ResourceTypes {
		id, err := imp.catalog.EnsureResourceType(ctx, realmID, rt.Name, rt.IsPublic)
		if err != nil {
			return err
		}
		resourceTypeIDs[rt.Name] = id
	}

	for _, res := range doc.Resources {
		resourceTypeID, ok := resourceTypeIDs[res.ResourceType]
		if !ok {
			id, err := imp.catalog.EnsureResourceType(ctx, realmID, res.ResourceType, false)
			if err != nil {
				return err
			}
			resourceTypeIDs[res.ResourceType] = id
			resourceTypeID = id
		}
		if _, err := imp.resources.Put(ctx, realmID, resourceTypeID, res.ExternalID, res.Attributes, []byte(res.Geometry)); err != nil {
			return err
		}
	}

	actionIDs := make(map[string]int, len(doc.Actions))
	for _, name := range doc.Actions {
		id, err := imp.catalog.EnsureAction(ctx, realmID, name)
		if err != nil {
			return err
		}
		actionIDs[name] = id
	}

	roleIDs := make(map[string]int, len(doc.Roles))
	for _, role := range doc.Roles {
		id, err := imp.catalog.EnsureRole(ctx, realmID, role.Name, role.Attributes)
		if err != nil {
			return err
		}
		roleIDs[role.Name] = id
	}

	principalIDs := make(map[string]int, len(doc.Principals))
	for _, p := range doc.Principals {
		id, err := imp.catalog.EnsurePrincipal(ctx, realmID, p.Username, p.Attributes)
		if err != nil {
			return err
		}
		principalIDs[p.Username] = id
		for _, roleName := range p.Roles {
			roleID, ok := roleIDs[roleName]
			if !ok {
				continue
			}
			if err := imp.catalog.AssignRole(ctx, realmID, id, roleID); err != nil {
				return err
			}
		}
	}

	for _, a := range doc.ACLs {
		resourceTypeID, ok := resourceTypeIDs[a.ResourceType]
		if !ok {
			id, err := imp.catalog.EnsureResourceType(ctx, realmID, a.ResourceType, false)
			if err != nil {
				return err
			}
			resourceTypeID = id
		}

		actionID, ok := actionIDs[a.Action]
		if !ok {
			id, err := imp.catalog.EnsureAction(ctx, realmID, a.Action)
			if err != nil {
				return err
			}
			actionID = id
		}

		var principalID, roleID int
		if a.Principal != "" {
			principalID = principalIDs[a.Principal]
		}
		if a.Role != "" {
			roleID = roleIDs[a.Role]
		}

		var resourceID *int
		if a.ExternalResourceID != "" {
			id, found, err := imp.resources.ResolveExternalID(ctx, realmID, resourceTypeID, a.ExternalResourceID)
			if err != nil {
				return err
			}
			if !found {
				return pkgerrors.Wrapf(ErrUnknownExternalResource, "acl for %s/%s/%s", a.ResourceType, a.Action, a.ExternalResourceID)
			}
			resourceID = &id
		}

		acl := &store.ACL{
			RealmID:        realmID,
			ResourceTypeID: resourceTypeID,
			ActionID:       actionID,
			PrincipalID:    principalID,
			RoleID:         roleID,
			ResourceID:     resourceID,
			Conditions:     a.Condition,
		}
		if _, err := imp.acl.Put(ctx, acl); err != nil {
			return err
		}
	}

	return nil
}
