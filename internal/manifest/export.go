package manifest

import (
	"context"

	"github.com/dosco/stateful-abac/internal/store"
)

// Exporter reconstructs a manifest Document from Rule Store rows, the
// inverse of Importer.Import. The original SDK's export was a thin
// HTTP client call (export_manifest in manifest/export.py) delegating
// to a server; here it is a real local operation since this engine has
// no HTTP surface of its own.
type Exporter struct {
	catalog   *store.CatalogRepo
	resources *store.ResourceRepo
	acl       *store.ACLRepo
}

// NewExporter builds an Exporter over the given repos.
func NewExporter(catalog *store.CatalogRepo, resources *store.ResourceRepo, acl *store.ACLRepo) *Exporter {
	return &Exporter{catalog: catalog, resources: resources, acl: acl}
}

// Export builds a Document for realmName from the current store state.
func (exp *Exporter) Export(ctx context.Context, realmName string) (*Document, error) {
	realm, err := exp.catalog.GetRealmByName(ctx, realmName)
	if err != nil {
		return nil, err
	}

	doc := &Document{Realm: realm.Name}

	resourceTypes, err := exp.catalog.ListResourceTypes(ctx, realm.ID)
	if err != nil {
		return nil, err
	}
	for _, rt := range resourceTypes {
		doc.ResourceTypes = append(doc.ResourceTypes, ResourceTypeDoc{Name: rt.Name, IsPublic: rt.IsPublic})
	}

	actions, err := exp.catalog.ListActions(ctx, realm.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range actions {
		doc.Actions = append(doc.Actions, a.Name)
	}

	roles, err := exp.catalog.ListRoles(ctx, realm.ID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		doc.Roles = append(doc.Roles, RoleDoc{Name: role.Name, Attributes: role.Attributes})
	}

	principals, err := exp.catalog.ListPrincipals(ctx, realm.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range principals {
		roleNames, err := exp.catalog.RoleNamesForPrincipal(ctx, realm.ID, p.ID)
		if err != nil {
			return nil, err
		}
		doc.Principals = append(doc.Principals, PrincipalDoc{
			Username: p.Username, Roles: roleNames, Attributes: p.Attributes,
		})
	}

	resourceRows, err := exp.resources.ListForExport(ctx, realm.ID)
	if err != nil {
		return nil, err
	}
	for _, row := range resourceRows {
		srid := 0
		if len(row.Geometry) > 0 {
			srid = 3857
		}
		doc.Resources = append(doc.Resources, ResourceDoc{
			ExternalID:   row.ExternalID,
			ResourceType: row.ResourceType,
			Attributes:   row.Attributes,
			Geometry:     row.Geometry,
			SRID:         srid,
		})
	}

	acls, err := exp.acl.ListForRealm(ctx, realm.ID)
	if err != nil {
		return nil, err
	}
	for _, row := range acls {
		doc.ACLs = append(doc.ACLs, ACLDoc{
			ResourceType:       row.ResourceType,
			Action:             row.Action,
			Principal:          row.Principal,
			Role:               row.Role,
			ExternalResourceID: row.ExternalResourceID,
			Condition:          row.Conditions,
		})
	}

	return doc, nil
}
