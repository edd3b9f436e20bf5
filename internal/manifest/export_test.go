package manifest

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/dosco/stateful-abac/internal/store"
	"github.com/stretchr/testify/require"
)

func TestExporterExportBuildsDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	catalog := store.NewCatalogRepo(db)
	resources := store.NewResourceRepo(db)
	acl := store.NewACLRepo(db)
	exp := NewExporter(catalog, resources, acl)

	mock.ExpectQuery("SELECT id, name FROM realm").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "acme"))
	mock.ExpectQuery("SELECT id, realm_id, name, is_public FROM resource_type").
		WillReturnRows(sqlmock.NewRows([]string{"id", "realm_id", "name", "is_public"}).AddRow(10, 1, "document", false))
	mock.ExpectQuery("SELECT id, realm_id, name FROM action").
		WillReturnRows(sqlmock.NewRows([]string{"id", "realm_id", "name"}).AddRow(20, 1, "view"))
	mock.ExpectQuery("SELECT id, realm_id, name, attributes FROM role").
		WillReturnRows(sqlmock.NewRows([]string{"id", "realm_id", "name", "attributes"}).AddRow(30, 1, "editor", nil))
	mock.ExpectQuery("SELECT id, realm_id, username, attributes FROM principal").
		WillReturnRows(sqlmock.NewRows([]string{"id", "realm_id", "username", "attributes"}).AddRow(40, 1, "alice", nil))
	mock.ExpectQuery("SELECT role.name FROM principal_roles").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("editor"))
	mock.ExpectQuery("SELECT resource_type.name, external_ids.external_id, resource.attributes").
		WillReturnRows(sqlmock.NewRows([]string{"resource_type", "external_id", "attributes", "geometry"}).
			AddRow("document", "doc-123", nil, ""))
	mock.ExpectQuery("SELECT rt.name, act.name").
		WillReturnRows(sqlmock.NewRows([]string{"resource_type", "action", "principal", "role", "external_resource_id", "conditions"}).
			AddRow("document", "view", "", "editor", "", nil))

	doc, err := exp.Export(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, "acme", doc.Realm)
	require.Len(t, doc.ResourceTypes, 1)
	require.Len(t, doc.Principals, 1)
	require.Equal(t, []string{"editor"}, doc.Principals[0].Roles)
	require.Len(t, doc.Resources, 1)
	require.Equal(t, "doc-123", doc.Resources[0].ExternalID)
	require.Equal(t, "document", doc.Resources[0].ResourceType)
	require.Len(t, doc.ACLs, 1)
	require.Equal(t, "editor", doc.ACLs[0].Role)
}
