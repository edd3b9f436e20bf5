package manifest

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/dosco/stateful-abac/internal/store"
	"github.com/stretchr/testify/require"
)

func TestImporterImportHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	catalog := store.NewCatalogRepo(db)
	resources := store.NewResourceRepo(db)
	acl := store.NewACLRepo(db)
	imp := NewImporter(catalog, resources, acl)

	mock.ExpectQuery("INSERT INTO realm").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO resource_type").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("INSERT INTO action").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20))
	mock.ExpectQuery("INSERT INTO role").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))
	mock.ExpectQuery("INSERT INTO principal").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(40))
	mock.ExpectExec("INSERT INTO principal_roles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO acl").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(99))

	doc := NewBuilder("acme").
		AddResourceType("document", false).
		AddAction("view").
		AddRole("editor", nil).
		AddPrincipal("alice", nil).WithRole("editor").End().
		AddACL("document", "view").ForRole("editor").When(Attr("status").Eq("active")).End().
		Build()

	require.NoError(t, imp.Import(context.Background(), doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImporterImportsResources(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	catalog := store.NewCatalogRepo(db)
	resources := store.NewResourceRepo(db)
	acl := store.NewACLRepo(db)
	imp := NewImporter(catalog, resources, acl)

	mock.ExpectQuery("INSERT INTO realm").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO resource_type").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT resource_id FROM external_ids").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO resource").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(50))
	mock.ExpectExec("INSERT INTO external_ids").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc := NewBuilder("acme").
		AddResourceType("document", false).
		AddResource("doc-123", "document").WithAttribute("status", "active").End().
		Build()

	require.NoError(t, imp.Import(context.Background(), doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImporterRejectsUnknownExternalResource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	catalog := store.NewCatalogRepo(db)
	resources := store.NewResourceRepo(db)
	acl := store.NewACLRepo(db)
	imp := NewImporter(catalog, resources, acl)

	mock.ExpectQuery("INSERT INTO realm").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO resource_type").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("INSERT INTO action").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20))
	mock.ExpectQuery("SELECT resource_id FROM external_ids").WillReturnError(sql.ErrNoRows)

	doc := NewBuilder("acme").
		AddResourceType("document", false).
		AddAction("view").
		AddACL("document", "view").ForResource("doc-123").End().
		Build()

	err = imp.Import(context.Background(), doc)
	require.ErrorIs(t, err, ErrUnknownExternalResource)
}
