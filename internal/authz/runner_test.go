package authz

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/dosco/stateful-abac/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, store.NewACLRepo(db), nil, 0), mock
}

func TestAuthorizePublicFloodgate(t *testing.T) {
	r, mock := newTestRunner(t)

	mock.ExpectQuery("SELECT is_public FROM resource_type").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"is_public"}).AddRow(true))
	mock.ExpectQuery("SELECT id FROM resource").
		WithArgs(1, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	set, err := r.Authorize(context.Background(), Request{RealmID: 1, ResourceTypeID: 7, ActionID: 3})
	require.NoError(t, err)
	require.Equal(t, TierPublic, set.Tier)
	require.ElementsMatch(t, []int{1, 2}, set.IDs)
}

func TestAuthorizeBlanketGrantShortCircuits(t *testing.T) {
	r, mock := newTestRunner(t)

	mock.ExpectQuery("SELECT is_public FROM resource_type").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"is_public"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT id FROM resource").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	set, err := r.Authorize(context.Background(), Request{RealmID: 1, ResourceTypeID: 7, ActionID: 3, PrincipalID: 5})
	require.NoError(t, err)
	require.Equal(t, TierBlanketGrant, set.Tier)
	require.Equal(t, []int{9}, set.IDs)
}

func TestAuthorizeDeniedWhenNoRulesMatch(t *testing.T) {
	r, mock := newTestRunner(t)

	mock.ExpectQuery("SELECT is_public FROM resource_type").
		WillReturnRows(sqlmock.NewRows([]string{"is_public"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT id, realm_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "realm_id", "resource_type_id", "action_id", "principal_id", "role_id",
			"resource_id", "conditions", "compiled_sql",
		}))

	set, err := r.Authorize(context.Background(), Request{RealmID: 1, ResourceTypeID: 7, ActionID: 3, PrincipalID: 5})
	require.NoError(t, err)
	require.Equal(t, TierDenied, set.Tier)
	require.Empty(t, set.IDs)
}

func TestAuthorizeTier3SkipsUnexecutableRule(t *testing.T) {
	r, mock := newTestRunner(t)

	compiled := "bogus_column = 1"
	mock.ExpectQuery("SELECT is_public FROM resource_type").
		WillReturnRows(sqlmock.NewRows([]string{"is_public"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT id, realm_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "realm_id", "resource_type_id", "action_id", "principal_id", "role_id",
			"resource_id", "conditions", "compiled_sql",
		}).AddRow(1, 1, 7, 3, 5, 0, nil, nil, compiled))
	mock.ExpectQuery("SELECT resource.id FROM resource").
		WillReturnError(assertErr)

	set, err := r.Authorize(context.Background(), Request{RealmID: 1, ResourceTypeID: 7, ActionID: 3, PrincipalID: 5})
	require.NoError(t, err)
	require.Equal(t, TierConditional, set.Tier)
	require.Equal(t, 1, set.SkippedRules)
	require.Empty(t, set.IDs)
}

func TestAuthorizeCacheInvalidatedByACLPut(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	acl := store.NewACLRepo(db)
	r := New(db, acl, nil, 0)

	mock.ExpectQuery("SELECT is_public FROM resource_type").
		WillReturnRows(sqlmock.NewRows([]string{"is_public"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT id FROM resource").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	req := Request{RealmID: 1, ResourceTypeID: 7, ActionID: 3, PrincipalID: 5}
	set, err := r.Authorize(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, TierBlanketGrant, set.Tier)

	// Revoking the grant writes a new ACL row in the same realm. Without
	// invalidation, Authorize would keep serving the cached
	// TierBlanketGrant plan from the call above.
	mock.ExpectQuery("INSERT INTO acl").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	_, err = acl.Put(context.Background(), &store.ACL{
		RealmID: 1, ResourceTypeID: 7, ActionID: 3, PrincipalID: 5,
		Conditions: []byte(`{"op":"=","attr":"status","val":"active"}`),
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT is_public FROM resource_type").
		WillReturnRows(sqlmock.NewRows([]string{"is_public"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT id, realm_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "realm_id", "resource_type_id", "action_id", "principal_id", "role_id",
			"resource_id", "conditions", "compiled_sql",
		}))

	set, err = r.Authorize(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, TierDenied, set.Tier)
	require.NoError(t, mock.ExpectationsWereMet())
}

var assertErr = sqlmockErr("column \"bogus_column\" does not exist")

type sqlmockErr string

func (e sqlmockErr) Error() string { return string(e) }
