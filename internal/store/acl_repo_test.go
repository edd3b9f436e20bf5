package store

import (
	"context"
	"encoding/json"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestACLRepoPutCompilesConditions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewACLRepo(db)

	mock.ExpectQuery("INSERT INTO acl").
		WithArgs(1, 2, 3, 0, 5, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	acl := &ACL{
		RealmID: 1, ResourceTypeID: 2, ActionID: 3, RoleID: 5,
		Conditions: json.RawMessage(`{"op":"=","attr":"status","val":"active"}`),
	}
	id, err := repo.Put(context.Background(), acl)
	require.NoError(t, err)
	require.Equal(t, 42, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestACLRepoPutRejectsDualSubject(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewACLRepo(db)
	_, err = repo.Put(context.Background(), &ACL{PrincipalID: 1, RoleID: 2})
	require.ErrorIs(t, err, ErrInvalidSubject)
}

func TestACLRepoPutRejectsUnknownOperator(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewACLRepo(db)
	_, err = repo.Put(context.Background(), &ACL{
		Conditions: json.RawMessage(`{"op":"bogus","attr":"x","val":1}`),
	})
	require.Error(t, err)
}
