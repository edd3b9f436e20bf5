package auditlog

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestLoggerRecordInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO authorization_log").
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := New(db)
	err = l.Record(context.Background(), Entry{
		RealmID: 1, PrincipalID: 2, ResourceTypeID: 3, ActionID: 4, Decision: true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
