package authz

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestBatchAuthorizePreservesOrderAndKeys(t *testing.T) {
	r, mock := newTestRunner(t)
	mock.MatchExpectationsInOrder(false)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT is_public FROM resource_type").
			WillReturnRows(sqlmock.NewRows([]string{"is_public"}).AddRow(true))
		mock.ExpectQuery("SELECT id FROM resource").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(i))
	}

	reqs := []BatchRequest{
		{Key: "view-doc-1", Request: Request{RealmID: 1, ResourceTypeID: 1, ActionID: 1}},
		{Key: "view-doc-2", Request: Request{RealmID: 1, ResourceTypeID: 2, ActionID: 1}},
	}

	results, err := r.BatchAuthorize(context.Background(), reqs, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "view-doc-1", results[0].Key)
	require.Equal(t, "view-doc-2", results[1].Key)
	for _, res := range results {
		require.NoError(t, res.Err)
		require.Equal(t, TierPublic, res.Set.Tier)
	}
}
