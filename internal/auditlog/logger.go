// Package auditlog writes append-only AuthorizationLog rows, the
// minimal writer spec.md's Non-goals leave unimplemented beyond the
// table's schema (see SPEC_FULL.md §4.6).
package auditlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/dosco/stateful-abac/internal/store"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/xid"
)

// Entry is a single authorization decision to record.
type Entry struct {
	RealmID        int
	PrincipalID    int
	ResourceTypeID int
	ActionID       int
	ResourceID     *int
	Decision       bool
}

// Logger appends Entry rows to authorization_log. It is safe for
// concurrent use.
type Logger struct {
	db *sql.DB
}

// New builds a Logger over db.
func New(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Record writes e as a new authorization_log row, stamping it with a
// fresh xid (sortable, collision-free without coordination) and the
// current time.
func (l *Logger) Record(ctx context.Context, e Entry) error {
	row := store.AuthorizationLog{
		ID:             xid.New().String(),
		RealmID:        e.RealmID,
		PrincipalID:    e.PrincipalID,
		ResourceTypeID: e.ResourceTypeID,
		ActionID:       e.ActionID,
		ResourceID:     e.ResourceID,
		Decision:       e.Decision,
		CreatedAt:      time.Now(),
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO authorization_log (id, realm_id, principal_id, resource_type_id, action_id, resource_id, decision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.ID, row.RealmID, row.PrincipalID, row.ResourceTypeID, row.ActionID, row.ResourceID, row.Decision, row.CreatedAt)
	if err != nil {
		return pkgerrors.Wrap(err, "auditlog: record")
	}
	return nil
}
