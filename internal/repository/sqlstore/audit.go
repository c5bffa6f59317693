package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

var _ repository.AuditRepository = (*DB)(nil)

// AppendAudit inserts an audit entry. Entries are never updated or deleted.
func (db *DB) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	entry.ID = xid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var actorID any
	if entry.ActorID != nil {
		actorID = *entry.ActorID
	}

	_, err := db.exec(ctx,
		`INSERT INTO audit_log (id, actor_id, actor_name, action, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, actorID, entry.ActorName, entry.Action, entry.Detail, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: appending audit entry %q: %w", db.dialect, entry.Action, err)
	}
	return nil
}

// ListAudit returns entries newest first.
func (db *DB) ListAudit(ctx context.Context, opts repository.ListOptions) ([]model.AuditEntry, error) {
	rows, err := db.query(ctx,
		`SELECT id, actor_id, actor_name, action, detail, created_at
		 FROM audit_log
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: listing audit log: %w", db.dialect, err)
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		var (
			e       model.AuditEntry
			actorID sql.NullString
		)
		if err := rows.Scan(&e.ID, &actorID, &e.ActorName, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scanning audit row: %w", db.dialect, err)
		}
		if actorID.Valid {
			id := actorID.String
			e.ActorID = &id
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterating audit rows: %w", db.dialect, err)
	}
	return entries, nil
}
