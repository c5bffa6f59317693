package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

// selectSnippets reads snippets joined with their owner's username and the
// live score. Score is never stored; it is always the sum of the vote rows.
const selectSnippets = `
	SELECT s.id, s.user_id, u.username, s.title, s.content, s.language, s.is_public,
	       COALESCE((SELECT SUM(v.value) FROM votes v WHERE v.snippet_id = s.id), 0),
	       s.created_at, s.updated_at
	FROM snippets s
	JOIN users u ON u.id = s.user_id`

func scanSnippet(row rowScanner) (*model.Snippet, error) {
	var s model.Snippet
	if err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.OwnerName,
		&s.Title,
		&s.Content,
		&s.Language,
		&s.IsPublic,
		&s.Score,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSnippet inserts a snippet, filling in ID and timestamps.
func (db *DB) CreateSnippet(ctx context.Context, snippet *model.Snippet) error {
	now := time.Now().UTC()
	snippet.ID = xid.New().String()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	_, err := db.exec(ctx,
		`INSERT INTO snippets (id, user_id, title, content, language, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.OwnerID,
		snippet.Title,
		snippet.Content,
		snippet.Language,
		snippet.IsPublic,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return db.dialect.wrapWrite(err, "creating snippet")
	}
	return nil
}

// GetSnippet retrieves one snippet with owner name and score.
// Returns apperror.ErrNotFound if it does not exist.
func (db *DB) GetSnippet(ctx context.Context, id string) (*model.Snippet, error) {
	s, err := scanSnippet(db.queryRow(ctx, selectSnippets+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("%s: getting snippet %s: %w", db.dialect, id, err)
	}
	return s, nil
}

// LockSnippet reads the fields an access check needs. Inside a Postgres
// transaction the row is share-locked, so it cannot be deleted or flipped to
// private until the transaction ends. SQLite needs no lock: the single
// connection already serialises transactions.
func (db *DB) LockSnippet(ctx context.Context, id string) (*model.Snippet, error) {
	var s model.Snippet
	err := db.queryRow(ctx,
		`SELECT id, user_id, is_public FROM snippets WHERE id = ?`+db.dialect.shareLock(),
		id,
	).Scan(&s.ID, &s.OwnerID, &s.IsPublic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("%s: locking snippet %s: %w", db.dialect, id, err)
	}
	return &s, nil
}

// UpdateSnippet replaces title, content, language and visibility in one
// statement. Ownership never changes.
func (db *DB) UpdateSnippet(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now().UTC()

	res, err := db.exec(ctx,
		`UPDATE snippets SET title = ?, content = ?, language = ?, is_public = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Title,
		snippet.Content,
		snippet.Language,
		snippet.IsPublic,
		snippet.UpdatedAt,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: updating snippet %s: %w", db.dialect, snippet.ID, err)
	}
	return affected(res, apperror.NotFound("snippet", snippet.ID))
}

func (db *DB) SetSnippetVisibility(ctx context.Context, id string, public bool) error {
	res, err := db.exec(ctx,
		`UPDATE snippets SET is_public = ?, updated_at = ? WHERE id = ?`,
		public, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("%s: setting visibility of snippet %s: %w", db.dialect, id, err)
	}
	return affected(res, apperror.NotFound("snippet", id))
}

// DeleteSnippet removes a snippet and the votes cast on it.
func (db *DB) DeleteSnippet(ctx context.Context, id string) error {
	return db.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := db.exec(ctx, `DELETE FROM votes WHERE snippet_id = ?`, id); err != nil {
			return fmt.Errorf("%s: deleting votes of snippet %s: %w", db.dialect, id, err)
		}
		res, err := db.exec(ctx, `DELETE FROM snippets WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("%s: deleting snippet %s: %w", db.dialect, id, err)
		}
		return affected(res, apperror.NotFound("snippet", id))
	})
}

// ListSnippetsByOwner lists a user's snippets, newest first. Private ones
// are included only when includePrivate is set.
func (db *DB) ListSnippetsByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]model.Snippet, error) {
	query := selectSnippets + ` WHERE s.user_id = ?`
	args := []any{ownerID}
	if !includePrivate {
		query += ` AND s.is_public = ?`
		args = append(args, true)
	}
	query += ` ORDER BY s.created_at DESC, s.id DESC`

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: listing snippets of user %s: %w", db.dialect, ownerID, err)
	}
	defer rows.Close()
	return collectSnippets(rows, db.dialect)
}

// ListPublicSnippets lists public snippets from every user, newest first.
func (db *DB) ListPublicSnippets(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	rows, err := db.query(ctx,
		selectSnippets+` WHERE s.is_public = ?
		 ORDER BY s.created_at DESC, s.id DESC
		 LIMIT ? OFFSET ?`,
		true, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: listing public snippets: %w", db.dialect, err)
	}
	defer rows.Close()
	return collectSnippets(rows, db.dialect)
}

func collectSnippets(rows *sql.Rows, d Dialect) ([]model.Snippet, error) {
	// Initialise as empty slice, not nil, so JSON encodes [] instead of null.
	snippets := []model.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scanning snippet row: %w", d, err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterating snippet rows: %w", d, err)
	}
	return snippets, nil
}
