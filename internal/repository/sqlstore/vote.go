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

var _ repository.VoteRepository = (*DB)(nil)

// GetVote returns the caller's vote row on a snippet, or apperror.ErrNotFound
// when they have not voted.
func (db *DB) GetVote(ctx context.Context, userID, snippetID string) (*model.Vote, error) {
	var v model.Vote
	err := db.queryRow(ctx,
		`SELECT id, user_id, snippet_id, value, created_at, updated_at
		 FROM votes WHERE user_id = ? AND snippet_id = ?`,
		userID, snippetID,
	).Scan(&v.ID, &v.UserID, &v.SnippetID, &v.Value, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("vote", userID+"/"+snippetID)
		}
		return nil, fmt.Errorf("%s: getting vote of %s on %s: %w", db.dialect, userID, snippetID, err)
	}
	return &v, nil
}

// InsertVote adds a new vote row. A concurrent insert for the same
// (user, snippet) pair loses with repository.ErrUniqueViolation.
func (db *DB) InsertVote(ctx context.Context, vote *model.Vote) error {
	now := time.Now().UTC()
	vote.ID = xid.New().String()
	vote.CreatedAt = now
	vote.UpdatedAt = now

	_, err := db.exec(ctx,
		`INSERT INTO votes (id, user_id, snippet_id, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		vote.ID, vote.UserID, vote.SnippetID, vote.Value, vote.CreatedAt, vote.UpdatedAt,
	)
	if err != nil {
		return db.dialect.wrapWrite(err, "inserting vote of %s on %s", vote.UserID, vote.SnippetID)
	}
	return nil
}

func (db *DB) UpdateVoteValue(ctx context.Context, id string, value int) error {
	res, err := db.exec(ctx,
		`UPDATE votes SET value = ?, updated_at = ? WHERE id = ?`,
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("%s: updating vote %s: %w", db.dialect, id, err)
	}
	return affected(res, apperror.NotFound("vote", id))
}

func (db *DB) DeleteVote(ctx context.Context, id string) error {
	res, err := db.exec(ctx, `DELETE FROM votes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: deleting vote %s: %w", db.dialect, id, err)
	}
	return affected(res, apperror.NotFound("vote", id))
}

// SnippetScore sums every vote value on the snippet.
func (db *DB) SnippetScore(ctx context.Context, snippetID string) (int64, error) {
	var score int64
	err := db.queryRow(ctx,
		`SELECT COALESCE(SUM(value), 0) FROM votes WHERE snippet_id = ?`, snippetID,
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("%s: scoring snippet %s: %w", db.dialect, snippetID, err)
	}
	return score, nil
}
