package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, password_hash, country, role, github_id, created_at, updated_at`

// scanUser reads one row selected with userColumns.
//
// role is scanned into a plain string and github_id into sql.NullInt64 so the
// drivers only ever see primitive destinations.
func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		role     string
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Country,
		&role,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

// nullableGitHubID converts the optional id into a driver argument.
func nullableGitHubID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// CreateUser inserts a new user, filling in ID and timestamps.
//
// A taken username, a reused GitHub id or a second admin all surface as
// repository.ErrUniqueViolation. The caller decides which one it was.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.exec(ctx,
		`INSERT INTO users (id, username, password_hash, country, role, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Country,
		string(user.Role),
		nullableGitHubID(user.GitHubID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return db.dialect.wrapWrite(err, "inserting user %q", user.Username)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("%s: getting user %s: %w", db.dialect, id, err)
	}
	return u, nil
}

// GetUserByUsername matches the username exactly (case-sensitive).
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("%s: getting user %q: %w", db.dialect, username, err)
	}
	return u, nil
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := scanUser(db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("%s: getting user by github id %d: %w", db.dialect, githubID, err)
	}
	return u, nil
}

func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := db.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: counting users: %w", db.dialect, err)
	}
	return n, nil
}

// UpdateUserSettings writes the username, password hash and country fields
// that are set in changes, plus updated_at. Role and GitHub link are never
// touched here.
func (db *DB) UpdateUserSettings(ctx context.Context, id string, changes repository.UserChanges) error {
	if changes.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if changes.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *changes.Username)
	}
	if changes.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *changes.PasswordHash)
	}
	if changes.Country != nil {
		sets = append(sets, "country = ?")
		args = append(args, *changes.Country)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := db.exec(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return db.dialect.wrapWrite(err, "updating settings of user %s", id)
	}
	return affected(res, apperror.NotFound("user", id))
}

// UpdateUserRole writes the role column alone.
func (db *DB) UpdateUserRole(ctx context.Context, id string, role model.Role) error {
	res, err := db.exec(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), id,
	)
	if err != nil {
		return db.dialect.wrapWrite(err, "setting role of user %s", id)
	}
	return affected(res, apperror.NotFound("user", id))
}

// DeleteUser removes a user and everything hanging off them, in dependency
// order: votes on the user's snippets, the user's own votes, the user's
// snippets, then the user row. The foreign keys cascade as well; the
// explicit sequence keeps the outcome independent of that.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	return db.WithinTx(ctx, func(ctx context.Context) error {
		steps := []struct {
			what  string
			query string
		}{
			{"deleting votes on user's snippets", `DELETE FROM votes WHERE snippet_id IN (SELECT id FROM snippets WHERE user_id = ?)`},
			{"deleting user's votes", `DELETE FROM votes WHERE user_id = ?`},
			{"deleting user's snippets", `DELETE FROM snippets WHERE user_id = ?`},
		}
		for _, s := range steps {
			if _, err := db.exec(ctx, s.query, id); err != nil {
				return fmt.Errorf("%s: %s %s: %w", db.dialect, s.what, id, err)
			}
		}

		res, err := db.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("%s: deleting user %s: %w", db.dialect, id, err)
		}
		return affected(res, apperror.NotFound("user", id))
	})
}

// SearchUsers returns users whose username contains query, ignoring case.
// An exact (case-insensitive) match sorts first, then alphabetical order.
func (db *DB) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	q := strings.TrimSpace(query)
	rows, err := db.query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE LOWER(username) LIKE ? ESCAPE '\'
		 ORDER BY CASE WHEN LOWER(username) = ? THEN 0 ELSE 1 END, username
		 LIMIT ?`,
		likePattern(q), strings.ToLower(q), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: searching users %q: %w", db.dialect, q, err)
	}
	defer rows.Close()
	return collectUsers(rows, db.dialect)
}

// ListUsers lists every account, oldest first.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	rows, err := db.query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: listing users: %w", db.dialect, err)
	}
	defer rows.Close()
	return collectUsers(rows, db.dialect)
}

func collectUsers(rows *sql.Rows, d Dialect) ([]model.User, error) {
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scanning user row: %w", d, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterating user rows: %w", d, err)
	}
	return users, nil
}
