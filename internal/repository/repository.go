// Package repository declares the storage contracts the service layer
// depends on. The only production implementation lives in
// repository/sqlstore; service tests run against the same implementation
// backed by in-memory SQLite.
//
// Repositories return apperror.NotFound for missing rows and wrap
// ErrUniqueViolation or ErrForeignKeyViolation when a write hits a
// constraint. Everything else is an opaque storage failure.
package repository

import (
	"context"
	"errors"

	"github.com/sakif/snippet-hub/internal/model"
)

// ErrUniqueViolation is wrapped by repository errors caused by a unique
// constraint (duplicate username, second vote row for the same pair, a
// second admin).
var ErrUniqueViolation = errors.New("unique constraint violation")

// ErrForeignKeyViolation is wrapped when a write references a row that no
// longer exists, e.g. a vote on a snippet deleted a moment earlier.
var ErrForeignKeyViolation = errors.New("foreign key violation")

// UserChanges lists the columns a settings update may write. Nil fields are
// left untouched, so a concurrent role change is never overwritten.
type UserChanges struct {
	Username     *string
	PasswordHash *string
	Country      *string
}

// Empty reports whether there is nothing to write.
func (c UserChanges) Empty() bool {
	return c.Username == nil && c.PasswordHash == nil && c.Country == nil
}

type ListOptions struct {
	Limit  int
	Offset int
}

// Transactor runs fn inside a single database transaction.
//
// Repository calls made with the ctx handed to fn join that transaction.
// If fn returns an error (or panics) the transaction is rolled back,
// otherwise it is committed. Nested calls reuse the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	CountUsers(ctx context.Context) (int64, error)
	// UpdateUserSettings writes only the non-nil fields of changes.
	UpdateUserSettings(ctx context.Context, id string, changes UserChanges) error
	UpdateUserRole(ctx context.Context, id string, role model.Role) error
	// DeleteUser removes the user together with their votes, their snippets
	// and every vote cast on those snippets.
	DeleteUser(ctx context.Context, id string) error
	SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
}

type SnippetRepository interface {
	CreateSnippet(ctx context.Context, snippet *model.Snippet) error
	GetSnippet(ctx context.Context, id string) (*model.Snippet, error)
	// LockSnippet reads id, owner and visibility and, where the database
	// supports it, holds a share lock on the row until the transaction ends.
	LockSnippet(ctx context.Context, id string) (*model.Snippet, error)
	UpdateSnippet(ctx context.Context, snippet *model.Snippet) error
	SetSnippetVisibility(ctx context.Context, id string, public bool) error
	DeleteSnippet(ctx context.Context, id string) error
	ListSnippetsByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]model.Snippet, error)
	ListPublicSnippets(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
}

type VoteRepository interface {
	GetVote(ctx context.Context, userID, snippetID string) (*model.Vote, error)
	InsertVote(ctx context.Context, vote *model.Vote) error
	UpdateVoteValue(ctx context.Context, id string, value int) error
	DeleteVote(ctx context.Context, id string) error
	SnippetScore(ctx context.Context, snippetID string) (int64, error)
}

type AuditRepository interface {
	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
	ListAudit(ctx context.Context, opts ListOptions) ([]model.AuditEntry, error)
}

type StatsRepository interface {
	ProfileStats(ctx context.Context, ownerID string, includePrivate bool) (model.ProfileStats, error)
	LeaderboardBySnippetCount(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	LeaderboardByReputation(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	CountByCountry(ctx context.Context) ([]model.CountryCount, error)
}

// Store is the full storage surface, implemented by *sqlstore.DB.
type Store interface {
	Transactor
	UserRepository
	SnippetRepository
	VoteRepository
	AuditRepository
	StatsRepository
	Ping(ctx context.Context) error
}
