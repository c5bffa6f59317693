package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
	"github.com/sakif/snippet-hub/internal/repository/sqlstore"
)

// testEnv wires every service over one in-memory SQLite database.
type testEnv struct {
	db       *sqlstore.DB
	audit    *AuditService
	auth     *AuthService
	admin    *AdminService
	snippets *SnippetService
	votes    *VoteService
	stats    *StatsService
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	logger := newTestLogger()
	audit := NewAuditService(db, logger)
	return &testEnv{
		db:       db,
		audit:    audit,
		auth:     NewAuthService(db, auth.NewPasswordServiceForTest(), audit, logger),
		admin:    NewAdminService(db, audit, logger),
		snippets: NewSnippetService(db, audit, "javascript", logger),
		votes:    NewVoteService(db, logger),
		stats:    NewStatsService(db, logger),
	}
}

// register creates an account and returns its identity.
func (e *testEnv) register(t *testing.T, username string) model.Identity {
	t.Helper()
	u, err := e.auth.Register(context.Background(), username, "password-"+username, "Narnia")
	require.NoError(t, err)
	return u.Identity()
}

// moderator registers a user and promotes them. admin must be the admin.
func (e *testEnv) moderator(t *testing.T, admin model.Identity, username string) model.Identity {
	t.Helper()
	id := e.register(t, username)
	u, err := e.admin.SetModerator(context.Background(), admin, id.UserID, true)
	require.NoError(t, err)
	return u.Identity()
}

func (e *testEnv) snippet(t *testing.T, owner model.Identity, title string, public bool) *model.Snippet {
	t.Helper()
	s, err := e.snippets.CreateSnippet(context.Background(), owner, model.SnippetInput{
		Title:    title,
		Content:  "console.log('" + title + "')",
		IsPublic: public,
	})
	require.NoError(t, err)
	return s
}

func (e *testEnv) vote(t *testing.T, voter model.Identity, s *model.Snippet, dir model.Direction) *model.VoteResult {
	t.Helper()
	res, err := e.votes.CastVote(context.Background(), voter, s.ID, dir)
	require.NoError(t, err)
	return res
}

// auditActions returns the logged actions, newest first.
func (e *testEnv) auditActions(t *testing.T) []model.AuditEntry {
	t.Helper()
	entries, err := e.db.ListAudit(context.Background(), repository.ListOptions{Limit: 500})
	require.NoError(t, err)
	return entries
}

func findAudit(entries []model.AuditEntry, action string) *model.AuditEntry {
	for i := range entries {
		if entries[i].Action == action {
			return &entries[i]
		}
	}
	return nil
}

func errField(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

var listAll = repository.ListOptions{Limit: 1000}
