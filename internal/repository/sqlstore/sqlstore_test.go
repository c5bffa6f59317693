package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// newTestDB opens a fresh migrated in-memory database. Each test gets its
// own; the single pooled connection keeps it alive until Cleanup.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err, "open test db")
	require.NoError(t, db.Migrate(), "migrate test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "hash", Country: "Unknown", Role: role}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func createTestSnippet(t *testing.T, db *DB, owner *model.User, title string, public bool) *model.Snippet {
	t.Helper()
	s := &model.Snippet{OwnerID: owner.ID, Title: title, Content: "x", Language: "go", IsPublic: public}
	require.NoError(t, db.CreateSnippet(context.Background(), s))
	return s
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

// =========================================================================
// OPEN / DIALECT
// =========================================================================

func TestParseURL(t *testing.T) {
	tests := []struct {
		in      string
		dialect Dialect
		dsn     string
		wantErr bool
	}{
		{in: "sqlite://data/snippets.db", dialect: SQLite, dsn: "data/snippets.db"},
		{in: "sqlite:///var/lib/app.db", dialect: SQLite, dsn: "/var/lib/app.db"},
		{in: ":memory:", dialect: SQLite, dsn: ":memory:"},
		{in: "snippets.db", dialect: SQLite, dsn: "snippets.db"},
		{in: "postgres://u:p@localhost/db", dialect: Postgres, dsn: "postgres://u:p@localhost/db"},
		{in: "postgresql://u:p@localhost/db", dialect: Postgres, dsn: "postgresql://u:p@localhost/db"},
		{in: "", wantErr: true},
		{in: "sqlite://", wantErr: true},
		{in: "mysql://u:p@localhost/db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, dsn, err := ParseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, d)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://app:****@db:5432/snippets", Redact("postgres://app:s3cret@db:5432/snippets"))
	assert.Equal(t, "postgres://db/snippets", Redact("postgres://db/snippets"))
	assert.Equal(t, "sqlite://data/snippets.db", Redact("sqlite://data/snippets.db"))
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b LIKE ? ESCAPE '\' AND c = '?'`
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t,
		`SELECT * FROM t WHERE a = $1 AND b LIKE $2 ESCAPE '\' AND c = '?'`,
		Postgres.Rebind(q))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%ali%`, likePattern("ALI"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Migrate())

	st, err := db.MigrationStatus()
	require.NoError(t, err)
	assert.True(t, st.Applied)
	assert.False(t, st.Dirty)
	assert.EqualValues(t, 1, st.Version)
}

func TestCheck(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Check(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, db.Check(context.Background()))
}

func TestReset_DropsData(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice", model.RoleAdmin)

	require.NoError(t, db.Reset())

	n, err := db.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =========================================================================
// TRANSACTIONS
// =========================================================================

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		u := &model.User{Username: "ghost", Country: "Unknown", Role: model.RoleMember}
		require.NoError(t, db.CreateUser(ctx, u))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "insert inside a failed transaction must not persist")
}

func TestWithinTx_Commits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		for _, name := range []string{"a", "b"} {
			if err := db.CreateUser(ctx, &model.User{Username: name, Country: "Unknown", Role: model.RoleMember}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	n, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestWithinTx_Nested(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "outer", model.RoleAdmin)

	// DeleteUser opens its own transaction; inside WithinTx it must join the
	// outer one instead of waiting for SQLite's only connection.
	err := db.WithinTx(ctx, func(ctx context.Context) error {
		return db.DeleteUser(ctx, u.ID)
	})
	require.NoError(t, err)

	_, err = db.GetUserByID(ctx, u.ID)
	assert.True(t, isNotFound(err))
}

func TestWithinTx_PanicRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = db.WithinTx(ctx, func(ctx context.Context) error {
			_ = db.CreateUser(ctx, &model.User{Username: "p", Country: "Unknown", Role: model.RoleMember})
			panic("kaboom")
		})
	})

	n, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =========================================================================
// USERS
// =========================================================================

func TestCreateUser_SetsIDAndTimestamps(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice", model.RoleAdmin)

	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.False(t, u.UpdatedAt.IsZero())

	got, err := db.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, model.RoleAdmin, got.Role)
	assert.Nil(t, got.GitHubID)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice", model.RoleAdmin)

	err := db.CreateUser(context.Background(), &model.User{Username: "alice", Country: "Unknown", Role: model.RoleMember})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)
}

func TestCreateUser_SecondAdminRejected(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice", model.RoleAdmin)

	err := db.CreateUser(context.Background(), &model.User{Username: "bob", Country: "Unknown", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)
}

func TestCreateUser_MultipleUnlinkedGitHub(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "a", model.RoleAdmin)
	createTestUser(t, db, "b", model.RoleMember)

	id := int64(42)
	u := &model.User{Username: "c", Country: "Unknown", Role: model.RoleMember, GitHubID: &id}
	require.NoError(t, db.CreateUser(context.Background(), u))

	got, err := db.GetUserByGitHubID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, got.GitHubID)
	assert.EqualValues(t, 42, *got.GitHubID)
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetUserByID(ctx, "nope")
	assert.True(t, isNotFound(err))
	_, err = db.GetUserByUsername(ctx, "nope")
	assert.True(t, isNotFound(err))
	_, err = db.GetUserByGitHubID(ctx, 7)
	assert.True(t, isNotFound(err))
}

func strPtr(s string) *string { return &s }

func TestUpdateUserSettings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice", model.RoleMember)

	require.NoError(t, db.UpdateUserSettings(ctx, u.ID, repository.UserChanges{
		Username: strPtr("alicia"),
		Country:  strPtr("Bangladesh"),
	}))

	got, err := db.GetUserByUsername(ctx, "alicia")
	require.NoError(t, err)
	assert.Equal(t, "Bangladesh", got.Country)
	assert.Equal(t, "hash", got.PasswordHash, "unset fields are untouched")
}

func TestUpdateUserSettings_LeavesRoleAlone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "bob", model.RoleMember)

	require.NoError(t, db.UpdateUserRole(ctx, u.ID, model.RoleModerator))
	require.NoError(t, db.UpdateUserSettings(ctx, u.ID, repository.UserChanges{PasswordHash: strPtr("new-hash")}))

	got, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, got.Role)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func TestUpdateUserSettings_Empty(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.UpdateUserSettings(context.Background(), "anyone", repository.UserChanges{}))
}

func TestUpdateUserSettings_RenameCollision(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice", model.RoleAdmin)
	bob := createTestUser(t, db, "bob", model.RoleMember)

	err := db.UpdateUserSettings(context.Background(), bob.ID, repository.UserChanges{Username: strPtr("alice")})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)
}

func TestUpdateUserRole(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "root", model.RoleAdmin)
	bob := createTestUser(t, db, "bob", model.RoleMember)

	require.NoError(t, db.UpdateUserRole(ctx, bob.ID, model.RoleModerator))
	got, err := db.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, got.Role)

	assert.ErrorIs(t, db.UpdateUserRole(ctx, bob.ID, model.RoleAdmin), repository.ErrUniqueViolation,
		"the single-admin index still applies")
	assert.True(t, isNotFound(db.UpdateUserRole(ctx, "ghost", model.RoleMember)))
}

func TestDeleteUser_RemovesEverything(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice", model.RoleAdmin)
	bob := createTestUser(t, db, "bob", model.RoleMember)

	bobs := createTestSnippet(t, db, bob, "bob's", true)
	alices := createTestSnippet(t, db, alice, "alice's", true)
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: alice.ID, SnippetID: bobs.ID, Value: 1}))
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: bob.ID, SnippetID: alices.ID, Value: -1}))

	require.NoError(t, db.DeleteUser(ctx, bob.ID))

	_, err := db.GetUserByID(ctx, bob.ID)
	assert.True(t, isNotFound(err))
	_, err = db.GetSnippet(ctx, bobs.ID)
	assert.True(t, isNotFound(err))

	score, err := db.SnippetScore(ctx, alices.ID)
	require.NoError(t, err)
	assert.Zero(t, score, "bob's vote on alice's snippet must be gone")

	var orphans int
	require.NoError(t, db.conn.QueryRow(`SELECT COUNT(*) FROM votes`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestDeleteUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	assert.True(t, isNotFound(db.DeleteUser(context.Background(), "missing")))
}

func TestSearchUsers(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "Alice", model.RoleAdmin)
	createTestUser(t, db, "malice", model.RoleMember)
	createTestUser(t, db, "ali", model.RoleMember)
	createTestUser(t, db, "bob", model.RoleMember)
	createTestUser(t, db, "a_b", model.RoleMember)

	users, err := db.SearchUsers(context.Background(), "ALI", 10)
	require.NoError(t, err)

	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"ali", "Alice", "malice"}, names)

	// "_" is literal, not a wildcard.
	users, err = db.SearchUsers(context.Background(), "_", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a_b", users[0].Username)
}

func TestListUsers_Pagination(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "a", model.RoleAdmin)
	createTestUser(t, db, "b", model.RoleMember)
	createTestUser(t, db, "c", model.RoleMember)

	page, err := db.ListUsers(context.Background(), repository.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Username)
}

// =========================================================================
// SNIPPETS
// =========================================================================

func TestCreateAndGetSnippet(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	s := createTestSnippet(t, db, owner, "hello", false)

	got, err := db.GetSnippet(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, "alice", got.OwnerName)
	assert.Equal(t, owner.ID, got.OwnerID)
	assert.False(t, got.IsPublic)
	assert.Zero(t, got.Score)
}

func TestCreateSnippet_UnknownOwner(t *testing.T) {
	db := newTestDB(t)
	err := db.CreateSnippet(context.Background(), &model.Snippet{OwnerID: "ghost", Title: "t", Content: "c", Language: "go"})
	assert.Error(t, err, "foreign key must reject a snippet without an owner row")
}

func TestUpdateSnippet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	s := createTestSnippet(t, db, owner, "before", false)

	s.Title, s.Content, s.Language, s.IsPublic = "after", "new", "python", true
	require.NoError(t, db.UpdateSnippet(ctx, s))

	got, err := db.GetSnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, "python", got.Language)
	assert.True(t, got.IsPublic)
}

func TestUpdateSnippet_NotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateSnippet(context.Background(), &model.Snippet{ID: "missing", Title: "t"})
	assert.True(t, isNotFound(err))
}

func TestSetSnippetVisibility(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	s := createTestSnippet(t, db, owner, "t", false)

	require.NoError(t, db.SetSnippetVisibility(ctx, s.ID, true))
	got, err := db.GetSnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublic)

	assert.True(t, isNotFound(db.SetSnippetVisibility(ctx, "missing", true)))
}

func TestDeleteSnippet_RemovesVotes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	voter := createTestUser(t, db, "bob", model.RoleMember)
	s := createTestSnippet(t, db, owner, "t", true)
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: voter.ID, SnippetID: s.ID, Value: 1}))

	require.NoError(t, db.DeleteSnippet(ctx, s.ID))

	_, err := db.GetVote(ctx, voter.ID, s.ID)
	assert.True(t, isNotFound(err))
	assert.True(t, isNotFound(db.DeleteSnippet(ctx, s.ID)))
}

func TestListSnippetsByOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	createTestSnippet(t, db, owner, "first", true)
	createTestSnippet(t, db, owner, "secret", false)
	createTestSnippet(t, db, owner, "third", true)

	all, err := db.ListSnippetsByOwner(ctx, owner.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Title, "newest first")

	public, err := db.ListSnippetsByOwner(ctx, owner.ID, false)
	require.NoError(t, err)
	require.Len(t, public, 2)
	for _, s := range public {
		assert.True(t, s.IsPublic)
	}
}

func TestListPublicSnippets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "alice", model.RoleAdmin)
	b := createTestUser(t, db, "bob", model.RoleMember)
	createTestSnippet(t, db, a, "a1", true)
	createTestSnippet(t, db, b, "b-private", false)
	createTestSnippet(t, db, b, "b1", true)

	got, err := db.ListPublicSnippets(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].Title)
	assert.Equal(t, "bob", got[0].OwnerName)

	empty, err := newTestDB(t).ListPublicSnippets(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

// =========================================================================
// VOTES
// =========================================================================

func TestVoteLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	voter := createTestUser(t, db, "bob", model.RoleMember)
	s := createTestSnippet(t, db, owner, "t", true)

	v := &model.Vote{UserID: voter.ID, SnippetID: s.ID, Value: 1}
	require.NoError(t, db.InsertVote(ctx, v))

	got, err := db.GetVote(ctx, voter.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Value)

	require.NoError(t, db.UpdateVoteValue(ctx, v.ID, -1))
	score, err := db.SnippetScore(ctx, s.ID)
	require.NoError(t, err)
	assert.EqualValues(t, -1, score)

	require.NoError(t, db.DeleteVote(ctx, v.ID))
	_, err = db.GetVote(ctx, voter.ID, s.ID)
	assert.True(t, isNotFound(err))
}

func TestInsertVote_DuplicatePair(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	s := createTestSnippet(t, db, owner, "t", true)

	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: owner.ID, SnippetID: s.ID, Value: 1}))
	err := db.InsertVote(ctx, &model.Vote{UserID: owner.ID, SnippetID: s.ID, Value: -1})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)
}

func TestInsertVote_UnknownSnippet(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", model.RoleAdmin)

	err := db.InsertVote(context.Background(), &model.Vote{UserID: owner.ID, SnippetID: "gone", Value: 1})
	assert.ErrorIs(t, err, repository.ErrForeignKeyViolation)
	assert.NotErrorIs(t, err, repository.ErrUniqueViolation)
}

func TestLockSnippet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	s := createTestSnippet(t, db, owner, "t", false)

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		got, err := db.LockSnippet(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, owner.ID, got.OwnerID)
		assert.False(t, got.IsPublic)
		return nil
	})
	require.NoError(t, err)

	_, err = db.LockSnippet(ctx, "missing")
	assert.True(t, isNotFound(err))
}

func TestInsertVote_RejectsBadValue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	s := createTestSnippet(t, db, owner, "t", true)

	err := db.InsertVote(ctx, &model.Vote{UserID: owner.ID, SnippetID: s.ID, Value: 2})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrUniqueViolation)
}

func TestSnippetScore_IncludesDownvotes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	s := createTestSnippet(t, db, owner, "t", true)
	for i, v := range []int{1, 1, -1} {
		u := createTestUser(t, db, string(rune('b'+i)), model.RoleMember)
		require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: u.ID, SnippetID: s.ID, Value: v}))
	}

	score, err := db.SnippetScore(ctx, s.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, score)

	got, err := db.GetSnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Score)
}

// =========================================================================
// AUDIT
// =========================================================================

func TestAudit_AppendAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	actor := "u1"

	require.NoError(t, db.AppendAudit(ctx, &model.AuditEntry{ActorID: &actor, ActorName: "alice", Action: model.ActionLogin}))
	require.NoError(t, db.AppendAudit(ctx, &model.AuditEntry{ActorName: "system", Action: model.ActionRegister, Detail: "seed"}))

	entries, err := db.ListAudit(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionRegister, entries[0].Action, "newest first")
	assert.Nil(t, entries[0].ActorID)
	require.NotNil(t, entries[1].ActorID)
	assert.Equal(t, "u1", *entries[1].ActorID)
}

func TestAudit_SurvivesUserDeletion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice", model.RoleAdmin)
	require.NoError(t, db.AppendAudit(ctx, &model.AuditEntry{ActorID: &u.ID, ActorName: u.Username, Action: model.ActionLogin}))

	require.NoError(t, db.DeleteUser(ctx, u.ID))

	entries, err := db.ListAudit(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].ActorName)
}

// =========================================================================
// STATS
// =========================================================================

func TestProfileStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "alice", model.RoleAdmin)
	b := createTestUser(t, db, "bob", model.RoleMember)
	c := createTestUser(t, db, "carol", model.RoleMember)

	pub := createTestSnippet(t, db, owner, "pub", true)
	priv := createTestSnippet(t, db, owner, "priv", false)
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: b.ID, SnippetID: pub.ID, Value: 1}))
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: c.ID, SnippetID: pub.ID, Value: -1}))
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: owner.ID, SnippetID: priv.ID, Value: 1}))

	self, err := db.ProfileStats(ctx, owner.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.ProfileStats{SnippetCount: 2, TotalScore: 2}, self)

	visitor, err := db.ProfileStats(ctx, owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.ProfileStats{SnippetCount: 1, TotalScore: 1}, visitor, "downvotes are not subtracted")
}

func TestLeaderboards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice", model.RoleAdmin)
	bob := createTestUser(t, db, "bob", model.RoleMember)
	carol := createTestUser(t, db, "carol", model.RoleMember)
	createTestUser(t, db, "dave", model.RoleMember)

	a1 := createTestSnippet(t, db, alice, "a1", true)
	createTestSnippet(t, db, alice, "a2", false)
	b1 := createTestSnippet(t, db, bob, "b1", true)
	c1 := createTestSnippet(t, db, carol, "c1", true)

	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: bob.ID, SnippetID: a1.ID, Value: -1}))
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: alice.ID, SnippetID: b1.ID, Value: 1}))
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: carol.ID, SnippetID: b1.ID, Value: 1}))
	require.NoError(t, db.InsertVote(ctx, &model.Vote{UserID: alice.ID, SnippetID: c1.ID, Value: 1}))

	counts, err := db.LeaderboardBySnippetCount(ctx, 10)
	require.NoError(t, err)
	require.Len(t, counts, 3, "users without snippets are left out")
	assert.Equal(t, model.LeaderboardEntry{Username: "alice", Country: "Unknown", Role: model.RoleAdmin, Value: 2}, counts[0])
	assert.Equal(t, "bob", counts[1].Username, "ties break by username")
	assert.Equal(t, "carol", counts[2].Username)

	rep, err := db.LeaderboardByReputation(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rep, 2)
	assert.Equal(t, "bob", rep[0].Username)
	assert.EqualValues(t, 2, rep[0].Value)
	assert.Equal(t, "carol", rep[1].Username)
}

func TestCountByCountry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for i, c := range []string{"Bangladesh", "Canada", "Bangladesh", "Unknown"} {
		u := &model.User{Username: string(rune('a' + i)), Country: c, Role: model.RoleMember}
		require.NoError(t, db.CreateUser(ctx, u))
	}

	counts, err := db.CountByCountry(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.CountryCount{
		{Country: "Bangladesh", Users: 2},
		{Country: "Canada", Users: 1},
		{Country: "Unknown", Users: 1},
	}, counts)
}
