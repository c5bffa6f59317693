package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
)

// =========================================================================
// Create / Edit
// =========================================================================

func TestCreateSnippet(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	s, err := env.snippets.CreateSnippet(context.Background(), alice, model.SnippetInput{
		Title:   "  Hello  ",
		Content: "fmt.Println(1)",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Hello", s.Title)
	assert.Equal(t, "javascript", s.Language)
	assert.Equal(t, alice.UserID, s.OwnerID)
	assert.False(t, s.IsPublic)
}

func TestCreateSnippet_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input model.SnippetInput
		field string
	}{
		{"missing title", model.SnippetInput{Content: "x"}, "title"},
		{"blank title", model.SnippetInput{Title: "  ", Content: "x"}, "title"},
		{"long title", model.SnippetInput{Title: strings.Repeat("t", MaxTitleLength+1), Content: "x"}, "title"},
		{"missing content", model.SnippetInput{Title: "t"}, "content"},
		{"whitespace content", model.SnippetInput{Title: "t", Content: " \n\t"}, "content"},
		{"long content", model.SnippetInput{Title: "t", Content: strings.Repeat("c", MaxContentLength+1)}, "content"},
		{"long language", model.SnippetInput{Title: "t", Content: "x", Language: strings.Repeat("l", MaxLanguageLength+1)}, "language"},
	}

	env := newTestEnv(t)
	alice := env.register(t, "alice")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.snippets.CreateSnippet(context.Background(), alice, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, tt.field, errField(err))
		})
	}
}

func TestCreateSnippet_RequiresSignIn(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.snippets.CreateSnippet(context.Background(), model.Identity{}, model.SnippetInput{Title: "t", Content: "x"})
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
}

func TestEditSnippet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root")
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	s := env.snippet(t, alice, "draft", false)

	edited, err := env.snippets.EditSnippet(ctx, alice, s.ID, model.SnippetInput{
		Title: "final", Content: "print(2)", Language: "python", IsPublic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Title)
	assert.Equal(t, "python", edited.Language)
	assert.True(t, edited.IsPublic)

	stored, err := env.db.GetSnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "print(2)", stored.Content)
	assert.True(t, stored.IsPublic)

	for _, caller := range []model.Identity{bob, admin} {
		_, err = env.snippets.EditSnippet(ctx, caller, s.ID, model.SnippetInput{Title: "x", Content: "y"})
		assert.True(t, errors.Is(err, apperror.ErrForbidden), "caller %s", caller.Username)
	}

	_, err = env.snippets.EditSnippet(ctx, alice, "missing", model.SnippetInput{Title: "x", Content: "y"})
	assert.True(t, isNotFound(err))
}

// =========================================================================
// Delete
// =========================================================================

func TestDeleteSnippet_ByOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	s := env.snippet(t, alice, "gone", true)
	env.vote(t, bob, s, model.Up)

	require.NoError(t, env.snippets.DeleteSnippet(ctx, alice, s.ID))

	_, err := env.db.GetSnippet(ctx, s.ID)
	assert.True(t, isNotFound(err))
	_, err = env.db.GetVote(ctx, bob.UserID, s.ID)
	assert.True(t, isNotFound(err))

	e := findAudit(env.auditActions(t), model.ActionDeleteSnippet)
	require.NotNil(t, e)
	assert.Equal(t, "alice", e.ActorName)
}

func TestDeleteSnippet_ByStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root")
	mod := env.moderator(t, admin, "mod")
	alice := env.register(t, "alice")
	private := env.snippet(t, alice, "secret", false)

	require.NoError(t, env.snippets.DeleteSnippet(ctx, mod, private.ID))

	e := findAudit(env.auditActions(t), model.ActionStaffDeleteSnippet)
	require.NotNil(t, e)
	assert.Equal(t, "mod", e.ActorName)
	assert.Contains(t, e.Detail, "alice")
	assert.Nil(t, findAudit(env.auditActions(t), model.ActionDeleteSnippet))

	// The owner comes back to a snippet that is already gone.
	err := env.snippets.DeleteSnippet(ctx, alice, private.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Nil(t, findAudit(env.auditActions(t), model.ActionDeleteSnippet))
}

func TestDeleteSnippet_Refused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "root")
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	s := env.snippet(t, alice, "keep", true)

	err := env.snippets.DeleteSnippet(ctx, bob, s.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	err = env.snippets.DeleteSnippet(ctx, model.Identity{}, s.ID)
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	err = env.snippets.DeleteSnippet(ctx, alice, "missing")
	assert.True(t, isNotFound(err))

	_, err = env.db.GetSnippet(ctx, s.ID)
	assert.NoError(t, err)
}

// =========================================================================
// Visibility / View
// =========================================================================

func TestToggleVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root")
	alice := env.register(t, "alice")
	s := env.snippet(t, alice, "flip", false)

	public, err := env.snippets.ToggleVisibility(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.True(t, public)

	public, err = env.snippets.ToggleVisibility(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.False(t, public)

	_, err = env.snippets.ToggleVisibility(ctx, admin, s.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestViewSnippet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root")
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	public := env.snippet(t, alice, "open", true)
	private := env.snippet(t, alice, "closed", false)
	env.vote(t, bob, public, model.Down)

	got, err := env.snippets.ViewSnippet(ctx, bob, public.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerName)
	assert.EqualValues(t, -1, got.Score)
	assert.Equal(t, -1, got.MyVote)

	got, err = env.snippets.ViewSnippet(ctx, model.Identity{}, public.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MyVote)

	got, err = env.snippets.ViewSnippet(ctx, alice, private.ID)
	require.NoError(t, err)
	assert.Equal(t, "closed", got.Title)

	for _, caller := range []model.Identity{{}, bob, admin} {
		_, err = env.snippets.ViewSnippet(ctx, caller, private.ID)
		assert.True(t, errors.Is(err, apperror.ErrForbidden), "caller %q", caller.Username)
	}

	_, err = env.snippets.ViewSnippet(ctx, alice, "missing")
	assert.True(t, isNotFound(err))
}

// =========================================================================
// Listing
// =========================================================================

func TestListSnippetsForUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.snippet(t, alice, "first", true)
	env.snippet(t, alice, "second", false)
	env.snippet(t, alice, "third", true)

	own, err := env.snippets.ListSnippetsForUser(ctx, alice, "alice")
	require.NoError(t, err)
	require.Len(t, own, 3)
	assert.Equal(t, "third", own[0].Title)

	seen, err := env.snippets.ListSnippetsForUser(ctx, bob, "alice")
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	for _, s := range seen {
		assert.True(t, s.IsPublic)
	}

	_, err = env.snippets.ListSnippetsForUser(ctx, bob, "nobody")
	assert.True(t, isNotFound(err))
}

func TestListRecentPublic(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	for i := 0; i < 12; i++ {
		env.snippet(t, alice, "s"+string(rune('a'+i)), i%3 != 0)
	}

	recent, err := env.snippets.ListRecentPublic(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 8)
	assert.Equal(t, "sl", recent[0].Title)

	limited, err := env.snippets.ListRecentPublic(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}
