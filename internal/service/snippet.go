// Package service holds the business rules of snippet-hub.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)     → decodes requests, encodes responses
//	Service (rules)    → validates, checks permissions, audits
//	Repository (SQL)   → reads and writes rows
//
// CALLER IDENTITY:
// Every operation takes the caller's model.Identity explicitly. Services
// never read it from the context, so the HTTP handlers and the tests drive
// them the same way.
//
// PERMISSIONS:
// AuthorizeSnippet and AuthorizeUser classify the caller as Owner, Staff,
// Public or Denied. Each operation states the level it needs and returns
// apperror.Forbidden below it.
//
// TRANSACTIONS:
// Services compose repository calls with WithinTx. Code inside the callback
// must use the ctx it receives. Slow work such as bcrypt runs before the
// transaction opens, and audit entries are written after it commits.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// Validation limits and list defaults.
const (
	MaxTitleLength     = 120
	MaxContentLength   = 100000 // ~100KB of code
	MaxLanguageLength  = 50
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultRecentLimit = 10
)

// SnippetStore is what SnippetService needs from storage.
type SnippetStore interface {
	repository.Transactor
	repository.SnippetRepository
	repository.VoteRepository
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// SnippetService handles snippet CRUD and visibility.
type SnippetService struct {
	repo            SnippetStore
	audit           *AuditService
	defaultLanguage string
	logger          *slog.Logger
}

// NewSnippetService creates a SnippetService. defaultLanguage fills in the
// language of snippets created without one; empty means "javascript".
func NewSnippetService(repo SnippetStore, audit *AuditService, defaultLanguage string, logger *slog.Logger) *SnippetService {
	if defaultLanguage == "" {
		defaultLanguage = "javascript"
	}
	return &SnippetService{
		repo:            repo,
		audit:           audit,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

// normalize trims and validates input in place.
func (s *SnippetService) normalize(in *model.SnippetInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Language = strings.TrimSpace(in.Language)

	if in.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if strings.TrimSpace(in.Content) == "" {
		return apperror.ValidationFailed("content", "content is required")
	}
	if len(in.Content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d bytes or less", MaxContentLength))
	}
	if in.Language == "" {
		in.Language = s.defaultLanguage
	}
	if utf8.RuneCountInString(in.Language) > MaxLanguageLength {
		return apperror.ValidationFailed("language",
			fmt.Sprintf("language must be %d characters or less", MaxLanguageLength))
	}
	return nil
}

// CreateSnippet stores a new snippet owned by the caller.
//
// VALIDATION:
//   - title: required, at most MaxTitleLength characters
//   - content: required, at most MaxContentLength bytes
//   - language: optional, defaults to the service's default language
func (s *SnippetService) CreateSnippet(ctx context.Context, caller model.Identity, in model.SnippetInput) (*model.Snippet, error) {
	if !caller.Authenticated() {
		return nil, apperror.Unauthorized("sign in to create snippets")
	}
	if err := s.normalize(&in); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		OwnerID:   caller.UserID,
		OwnerName: caller.Username,
		Title:     in.Title,
		Content:   in.Content,
		Language:  in.Language,
		IsPublic:  in.IsPublic,
	}
	if err := s.repo.CreateSnippet(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("owner", caller.Username),
		slog.Bool("public", snippet.IsPublic),
	)
	return snippet, nil
}

// EditSnippet replaces title, content, language and visibility. Owner only.
func (s *SnippetService) EditSnippet(ctx context.Context, caller model.Identity, id string, in model.SnippetInput) (*model.Snippet, error) {
	if !caller.Authenticated() {
		return nil, apperror.Unauthorized("sign in required")
	}
	snippet, err := s.repo.GetSnippet(ctx, id)
	if err != nil {
		return nil, err
	}
	if AuthorizeSnippet(caller, snippet) != AccessOwner {
		return nil, apperror.Forbidden("you can only edit your own snippets")
	}
	if err := s.normalize(&in); err != nil {
		return nil, err
	}

	snippet.Title = in.Title
	snippet.Content = in.Content
	snippet.Language = in.Language
	snippet.IsPublic = in.IsPublic
	if err := s.repo.UpdateSnippet(ctx, snippet); err != nil {
		return nil, fmt.Errorf("updating snippet: %w", err)
	}
	return snippet, nil
}

// DeleteSnippet removes a snippet and its votes. The owner and staff may
// delete; a staff deletion of someone else's snippet is audited as such.
func (s *SnippetService) DeleteSnippet(ctx context.Context, caller model.Identity, id string) error {
	if !caller.Authenticated() {
		return apperror.Unauthorized("sign in required")
	}
	snippet, err := s.repo.GetSnippet(ctx, id)
	if err != nil {
		return err
	}

	access := AuthorizeSnippet(caller, snippet)
	if access < AccessStaff {
		return apperror.Forbidden("you cannot delete this snippet")
	}

	if err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.DeleteSnippet(ctx, id)
	}); err != nil {
		return fmt.Errorf("deleting snippet: %w", err)
	}

	action := model.ActionDeleteSnippet
	if access == AccessStaff {
		action = model.ActionStaffDeleteSnippet
	}
	s.logger.Info("snippet deleted",
		slog.String("id", id),
		slog.String("by", caller.Username),
		slog.String("access", access.String()),
	)
	s.audit.Log(ctx, &caller, action, fmt.Sprintf("%q by %s", snippet.Title, snippet.OwnerName))
	return nil
}

// ToggleVisibility flips a snippet between public and private and returns
// the new state. Owner only.
func (s *SnippetService) ToggleVisibility(ctx context.Context, caller model.Identity, id string) (bool, error) {
	if !caller.Authenticated() {
		return false, apperror.Unauthorized("sign in required")
	}

	var public bool
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		snippet, err := s.repo.GetSnippet(ctx, id)
		if err != nil {
			return err
		}
		if AuthorizeSnippet(caller, snippet) != AccessOwner {
			return apperror.Forbidden("you can only change your own snippets")
		}
		public = !snippet.IsPublic
		return s.repo.SetSnippetVisibility(ctx, id, public)
	})
	if err != nil {
		return false, err
	}
	return public, nil
}

// ViewSnippet returns a snippet with its owner, score and the caller's vote.
// Private snippets are visible to their owner only.
func (s *SnippetService) ViewSnippet(ctx context.Context, caller model.Identity, id string) (*model.Snippet, error) {
	snippet, err := s.repo.GetSnippet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(caller, snippet) {
		return nil, apperror.Forbidden("this snippet is private")
	}

	if caller.Authenticated() {
		v, err := s.repo.GetVote(ctx, caller.UserID, id)
		switch {
		case err == nil:
			snippet.MyVote = v.Value
		case !isNotFound(err):
			return nil, fmt.Errorf("loading vote: %w", err)
		}
	}
	return snippet, nil
}

// ListSnippetsForUser lists a user's snippets, newest first. Private ones
// are included only when the caller is that user.
func (s *SnippetService) ListSnippetsForUser(ctx context.Context, caller model.Identity, username string) ([]model.Snippet, error) {
	owner, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	includePrivate := AuthorizeUser(caller, owner) == AccessOwner

	snippets, err := s.repo.ListSnippetsByOwner(ctx, owner.ID, includePrivate)
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// ListRecentPublic returns the newest public snippets.
func (s *SnippetService) ListRecentPublic(ctx context.Context, limit int) ([]model.Snippet, error) {
	limit, _ = clampPage(limit, 0, DefaultRecentLimit, MaxListLimit)

	snippets, err := s.repo.ListPublicSnippets(ctx, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing recent snippets: %w", err)
	}
	return snippets, nil
}
