package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/metrics"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// AuditService records administrative and profile-changing actions.
//
// Log is called after the action's own transaction has committed and is
// best effort: a failed append is logged and counted but never undoes or
// fails the action it describes.
type AuditService struct {
	repo   repository.AuditRepository
	logger *slog.Logger
}

// NewAuditService creates an AuditService writing to repo.
func NewAuditService(repo repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Log appends an entry. A nil actor records a system action.
func (s *AuditService) Log(ctx context.Context, actor *model.Identity, action, detail string) {
	entry := &model.AuditEntry{Action: action, Detail: detail, ActorName: "system"}
	if actor != nil && actor.Authenticated() {
		id := actor.UserID
		entry.ActorID = &id
		entry.ActorName = actor.Username
	}

	// The request may already be cancelled; the entry should still land.
	ctx = context.WithoutCancel(ctx)

	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		metrics.AuditFailures.Inc()
		s.logger.Error("audit append failed",
			slog.String("action", action),
			slog.String("actor", entry.ActorName),
			slog.String("error", err.Error()),
		)
	}
}

// List returns audit entries newest first. Admin only.
func (s *AuditService) List(ctx context.Context, caller model.Identity, limit, offset int) ([]model.AuditEntry, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("only the admin can read the audit log")
	}
	limit, offset = clampPage(limit, offset, DefaultAuditLimit, MaxAuditLimit)

	entries, err := s.repo.ListAudit(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing audit log: %w", err)
	}
	return entries, nil
}

// clampPage applies defaults and bounds to caller-supplied paging.
func clampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
