package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// AdminService holds the user-management operations only the admin may run.
type AdminService struct {
	users  UserStore
	audit  *AuditService
	logger *slog.Logger
}

// NewAdminService creates an AdminService. Every method checks that the
// caller is the admin before touching storage.
func NewAdminService(users UserStore, audit *AuditService, logger *slog.Logger) *AdminService {
	return &AdminService{users: users, audit: audit, logger: logger}
}

func requireAdmin(caller model.Identity) error {
	if !caller.Authenticated() {
		return apperror.Unauthorized("sign in required")
	}
	if !caller.IsAdmin() {
		return apperror.Forbidden("admin access required")
	}
	return nil
}

// ListUsers pages through every account, oldest first.
func (s *AdminService) ListUsers(ctx context.Context, caller model.Identity, limit, offset int) ([]model.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset, DefaultListLimit, MaxListLimit)

	users, err := s.users.ListUsers(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// SetModerator grants or revokes the moderator role. Setting the role a user
// already has is a no-op and is not audited.
//
// The role column is written on its own, so a settings change the user makes
// at the same moment is kept.
func (s *AdminService) SetModerator(ctx context.Context, caller model.Identity, userID string, grant bool) (*model.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	want := model.RoleMember
	action := model.ActionRevokeModerator
	if grant {
		want = model.RoleModerator
		action = model.ActionGrantModerator
	}

	var (
		user    *model.User
		changed bool
	)
	err := s.users.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role == model.RoleAdmin {
			return apperror.Forbidden("the admin's role cannot be changed")
		}
		if user.Role == want {
			return nil
		}
		if err := s.users.UpdateUserRole(ctx, user.ID, want); err != nil {
			return err
		}
		changed = true
		user, err = s.users.GetUserByID(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("updating role: %w", err)
	}
	if !changed {
		return user, nil
	}

	s.logger.Info("role changed",
		slog.String("user_id", user.ID),
		slog.String("role", string(want)),
	)
	s.audit.Log(ctx, &caller, action, user.Username)
	return user, nil
}

// ToggleModerator flips a user between member and moderator.
func (s *AdminService) ToggleModerator(ctx context.Context, caller model.Identity, userID string) (*model.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.SetModerator(ctx, caller, userID, user.Role != model.RoleModerator)
}

// DeleteUser removes another user's account along with their snippets and
// votes. The admin account itself cannot be deleted.
func (s *AdminService) DeleteUser(ctx context.Context, caller model.Identity, userID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == model.RoleAdmin {
		return apperror.Forbidden("the admin account cannot be deleted")
	}

	if err := s.users.WithinTx(ctx, func(ctx context.Context) error {
		return s.users.DeleteUser(ctx, user.ID)
	}); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	s.logger.Info("user deleted by admin", slog.String("user_id", user.ID))
	s.audit.Log(ctx, &caller, model.ActionDeleteUser, user.Username)
	return nil
}
