package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/metrics"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

const (
	MaxUsernameLength = 80
	MaxCountryLength  = 64
	DefaultCountry    = "Unknown"
)

// Registration methods, used as a metrics label.
const (
	methodPassword = "password"
	methodGitHub   = "github"
)

// UserStore is what the account services need from storage.
type UserStore interface {
	repository.Transactor
	repository.UserRepository
}

// AuthService owns registration, login and self-service account changes.
type AuthService struct {
	users     UserStore
	passwords *auth.PasswordService
	audit     *AuditService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService.
//
// DEPENDENCIES:
//   - users: account storage plus the transaction runner, so the first-admin
//     check and the insert share one transaction
//   - passwords: bcrypt hashing, always called outside a transaction
//   - audit: best-effort trail of registrations, logins and settings changes
func NewAuthService(
	users UserStore,
	passwords *auth.PasswordService,
	audit *AuditService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		audit:     audit,
		logger:    logger,
	}
}

// Register creates a password account. The very first account registered
// becomes the admin; everyone after that is a member.
func (s *AuthService) Register(ctx context.Context, username, password, country string) (*model.User, error) {
	username = strings.TrimSpace(username)
	country = strings.TrimSpace(country)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	country, err := normalizeCountry(country)
	if err != nil {
		return nil, err
	}

	// bcrypt is slow; keep it out of the transaction.
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Country:      country,
	}
	if err := s.createAccount(ctx, user, methodPassword); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
	)
	id := user.Identity()
	s.audit.Log(ctx, &id, model.ActionRegister, fmt.Sprintf("registered as %s", user.Role))
	return user, nil
}

// createAccount inserts u, deciding its role from the current user count.
//
// The count and the insert share a transaction, and the partial unique index
// on role='admin' settles the race when two first registrations overlap: the
// loser hits a unique violation and is inserted again as a member.
func (s *AuthService) createAccount(ctx context.Context, u *model.User, method string) error {
	err := s.users.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.users.CountUsers(ctx)
		if err != nil {
			return err
		}
		u.Role = model.RoleMember
		if n == 0 {
			u.Role = model.RoleAdmin
		}
		return s.users.CreateUser(ctx, u)
	})

	if errors.Is(err, repository.ErrUniqueViolation) {
		taken, terr := s.usernameExists(ctx, u.Username)
		switch {
		case terr != nil:
			return terr
		case taken:
			return apperror.UsernameTaken(u.Username)
		case u.Role == model.RoleAdmin:
			s.logger.Warn("lost first-admin race, registering as member",
				slog.String("username", u.Username))
			u.Role = model.RoleMember
			err = s.users.CreateUser(ctx, u)
			if errors.Is(err, repository.ErrUniqueViolation) {
				if taken, _ := s.usernameExists(ctx, u.Username); taken {
					return apperror.UsernameTaken(u.Username)
				}
			}
		}
	}
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	metrics.Registrations.WithLabelValues(string(u.Role), method).Inc()
	return nil
}

// usernameExists reports whether the name is already in use. After a unique
// violation it tells a duplicate username apart from the admin index firing.
func (s *AuthService) usernameExists(ctx context.Context, username string) (bool, error) {
	_, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperror.ErrNotFound):
		return false, nil
	}
	return false, fmt.Errorf("checking username: %w", err)
}

// Authenticate checks a username and password.
//
// Every failure returns the same InvalidCredentials error. Unknown usernames
// still pay for one bcrypt comparison so timing does not reveal which
// usernames exist.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		s.passwords.Dummy(password)
		metrics.Logins.WithLabelValues(methodPassword, "failure").Inc()
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		metrics.Logins.WithLabelValues(methodPassword, "failure").Inc()
		if !errors.Is(err, auth.ErrPasswordInvalid) && !errors.Is(err, auth.ErrPasswordTooLong) {
			s.logger.Error("password verification failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	metrics.Logins.WithLabelValues(methodPassword, "success").Inc()
	id := user.Identity()
	s.audit.Log(ctx, &id, model.ActionLogin, "password login")
	return user, nil
}

// LoginWithGitHub signs in the account linked to ghUser, creating one on
// first login. New accounts are named after the GitHub login, with the
// GitHub id appended when that name is already taken.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	if err == nil {
		metrics.Logins.WithLabelValues(methodGitHub, "success").Inc()
		id := user.Identity()
		s.audit.Log(ctx, &id, model.ActionLogin, "github login")
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up github user: %w", err)
	}

	name := githubUsername(ghUser.Login)
	if err := validateUsername(name); err != nil {
		name = fmt.Sprintf("github-%d", ghUser.ID)
	}
	if taken, err := s.usernameExists(ctx, name); err != nil {
		return nil, err
	} else if taken {
		name = fmt.Sprintf("%s-%d", name, ghUser.ID)
	}

	githubID := ghUser.ID
	user = &model.User{
		Username: name,
		Country:  DefaultCountry,
		GitHubID: &githubID,
	}
	if err := s.createAccount(ctx, user, methodGitHub); err != nil {
		// A concurrent callback for the same GitHub account may have won.
		if existing, lerr := s.users.GetUserByGitHubID(ctx, ghUser.ID); lerr == nil {
			return existing, nil
		}
		return nil, err
	}

	s.logger.Info("github user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.Int64("github_id", githubID),
	)
	metrics.Logins.WithLabelValues(methodGitHub, "success").Inc()
	id := user.Identity()
	s.audit.Log(ctx, &id, model.ActionRegister, fmt.Sprintf("registered via github as %s", user.Role))
	return user, nil
}

// githubUsername trims a GitHub login down to something we accept.
func githubUsername(login string) string {
	login = strings.TrimSpace(login)
	if utf8.RuneCountInString(login) > MaxUsernameLength-21 {
		login = string([]rune(login)[:MaxUsernameLength-21])
	}
	return login
}

// Me returns the caller's own account.
func (s *AuthService) Me(ctx context.Context, caller model.Identity) (*model.User, error) {
	if !caller.Authenticated() {
		return nil, apperror.Unauthorized("sign in required")
	}
	return s.users.GetUserByID(ctx, caller.UserID)
}

// UpdateSettings applies the non-nil fields of settings to the caller's own
// account. Nothing is written, and nothing audited, when no field changes.
//
// Only the changed columns are written. Role is never part of the UPDATE, so
// an admin granting moderator while the user changes their password cannot
// be undone by the password write, and vice versa. The write and the re-read
// of the row share a transaction: either every changed field lands or none.
func (s *AuthService) UpdateSettings(ctx context.Context, caller model.Identity, settings model.UserSettings) (*model.User, error) {
	if !caller.Authenticated() {
		return nil, apperror.Unauthorized("sign in required")
	}
	user, err := s.users.GetUserByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if AuthorizeUser(caller, user) != AccessOwner {
		return nil, apperror.Forbidden("you can only change your own settings")
	}

	var (
		changes repository.UserChanges
		changed []string
	)

	if settings.Username != nil {
		name := strings.TrimSpace(*settings.Username)
		if err := validateUsername(name); err != nil {
			return nil, err
		}
		if name != user.Username {
			changes.Username = &name
			changed = append(changed, "username")
		}
	}
	if settings.Country != nil {
		country, err := normalizeCountry(strings.TrimSpace(*settings.Country))
		if err != nil {
			return nil, err
		}
		if country != user.Country {
			changes.Country = &country
			changed = append(changed, "country")
		}
	}
	if settings.Password != nil {
		if err := validatePassword(*settings.Password); err != nil {
			return nil, err
		}
		// bcrypt stays outside the transaction.
		hash, err := s.passwords.Hash(*settings.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		changes.PasswordHash = &hash
		changed = append(changed, "password")
	}

	if changes.Empty() {
		return user, nil
	}

	err = s.users.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdateUserSettings(ctx, user.ID, changes); err != nil {
			return err
		}
		user, err = s.users.GetUserByID(ctx, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) && changes.Username != nil {
			return nil, apperror.UsernameTaken(*changes.Username)
		}
		return nil, fmt.Errorf("updating settings: %w", err)
	}

	s.audit.Log(ctx, &caller, model.ActionUpdateSettings, "changed "+strings.Join(changed, ", "))
	return user, nil
}

// DeleteAccount removes the caller's own account with all of its snippets
// and votes. The admin account cannot be deleted.
func (s *AuthService) DeleteAccount(ctx context.Context, caller model.Identity) error {
	if !caller.Authenticated() {
		return apperror.Unauthorized("sign in required")
	}
	user, err := s.users.GetUserByID(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if user.Role == model.RoleAdmin {
		return apperror.Forbidden("the admin account cannot be deleted")
	}

	if err := s.users.WithinTx(ctx, func(ctx context.Context) error {
		return s.users.DeleteUser(ctx, user.ID)
	}); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}

	s.logger.Info("account deleted", slog.String("user_id", user.ID))
	s.audit.Log(ctx, &caller, model.ActionDeleteAccount, fmt.Sprintf("deleted own account %s", user.Username))
	return nil
}

func validateUsername(name string) error {
	if name == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(name) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return apperror.ValidationFailed("username", "username must not contain whitespace")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or less", auth.MaxPasswordBytes))
	}
	return nil
}

func normalizeCountry(country string) (string, error) {
	if country == "" {
		return DefaultCountry, nil
	}
	if utf8.RuneCountInString(country) > MaxCountryLength {
		return "", apperror.ValidationFailed("country",
			fmt.Sprintf("country must be %d characters or less", MaxCountryLength))
	}
	return country, nil
}
