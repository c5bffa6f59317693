// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is a user's permission level. Exactly one account holds RoleAdmin:
// the first one ever registered. It is stored explicitly rather than derived
// from the account's id.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// IsStaff reports whether the role may moderate other users' content.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleModerator
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// User represents a registered account.
//
// PasswordHash is a bcrypt digest and is never serialised. An empty hash
// means the account was created through GitHub login and cannot sign in
// with a password until one is set in the settings.
//
// WHY GitHubID *int64?
// Most accounts are never linked to GitHub. A nil pointer scans from and
// writes to a SQL NULL, which keeps the UNIQUE index on github_id from
// treating every unlinked account as a duplicate.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Country      string    `json:"country"`
	Role         Role      `json:"role"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity returns the request-scoped identity for u.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// Identity is the authenticated caller of an operation. It is resolved once
// per request by the session middleware and passed explicitly into every
// service call. The zero value is an anonymous caller.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// IsStaff reports whether the caller is an admin or moderator.
func (i Identity) IsStaff() bool {
	return i.Authenticated() && i.Role.IsStaff()
}

// IsAdmin reports whether the caller is the admin account.
func (i Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == RoleAdmin
}

// UserSettings holds the optional fields of a settings update. Nil means
// "leave unchanged".
type UserSettings struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Country  *string `json:"country,omitempty"`
}
