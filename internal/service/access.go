package service

import "github.com/sakif/snippet-hub/internal/model"

// Access classifies how a caller relates to a target.
//
// The ordering matters: Owner beats Staff beats Public. Operations ask
// for the weakest level they accept and compare with >=.
type Access int

const (
	AccessDenied Access = iota
	AccessPublic
	AccessStaff
	AccessOwner
)

// String names the level for logs.
func (a Access) String() string {
	switch a {
	case AccessOwner:
		return "owner"
	case AccessStaff:
		return "staff"
	case AccessPublic:
		return "public"
	}
	return "denied"
}

// AuthorizeSnippet classifies the caller's access to a snippet.
//
// A private snippet is Denied to everyone except its owner and staff. Staff
// access is enough to delete a snippet, never to read or edit a private one.
func AuthorizeSnippet(caller model.Identity, s *model.Snippet) Access {
	switch {
	case caller.Authenticated() && caller.UserID == s.OwnerID:
		return AccessOwner
	case caller.IsStaff():
		return AccessStaff
	case s.IsPublic:
		return AccessPublic
	}
	return AccessDenied
}

// AuthorizeUser classifies the caller's access to a user account.
// Profiles are public, so a non-staff stranger still gets AccessPublic.
func AuthorizeUser(caller model.Identity, target *model.User) Access {
	switch {
	case caller.Authenticated() && caller.UserID == target.ID:
		return AccessOwner
	case caller.IsStaff():
		return AccessStaff
	}
	return AccessPublic
}

// canRead reports whether the caller may see the snippet's content.
func canRead(caller model.Identity, s *model.Snippet) bool {
	return s.IsPublic || AuthorizeSnippet(caller, s) == AccessOwner
}
