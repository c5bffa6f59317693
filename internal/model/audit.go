package model

import "time"

// Audit action kinds.
const (
	ActionRegister           = "Register"
	ActionLogin              = "Login"
	ActionUpdateSettings     = "Update Settings"
	ActionDeleteAccount      = "Delete Account"
	ActionDeleteUser         = "Delete User"
	ActionGrantModerator     = "Grant Moderator"
	ActionRevokeModerator    = "Revoke Moderator"
	ActionDeleteSnippet      = "Delete Snippet"
	ActionStaffDeleteSnippet = "Staff Delete Snippet"
)

// AuditEntry is an append-only record of an administrative or
// profile-changing action. ActorID is nil for system actions.
//
// ActorName is copied at write time so the entry still reads correctly
// after the actor renames or deletes their account.
type AuditEntry struct {
	ID        string    `json:"id"`
	ActorID   *string   `json:"actorId"`
	ActorName string    `json:"actorName"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}
