package models

import "github.com/google/uuid"

// MemberInfo is a member's ticket balance and invite count within a scope.
type MemberInfo struct {
	ScopeID uuid.UUID `json:"scope_id"`
	UserID  uuid.UUID `json:"user_id"`
	Tickets int       `json:"tickets"`
	Invites int       `json:"invites"`
}
