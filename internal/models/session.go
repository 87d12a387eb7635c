package models

import (
	"time"

	"github.com/google/uuid"
)

// Session binds a passcode to a private room and the identities granted access to it.
// Participants[0] is always the creator.
type Session struct {
	ScopeID      uuid.UUID   `json:"scope_id"`
	Code         string      `json:"code"`
	RoomID       uuid.UUID   `json:"room_id"`
	CategoryID   uuid.UUID   `json:"category_id"`
	CreatorID    uuid.UUID   `json:"creator_id"`
	Participants []uuid.UUID `json:"participants"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Clone returns a deep copy so callers never share the participant slice.
func (s Session) Clone() Session {
	out := s
	out.Participants = append([]uuid.UUID(nil), s.Participants...)
	return out
}

// HasParticipant reports whether id was already granted access.
func (s Session) HasParticipant(id uuid.UUID) bool {
	for _, p := range s.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// MonitorBinding ties a scope to the display channel that shows the private room count.
type MonitorBinding struct {
	ScopeID   uuid.UUID `json:"scope_id"`
	DisplayID uuid.UUID `json:"display_id"`
	BoundAt   time.Time `json:"bound_at"`
}
