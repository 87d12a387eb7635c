package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel kinds stored in channels.kind.
const (
	ChannelKindVoice   = "voice"
	ChannelKindDisplay = "display"
)

// Category groups channels inside a scope.
type Category struct {
	ID        uuid.UUID `json:"id"`
	ScopeID   uuid.UUID `json:"scope_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is a voice or display channel in a scope.
type Channel struct {
	ID         uuid.UUID  `json:"id"`
	ScopeID    uuid.UUID  `json:"scope_id"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	UserLimit  int        `json:"user_limit"`
	Private    bool       `json:"private"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RoomInfo is the (handle, name) pair returned when listing a category.
type RoomInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// DisplayChannel is a resolved monitor display channel.
type DisplayChannel struct {
	ID         uuid.UUID `json:"id"`
	ScopeID    uuid.UUID `json:"scope_id"`
	CategoryID uuid.UUID `json:"category_id"`
	Label      string    `json:"label"`
}

// VoiceStateEvent reports that a user moved between voice channels.
// From is uuid.Nil when the user was not in a channel; To is uuid.Nil when they left.
// FromRemaining is the occupancy of From after the user left it.
type VoiceStateEvent struct {
	ScopeID       uuid.UUID `json:"scope_id"`
	UserID        uuid.UUID `json:"user_id"`
	From          uuid.UUID `json:"from"`
	To            uuid.UUID `json:"to"`
	FromRemaining int       `json:"from_remaining"`
}
