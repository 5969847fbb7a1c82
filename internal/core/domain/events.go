package domain

import "time"

// UserCreatedEvent represents the payload for account.user.created messages.
type UserCreatedEvent struct {
	EventID   string
	UserID    string
	Name      string
	Email     string
	Admin     bool
	CreatedAt time.Time
	Metadata  map[string]any
}

// PasswordChangedEvent represents the payload for account.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	Metadata  map[string]any
}

// PasswordResetRequestedEvent represents the payload for account.user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	UserID            string
	RequestedAt       time.Time
	MaskedDestination string
	ExpiresAt         time.Time
	Metadata          map[string]any
}
