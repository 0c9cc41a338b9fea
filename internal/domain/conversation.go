package domain

import (
	"fmt"
	"time"
)

// TurnRole identifies who produced a conversation turn
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// Turn is one message within a conversation session
type Turn struct {
	ID        string
	SessionID string
	Role      TurnRole
	Content   string
	CreatedAt time.Time
}

// Session is a durable, ordered conversation thread. Turns are
// append-only; the retention window is enforced at append time.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStats summarizes a session for introspection calls
type SessionStats struct {
	Exists        bool
	TotalMessages int
	TurnCount     int
	LastUpdated   *time.Time
}

// NewTurn creates a new Turn instance
func NewTurn(id, sessionID string, role TurnRole, content string, createdAt time.Time) *Turn {
	return &Turn{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
	}
}

// ValidateTurn validates a Turn instance
func ValidateTurn(t *Turn) error {
	if t == nil {
		return fmt.Errorf("turn cannot be nil")
	}

	if t.SessionID == "" {
		return fmt.Errorf("turn SessionID is required")
	}

	if t.Content == "" {
		return fmt.Errorf("turn Content is required")
	}

	if !isValidTurnRole(t.Role) {
		return fmt.Errorf("turn Role is invalid: %s", t.Role)
	}

	return nil
}

// isValidTurnRole checks if a TurnRole is valid
func isValidTurnRole(r TurnRole) bool {
	switch r {
	case TurnRoleUser, TurnRoleAssistant:
		return true
	}
	return false
}
