package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is a bearer credential for the MCP endpoint. The secret is
// only ever returned at issue time; TokenHash never leaves the server.
type AccessToken struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Name        string     `json:"name"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsValid reports whether the token may authenticate at time now.
func (t *AccessToken) IsValid(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}
