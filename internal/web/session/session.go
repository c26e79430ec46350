// Package session tracks signed-in admin users across requests. A session
// lives in a pluggable store keyed by a random ID carried in an HttpOnly
// cookie.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when a session exists but has expired.
var ErrSessionExpired = errors.New("session expired")

// Store is a session storage backend.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Session is the server-side state for one signed-in user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates a session for the given user.
func New(id, userID, email string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
