// Package session defines the server-side login sessions referenced by the session cookie.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound = errors.New("session not found")
)

type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	ExpiresAt time.Time `json:"expires_at"` // UTC
}

// New returns a Session for the given user, valid for ttl.
func New(userID int64, ttl time.Duration) Session {
	now := time.Now().UTC().Truncate(time.Second)
	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TTL returns the time left before s expires.
func (s Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Store persists sessions until they expire or are deleted.
type Store interface {
	// Save stores s until s.ExpiresAt.
	Save(ctx context.Context, s Session) error
	// Get returns ErrNotFound if there is no live session with the given id.
	Get(ctx context.Context, id string) (Session, error)
	// Delete is a no-op if there is no session with the given id.
	Delete(ctx context.Context, id string) error
	// DeleteUserSessions deletes all the sessions of a user.
	DeleteUserSessions(ctx context.Context, userID int64) error
}
