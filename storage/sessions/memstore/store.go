// Package memstore keeps sessions in process memory. Sessions do not survive restarts and
// are not shared between instances.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/shule/core/session"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
	nowFunc  func() time.Time
}

var _ session.Store = (*Store)(nil) // interface compliance check

func New() *Store {
	return &Store{
		sessions: make(map[string]session.Session),
		nowFunc:  time.Now,
	}
}

func (st *Store) Save(_ context.Context, s session.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.purgeExpired()
	st.sessions[s.ID] = s
	return nil
}

func (st *Store) Get(_ context.Context, id string) (session.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok || s.IsExpired(st.nowFunc()) {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (st *Store) Delete(_ context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, id)
	return nil
}

func (st *Store) DeleteUserSessions(_ context.Context, userID int64) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	for id, s := range st.sessions {
		if s.UserID == userID {
			delete(st.sessions, id)
		}
	}
	return nil
}

// purgeExpired must be called with the write lock held.
func (st *Store) purgeExpired() {
	now := st.nowFunc()
	for id, s := range st.sessions {
		if s.IsExpired(now) {
			delete(st.sessions, id)
		}
	}
}
