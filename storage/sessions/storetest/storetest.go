// Package storetest holds the behavior every session.Store implementation must have.
package storetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/session"
)

// Run runs the session.Store contract against stores built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Run("save and get", func(t *testing.T) {
		ctx := t.Context()
		st := newStore(t)

		s := session.New(1, time.Hour)
		require.NoError(t, st.Save(ctx, s))

		got, err := st.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s, got)

		_, err = st.Get(ctx, "unknown")
		assert.Equal(t, session.ErrNotFound, err)
	})

	t.Run("expired", func(t *testing.T) {
		ctx := t.Context()
		st := newStore(t)

		s := session.New(1, time.Hour)
		s.CreatedAt = s.CreatedAt.Add(-2 * time.Hour)
		s.ExpiresAt = s.ExpiresAt.Add(-2 * time.Hour)
		require.NoError(t, st.Save(ctx, s))

		_, err := st.Get(ctx, s.ID)
		assert.Equal(t, session.ErrNotFound, err)
	})

	t.Run("delete", func(t *testing.T) {
		ctx := t.Context()
		st := newStore(t)

		s1 := session.New(1, time.Hour)
		s2 := session.New(1, time.Hour)
		require.NoError(t, st.Save(ctx, s1))
		require.NoError(t, st.Save(ctx, s2))

		require.NoError(t, st.Delete(ctx, s1.ID))
		_, err := st.Get(ctx, s1.ID)
		assert.Equal(t, session.ErrNotFound, err)
		_, err = st.Get(ctx, s2.ID)
		assert.NoError(t, err)

		assert.NoError(t, st.Delete(ctx, s1.ID), "deleting twice")
	})

	t.Run("delete user sessions", func(t *testing.T) {
		ctx := t.Context()
		st := newStore(t)

		s1 := session.New(1, time.Hour)
		s2 := session.New(1, time.Hour)
		other := session.New(2, time.Hour)
		for _, s := range []session.Session{s1, s2, other} {
			require.NoError(t, st.Save(ctx, s))
		}

		require.NoError(t, st.DeleteUserSessions(ctx, 1))
		for _, id := range []string{s1.ID, s2.ID} {
			_, err := st.Get(ctx, id)
			assert.Equal(t, session.ErrNotFound, err)
		}
		_, err := st.Get(ctx, other.ID)
		assert.NoError(t, err)

		assert.NoError(t, st.DeleteUserSessions(ctx, 3), "user without sessions")
	})
}
