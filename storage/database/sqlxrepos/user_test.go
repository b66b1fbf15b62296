package sqlxrepos_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database/sqlxrepos"
	"github.com/trezcool/shule/tests"
)

func TestUserRepository(t *testing.T) {
	ctx := t.Context()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)

	jane := testutil.CreateUser(t, repo, "Jane Doe", "jane@school.test", "Gr@deBook42", true)
	john := testutil.CreateUser(t, repo, "John Doe", "john@school.test", "Gr@deBook42", false)
	assert.NotEqual(t, jane.ID, john.ID)

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetUserByID(ctx, jane.ID)
		require.NoError(t, err)
		assert.Equal(t, jane, got)
		assert.NoError(t, got.CheckPassword("Gr@deBook42"))

		_, err = repo.GetUserByID(ctx, 999)
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := repo.GetUserByEmail(ctx, "john@school.test")
		require.NoError(t, err)
		assert.Equal(t, john, got)
		assert.False(t, got.IsActive)

		_, err = repo.GetUserByEmail(ctx, "")
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUserByEmail(ctx, "nobody@school.test")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("email uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "jane@school.test"))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "jane@school.test", jane))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "new@school.test"))
	})

	t.Run("update", func(t *testing.T) {
		usr := jane
		usr.Name = "Jane D."
		usr.LastLogin = null.TimeFrom(time.Now().UTC().Truncate(time.Microsecond))
		_, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)

		got, err := repo.GetUserByID(ctx, jane.ID)
		require.NoError(t, err)
		assert.Equal(t, usr, got)

		_, err = repo.UpdateUser(ctx, user.User{ID: 999})
		assert.Equal(t, user.ErrNotFound, err)
	})
}
