package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const userColumns = "id, name, email, password_hash, is_active, created_at, updated_at, last_login"

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

// trapNoRowsErr maps sql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := "SELECT COUNT(*) FROM users WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]int64, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		var err error
		if q, args, err = sqlx.In(q+" AND id NOT IN (?)", email, ids); err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var cnt int
	if err := sqlx.GetContext(ctx, repo.exec, &cnt, repo.exec.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if cnt > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	ex := repo.getExec(exec)
	q := ex.Rebind(`
		INSERT INTO users (name, email, password_hash, is_active, created_at, updated_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := sqlx.GetContext(
		ctx, ex, &usr.ID, q,
		usr.Name, usr.Email, usr.PasswordHash, usr.IsActive, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), utcNullTime(usr),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) getUser(ctx context.Context, ex core.DBExecutor, where string, arg interface{}) (user.User, error) {
	var usr user.User
	q := ex.Rebind("SELECT " + userColumns + " FROM users WHERE " + where)
	if err := sqlx.GetContext(ctx, ex, &usr, q, arg); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "selecting user")
	}
	usr.CreatedAt = usr.CreatedAt.UTC()
	usr.UpdatedAt = usr.UpdatedAt.UTC()
	if usr.LastLogin.Valid {
		usr.LastLogin.Time = usr.LastLogin.Time.UTC()
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int64, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, repo.getExec(exec), "id = ?", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, repo.getExec(exec), "email = ?", email)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	ex := repo.getExec(exec)
	q := ex.Rebind(`
		UPDATE users
		SET name = ?, email = ?, password_hash = ?, is_active = ?, updated_at = ?, last_login = ?
		WHERE id = ?`)
	res, err := ex.ExecContext(
		ctx, q,
		usr.Name, usr.Email, usr.PasswordHash, usr.IsActive, usr.UpdatedAt.UTC(), utcNullTime(usr), usr.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func utcNullTime(usr user.User) interface{} {
	if !usr.LastLogin.Valid {
		return nil
	}
	return usr.LastLogin.Time.UTC()
}
