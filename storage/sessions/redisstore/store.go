// Package redisstore keeps sessions in Redis so that they are shared between API instances.
//
// Keys:
//   - session:{id}            Hash: user_id, created_at, expires_at (unix seconds); expires with the session
//   - user:{user_id}:sessions Set: the user's session IDs
package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/session"
)

const (
	sessionPrefix      = "session:"
	userPrefix         = "user:"
	userSessionsSuffix = ":sessions"
)

type Store struct {
	client redis.UniversalClient
}

var _ session.Store = (*Store)(nil) // interface compliance check

func New(client redis.UniversalClient) *Store {
	vala.BeginValidation().Validate(
		vala.IsNotNil(client, "client"),
	).CheckAndPanic()

	return &Store{client: client}
}

// NewClient returns a redis client for the configured server, checking that it is reachable.
func NewClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func sessionKey(id string) string {
	return sessionPrefix + id
}

func userSessionsKey(userID int64) string {
	return userPrefix + strconv.FormatInt(userID, 10) + userSessionsSuffix
}

func encode(s session.Session) map[string]interface{} {
	return map[string]interface{}{
		"user_id":    s.UserID,
		"created_at": s.CreatedAt.Unix(),
		"expires_at": s.ExpiresAt.Unix(),
	}
}

func decode(id string, data map[string]string) (session.Session, error) {
	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "decoding user_id")
	}
	createdAt, err := strconv.ParseInt(data["created_at"], 10, 64)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "decoding created_at")
	}
	expiresAt, err := strconv.ParseInt(data["expires_at"], 10, 64)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "decoding expires_at")
	}
	return session.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
	}, nil
}

func (st *Store) Save(ctx context.Context, s session.Session) error {
	key := sessionKey(s.ID)
	usrKey := userSessionsKey(s.UserID)

	_, err := st.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encode(s))
		pipe.ExpireAt(ctx, key, s.ExpiresAt)
		pipe.SAdd(ctx, usrKey, s.ID)
		// the index lives as long as the user's latest session
		pipe.ExpireAt(ctx, usrKey, s.ExpiresAt)
		return nil
	})
	return errors.Wrap(err, "saving session")
}

func (st *Store) Get(ctx context.Context, id string) (session.Session, error) {
	data, err := st.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}
	if len(data) == 0 {
		return session.Session{}, session.ErrNotFound
	}

	s, err := decode(id, data)
	if err != nil {
		return session.Session{}, err
	}
	if s.IsExpired(time.Now()) {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (st *Store) Delete(ctx context.Context, id string) error {
	key := sessionKey(id)
	userID, err := st.client.HGet(ctx, key, "user_id").Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return errors.Wrap(err, "getting session")
	}

	_, err = st.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, userSessionsKey(userID), id)
		return nil
	})
	return errors.Wrap(err, "deleting session")
}

func (st *Store) DeleteUserSessions(ctx context.Context, userID int64) error {
	usrKey := userSessionsKey(userID)
	ids, err := st.client.SMembers(ctx, usrKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "listing user sessions")
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, usrKey)
	return errors.Wrap(st.client.Del(ctx, keys...).Err(), "deleting user sessions")
}
