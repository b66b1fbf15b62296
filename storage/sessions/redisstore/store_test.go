package redisstore

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/storage/sessions/storetest"
)

// TestStore needs a disposable redis server: TEST_REDIS_ADDRESS=localhost:6379
func TestStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set")
	}

	storetest.Run(t, func(t *testing.T) session.Store {
		client, err := NewClient(t.Context(), core.RedisConfig{Address: addr, DB: 15})
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = client.FlushDB(t.Context()).Err()
			_ = client.Close()
		})
		require.NoError(t, client.FlushDB(t.Context()).Err())
		return New(client)
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
	assert.Equal(t, "user:42:sessions", userSessionsKey(42))
}

func TestEncodeDecode(t *testing.T) {
	s := session.New(42, time.Hour)

	// redis returns hash values as strings
	data := make(map[string]string)
	for k, v := range encode(s) {
		data[k] = fmt.Sprint(v)
	}

	got, err := decode(s.ID, data)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = decode(s.ID, map[string]string{"user_id": "lol"})
	assert.Error(t, err)
}
