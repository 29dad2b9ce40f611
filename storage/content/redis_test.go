package content

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/coredata/errors"
)

// fakeRedis serves Get and StrLen from a map.
type fakeRedis struct {
	values  map[string]string
	err     error
	keys    []string
	lengths int
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) StrLen(_ context.Context, key string) *redis.IntCmd {
	f.lengths++
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	return redis.NewIntResult(int64(len(f.values[key])), nil)
}

func TestRedisOpener_ContentLimit(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{"big": "<Document>payload</Document>", "small": "<a/>"}}
	opener := &RedisOpener{client: fake, maxBytes: 8}

	_, err := opener.Open(context.Background(), "redis://big")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrContentTooLarge)
	assert.True(t, errors.IsInvalid(err))
	assert.Empty(t, fake.keys, "an oversized value is never fetched")

	rc, err := opener.Open(context.Background(), "redis://small")
	require.NoError(t, err)
	assert.Equal(t, "<a/>", readAll(t, rc))
	assert.Equal(t, 2, fake.lengths)
}

func TestRedisOpener_Open(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{"coredata:payloads/2024/pacs008.xml": "<Document/>"}}
	opener := &RedisOpener{client: fake, keyPrefix: "coredata:", timeout: time.Second}

	rc, err := opener.Open(context.Background(), "redis://payloads/2024/pacs008.xml")
	require.NoError(t, err)
	assert.Equal(t, "<Document/>", readAll(t, rc))
	assert.Equal(t, []string{"coredata:payloads/2024/pacs008.xml"}, fake.keys)
}

func TestRedisOpener_Errors(t *testing.T) {
	t.Run("missing key is invalid", func(t *testing.T) {
		opener := &RedisOpener{client: &fakeRedis{}}
		_, err := opener.Open(context.Background(), "redis://absent")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrKeyNotFound)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		opener := &RedisOpener{client: &fakeRedis{err: fmt.Errorf("dial tcp: connection refused")}}
		_, err := opener.Open(context.Background(), "redis://key")
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
	})

	t.Run("url without key", func(t *testing.T) {
		opener := &RedisOpener{client: &fakeRedis{}}
		_, err := opener.Open(context.Background(), "redis://")
		assert.Error(t, err)
	})
}

func TestRedisOpener_Locate(t *testing.T) {
	opener := &RedisOpener{}
	tests := map[string]string{
		"redis://k":              "k",
		"redis://a/b/c.json":     "a/b/c.json",
		"redis:///leading/slash": "leading/slash",
		"rediss://secure/doc":    "secure/doc",
	}
	for raw, want := range tests {
		got, err := opener.locate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestResolver_RedisRegistration(t *testing.T) {
	r, err := NewResolver(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, r.Supports("redis"))

	_, err = r.Open(context.Background(), "redis://key")
	assert.Equal(t, errors.SourceUnavailable, errors.KindOf(err))

	cfg := DefaultConfig()
	cfg.Redis.URL = "redis://localhost:6379/0"
	r, err = NewResolver(cfg)
	require.NoError(t, err)
	assert.True(t, r.Supports("redis"))
	assert.True(t, r.Supports("rediss"))
	assert.NoError(t, r.Close(context.Background()))

	cfg.Redis.URL = "mysql://nope"
	_, err = NewResolver(cfg)
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	r, err = NewResolver(DefaultConfig(), WithRedisClient(client))
	require.NoError(t, err)
	assert.True(t, r.Supports("redis"))
	require.NoError(t, r.Close(context.Background()))

	// A shared client stays usable: its commands never fail with ErrClosed.
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.NotErrorIs(t, client.Ping(ctx).Err(), redis.ErrClosed)
}
