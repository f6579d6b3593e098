package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

type cmdableFake struct {
	redis.Cmdable
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newCmdableFake() *cmdableFake {
	return &cmdableFake{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *cmdableFake) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *cmdableFake) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestCacheRoundTripUsesPrefixAndTTL(t *testing.T) {
	fake := newCmdableFake()
	cache := New(fake, time.Hour)

	loc := domain.Location{IP: "8.8.8.8", Country: "United States", City: "Mountain View"}
	require.NoError(t, cache.Set(context.Background(), "8.8.8.8", loc))
	assert.Equal(t, time.Hour, fake.ttls["complaints:geo:8.8.8.8"])

	got, ok, err := cache.Get(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, loc, *got)
}

func TestCacheMissIsNotAnError(t *testing.T) {
	cache := New(newCmdableFake(), 0)
	got, ok, err := cache.Get(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, DefaultTTL, cache.ttl)
}

func TestCacheSurfacesBackendErrors(t *testing.T) {
	fake := newCmdableFake()
	fake.getErr = errors.New("connection refused")
	_, ok, err := New(fake, 0).Get(context.Background(), "1.1.1.1")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestCacheRejectsCorruptEntries(t *testing.T) {
	fake := newCmdableFake()
	fake.data["complaints:geo:1.1.1.1"] = "{not json"
	_, _, err := New(fake, 0).Get(context.Background(), "1.1.1.1")
	require.Error(t, err)
}
