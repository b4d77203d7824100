package channelconfig

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelhub/internal/model"
)

func cachedConfig() model.ChannelConfig {
	return model.ChannelConfig{
		PropertyID:        "prop-1",
		Channel:           "agoda",
		ChannelPropertyID: "A-42",
		BaseURL:           "https://partner.test",
		Credentials:       model.Credentials{APIKey: "key-123", APISecret: "secret-456", Password: "s3cret", Token: "tok-789"},
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, cachedConfig(), time.Minute)
	got, ok := c.Get(ctx, "prop-1", "Agoda")
	require.True(t, ok)
	assert.Equal(t, "key-123", got.Credentials.APIKey)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "prop-1", "agoda")
	assert.False(t, ok)
}

func TestRedisEntryCarriesNoSecrets(t *testing.T) {
	data, err := encode("v1", cachedConfig())
	require.NoError(t, err)
	for _, secret := range []string{"key-123", "secret-456", "s3cret", "tok-789"} {
		assert.NotContains(t, string(data), secret)
	}
	assert.Contains(t, string(data), "A-42")
	assert.Contains(t, string(data), `"version":"v1"`)
}

func TestRedisCacheDegradesToMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRedisCache(rdb)
	ctx := context.Background()

	c.Set(ctx, cachedConfig(), time.Minute)
	_, ok := c.Get(ctx, "prop-1", "agoda")
	assert.False(t, ok)
	assert.Empty(t, c.secrets, "credentials are only kept for entries Redis accepted")
	c.Delete(ctx, "prop-1", "agoda")
}
