package channelconfig

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"channelhub/internal/model"
)

// Cache stores resolved configs keyed by (property, channel).
type Cache interface {
	Get(ctx context.Context, propertyID, channel string) (model.ChannelConfig, bool)
	Set(ctx context.Context, cfg model.ChannelConfig, ttl time.Duration)
	Delete(ctx context.Context, propertyID, channel string)
}

func cacheKey(propertyID, channel string) string {
	return propertyID + "/" + strings.ToLower(channel)
}

type memEntry struct {
	cfg     model.ChannelConfig
	expires time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, propertyID, channel string) (model.ChannelConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey(propertyID, channel)
	e, ok := c.entries[k]
	if !ok {
		return model.ChannelConfig{}, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, k)
		return model.ChannelConfig{}, false
	}
	return e.cfg, true
}

func (c *MemoryCache) Set(ctx context.Context, cfg model.ChannelConfig, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(cfg.PropertyID, cfg.Channel)] = memEntry{cfg: cfg, expires: c.now().Add(ttl)}
}

func (c *MemoryCache) Delete(ctx context.Context, propertyID, channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(propertyID, channel))
}

// RedisCache shares resolved configs between processes. Failures degrade to cache misses.
//
// Partner credentials never reach Redis. Each entry carries a version, and the credentials stay in process
// memory under that version; an entry whose version this process does not hold is a miss and gets
// resolved again from the store.
type RedisCache struct {
	rdb    *redis.Client
	prefix string

	mu      sync.Mutex
	secrets map[string]localSecrets
}

type localSecrets struct {
	version string
	creds   model.Credentials
}

type redisEntry struct {
	Version string              `json:"version"`
	Config  model.ChannelConfig `json:"config"`
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: "channelcfg:", secrets: map[string]localSecrets{}}
}

// NewRedisCacheFromURL parses a redis:// URL.
func NewRedisCacheFromURL(url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisCache(redis.NewClient(opt)), nil
}

func (c *RedisCache) key(propertyID, channel string) string {
	return c.prefix + cacheKey(propertyID, channel)
}

// encode is the shared form of cfg: everything but the credentials.
func encode(version string, cfg model.ChannelConfig) ([]byte, error) {
	cfg.Credentials = model.Credentials{}
	return json.Marshal(redisEntry{Version: version, Config: cfg})
}

func (c *RedisCache) Get(ctx context.Context, propertyID, channel string) (model.ChannelConfig, bool) {
	k := c.key(propertyID, channel)
	c.mu.Lock()
	local, ok := c.secrets[k]
	c.mu.Unlock()
	if !ok {
		return model.ChannelConfig{}, false
	}
	raw, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		return model.ChannelConfig{}, false
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil || e.Version != local.version {
		return model.ChannelConfig{}, false
	}
	e.Config.Credentials = local.creds
	return e.Config, true
}

func (c *RedisCache) Set(ctx context.Context, cfg model.ChannelConfig, ttl time.Duration) {
	version := uuid.NewString()
	data, err := encode(version, cfg)
	if err != nil {
		return
	}
	k := c.key(cfg.PropertyID, cfg.Channel)
	if err := c.rdb.Set(ctx, k, data, ttl).Err(); err != nil {
		return
	}
	c.mu.Lock()
	c.secrets[k] = localSecrets{version: version, creds: cfg.Credentials}
	c.mu.Unlock()
}

func (c *RedisCache) Delete(ctx context.Context, propertyID, channel string) {
	k := c.key(propertyID, channel)
	c.mu.Lock()
	delete(c.secrets, k)
	c.mu.Unlock()
	_ = c.rdb.Del(ctx, k).Err()
}
