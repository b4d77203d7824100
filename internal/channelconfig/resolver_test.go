package channelconfig

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"channelhub/internal/model"
	"channelhub/internal/store"
)

type countingStore struct {
	*store.Memory
	reads atomic.Int32
}

func (c *countingStore) GetPropertyChannelConfig(ctx context.Context, propertyID, channel string) (*model.PropertyChannelConfig, error) {
	c.reads.Add(1)
	return c.Memory.GetPropertyChannelConfig(ctx, propertyID, channel)
}

func newStore(t *testing.T, cfgs ...model.PropertyChannelConfig) *countingStore {
	t.Helper()
	s := &countingStore{Memory: store.NewMemory()}
	for _, c := range cfgs {
		require.NoError(t, s.SavePropertyChannelConfig(context.Background(), c))
	}
	return s
}

func TestResolvePropertyOverridesWin(t *testing.T) {
	s := newStore(t, model.PropertyChannelConfig{
		PropertyID: "p1", Channel: "hotelbeds", Enabled: true, ChannelPropertyID: "HB-9",
		Credentials: model.Credentials{APIKey: "property-key"},
		Sync:        model.SyncSettings{BatchSize: 10},
	})
	provider := StaticProvider{"hotelbeds": {
		BaseURL:     "https://api.example.test/",
		Credentials: model.Credentials{APIKey: "global-key", APISecret: "global-secret"},
		Sync:        model.SyncSettings{BatchSize: 50, Timeout: 5 * time.Second},
	}}
	r := NewResolver(s, provider, nil, time.Minute, zap.NewNop())

	cfg, err := r.Resolve(context.Background(), "p1", "HotelBeds")
	require.NoError(t, err)
	assert.Equal(t, "hotelbeds", cfg.Channel)
	assert.Equal(t, "HB-9", cfg.ChannelPropertyID)
	assert.Equal(t, "https://api.example.test", cfg.BaseURL)
	assert.Equal(t, "property-key", cfg.Credentials.APIKey)
	assert.Equal(t, "global-secret", cfg.Credentials.APISecret)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Sync.Timeout)
}

func TestResolveConfigurationErrors(t *testing.T) {
	s := newStore(t,
		model.PropertyChannelConfig{PropertyID: "p1", Channel: "agoda", Enabled: false, ChannelPropertyID: "A"},
		model.PropertyChannelConfig{PropertyID: "p1", Channel: "vrbo", Enabled: true},
	)
	r := NewResolver(s, nil, nil, time.Minute, nil)

	cases := map[string]string{"expedia": ReasonNotConfigured, "agoda": ReasonDisabled, "vrbo": ReasonInvalid}
	for channel, reason := range cases {
		_, err := r.Resolve(context.Background(), "p1", channel)
		var cerr *ConfigurationError
		require.True(t, errors.As(err, &cerr), channel)
		assert.Equal(t, reason, cerr.Reason, channel)
		assert.Equal(t, channel, cerr.Channel)
	}
}

func TestResolveCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, model.PropertyChannelConfig{PropertyID: "p1", Channel: "agoda", Enabled: true, ChannelPropertyID: "A1"})
	r := NewResolver(s, nil, nil, time.Hour, nil)
	s.OnConfigChange(func(p, c string) { r.Invalidate(ctx, p, c) })

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, "p1", "agoda")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), s.reads.Load())

	require.NoError(t, s.SavePropertyChannelConfig(ctx, model.PropertyChannelConfig{PropertyID: "p1", Channel: "agoda", Enabled: true, ChannelPropertyID: "A2"}))
	cfg, err := r.Resolve(ctx, "p1", "agoda")
	require.NoError(t, err)
	assert.Equal(t, "A2", cfg.ChannelPropertyID)
	assert.Equal(t, int32(2), s.reads.Load())
}

func TestResolveWithoutTTLAlwaysReadsStore(t *testing.T) {
	s := newStore(t, model.PropertyChannelConfig{PropertyID: "p1", Channel: "agoda", Enabled: true, ChannelPropertyID: "A1"})
	r := NewResolver(s, nil, nil, 0, nil)
	_, _ = r.Resolve(context.Background(), "p1", "agoda")
	_, _ = r.Resolve(context.Background(), "p1", "agoda")
	assert.Equal(t, int32(2), s.reads.Load())
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set(context.Background(), model.ChannelConfig{PropertyID: "p1", Channel: "agoda"}, time.Minute)

	_, ok := c.Get(context.Background(), "p1", "AGODA")
	assert.True(t, ok)
	now = now.Add(2 * time.Minute)
	_, ok = c.Get(context.Background(), "p1", "agoda")
	assert.False(t, ok)
}
