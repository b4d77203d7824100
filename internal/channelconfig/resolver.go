package channelconfig

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"channelhub/internal/model"
)

// Store is the property-scoped half of resolution. store.Store satisfies it.
type Store interface {
	GetPropertyChannelConfig(ctx context.Context, propertyID, channel string) (*model.PropertyChannelConfig, error)
}

const (
	ReasonNotConfigured = "not configured"
	ReasonDisabled      = "disabled"
	ReasonInvalid       = "invalid"
)

// ConfigurationError means no network call can be attempted for the pair.
type ConfigurationError struct {
	PropertyID string
	Channel    string
	Reason     string
	Detail     string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("channel %s %s for property %s", e.Channel, e.Reason, e.PropertyID)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Resolver merges provider defaults with the property's stored settings. Results are cached per pair until
// the TTL runs out or Invalidate is called.
type Resolver struct {
	store    Store
	provider Provider
	cache    Cache
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewResolver builds a resolver. A nil provider means no global defaults; a nil cache means a MemoryCache;
// ttl <= 0 disables caching.
func NewResolver(store Store, provider Provider, cache Cache, ttl time.Duration, logger *zap.Logger) *Resolver {
	if provider == nil {
		provider = StaticProvider{}
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, provider: provider, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

func (r *Resolver) Resolve(ctx context.Context, propertyID, channel string) (model.ChannelConfig, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if r.ttl > 0 {
		if cfg, ok := r.cache.Get(ctx, propertyID, channel); ok {
			return cfg, nil
		}
	}

	pc, err := r.store.GetPropertyChannelConfig(ctx, propertyID, channel)
	if err != nil {
		return model.ChannelConfig{}, fmt.Errorf("load %s config for property %s: %w", channel, propertyID, err)
	}
	if pc == nil {
		return model.ChannelConfig{}, &ConfigurationError{PropertyID: propertyID, Channel: channel, Reason: ReasonNotConfigured}
	}
	if !pc.Enabled {
		return model.ChannelConfig{}, &ConfigurationError{PropertyID: propertyID, Channel: channel, Reason: ReasonDisabled}
	}

	defaults, _ := r.provider.Defaults(channel)
	cfg := Merge(propertyID, channel, defaults, *pc)
	cfg.ResolvedAt = r.now().UTC()
	if err := model.Validate(cfg); err != nil {
		return model.ChannelConfig{}, &ConfigurationError{PropertyID: propertyID, Channel: channel, Reason: ReasonInvalid, Detail: err.Error()}
	}

	if r.ttl > 0 {
		r.cache.Set(ctx, cfg, r.ttl)
	}
	r.logger.Debug("resolved channel config",
		zap.String("property_id", propertyID),
		zap.String("channel", channel),
		zap.Bool("property_credentials", pc.Credentials != (model.Credentials{})),
	)
	return cfg, nil
}

// Invalidate drops the cached config for a pair. Wire it to the config store's change notifications.
func (r *Resolver) Invalidate(ctx context.Context, propertyID, channel string) {
	r.cache.Delete(ctx, propertyID, strings.ToLower(channel))
}

// Merge overlays property-scoped values on global defaults. Property values win whenever they are set.
func Merge(propertyID, channel string, d model.ChannelDefaults, pc model.PropertyChannelConfig) model.ChannelConfig {
	baseURL := d.BaseURL
	if pc.BaseURL != "" {
		baseURL = pc.BaseURL
	}
	return model.ChannelConfig{
		PropertyID:        propertyID,
		Channel:           channel,
		ChannelPropertyID: pc.ChannelPropertyID,
		BaseURL:           strings.TrimRight(baseURL, "/"),
		Credentials:       d.Credentials.Overlay(pc.Credentials),
		RoomMappings:      maps.Clone(pc.RoomMappings),
		RatePlanMappings:  maps.Clone(pc.RatePlanMappings),
		Sync:              d.Sync.Overlay(pc.Sync),
	}
}
