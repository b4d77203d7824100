package model

import (
	"errors"
	"maps"
	"slices"
	"time"
)

// ErrUnmappedRoom is returned when a config maps room types but not the one being pushed.
var ErrUnmappedRoom = errors.New("room type has no channel mapping")

// ErrUnmappedRatePlan is the rate-plan counterpart of ErrUnmappedRoom.
var ErrUnmappedRatePlan = errors.New("rate plan has no channel mapping")

type Credentials struct {
	APIKey    string `json:"apiKey,omitempty" yaml:"api_key"`
	APISecret string `json:"apiSecret,omitempty" yaml:"api_secret"`
	Username  string `json:"username,omitempty" yaml:"username"`
	Password  string `json:"password,omitempty" yaml:"password"`
	Token     string `json:"token,omitempty" yaml:"token"`
	PartnerID string `json:"partnerId,omitempty" yaml:"partner_id"`
}

// Overlay returns c with every non-empty field of o applied on top.
func (c Credentials) Overlay(o Credentials) Credentials {
	pick := func(base, over string) string {
		if over != "" {
			return over
		}
		return base
	}
	return Credentials{
		APIKey:    pick(c.APIKey, o.APIKey),
		APISecret: pick(c.APISecret, o.APISecret),
		Username:  pick(c.Username, o.Username),
		Password:  pick(c.Password, o.Password),
		Token:     pick(c.Token, o.Token),
		PartnerID: pick(c.PartnerID, o.PartnerID),
	}
}

type SyncSettings struct {
	IntervalMinutes    int           `json:"intervalMinutes,omitempty" yaml:"interval_minutes"`
	BatchSize          int           `json:"batchSize,omitempty" yaml:"batch_size"`
	Concurrency        int           `json:"concurrency,omitempty" yaml:"concurrency"`
	MaxRetries         int           `json:"maxRetries,omitempty" yaml:"max_retries"`
	Timeout            time.Duration `json:"timeout,omitempty" yaml:"timeout"`
	RateLimitPerSecond float64       `json:"rateLimitPerSecond,omitempty" yaml:"rate_limit_per_second"`
	PushRestrictions   bool          `json:"pushRestrictions,omitempty" yaml:"push_restrictions"`
}

// Overlay applies every non-zero field of o on top of s.
func (s SyncSettings) Overlay(o SyncSettings) SyncSettings {
	if o.IntervalMinutes != 0 {
		s.IntervalMinutes = o.IntervalMinutes
	}
	if o.BatchSize != 0 {
		s.BatchSize = o.BatchSize
	}
	if o.Concurrency != 0 {
		s.Concurrency = o.Concurrency
	}
	if o.MaxRetries != 0 {
		s.MaxRetries = o.MaxRetries
	}
	if o.Timeout != 0 {
		s.Timeout = o.Timeout
	}
	if o.RateLimitPerSecond != 0 {
		s.RateLimitPerSecond = o.RateLimitPerSecond
	}
	if o.PushRestrictions {
		s.PushRestrictions = true
	}
	return s
}

// ChannelDefaults are the integration-account level settings a partner issues once per integrator.
type ChannelDefaults struct {
	BaseURL     string       `json:"baseUrl,omitempty" yaml:"base_url"`
	Credentials Credentials  `json:"credentials" yaml:"credentials"`
	Sync        SyncSettings `json:"sync" yaml:"sync"`
}

// PropertyChannelConfig is the property-scoped row kept by the configuration store.
type PropertyChannelConfig struct {
	PropertyID        string            `json:"propertyId"`
	Channel           string            `json:"channel"`
	Enabled           bool              `json:"enabled"`
	ChannelPropertyID string            `json:"channelPropertyId"`
	BaseURL           string            `json:"baseUrl,omitempty"`
	Credentials       Credentials       `json:"credentials"`
	RoomMappings      map[string]string `json:"roomMappings,omitempty"`
	RatePlanMappings  map[string]string `json:"ratePlanMappings,omitempty"`
	Sync              SyncSettings      `json:"sync"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// ChannelConfig is the resolved, immutable view an adapter works from.
type ChannelConfig struct {
	PropertyID        string            `json:"propertyId" validate:"required"`
	Channel           string            `json:"channel" validate:"required"`
	ChannelPropertyID string            `json:"channelPropertyId" validate:"required"`
	BaseURL           string            `json:"baseUrl" validate:"omitempty,url"`
	Credentials       Credentials       `json:"credentials"`
	RoomMappings      map[string]string `json:"roomMappings,omitempty"`
	RatePlanMappings  map[string]string `json:"ratePlanMappings,omitempty"`
	Sync              SyncSettings      `json:"sync"`
	ResolvedAt        time.Time         `json:"resolvedAt"`
}

// ChannelRoomID maps a local room type to the partner's id. With no mappings configured the local id is used.
func (c ChannelConfig) ChannelRoomID(local string) (string, error) {
	return lookup(c.RoomMappings, local, ErrUnmappedRoom)
}

// ChannelRatePlanID maps a local rate plan. An empty local plan stays empty.
func (c ChannelConfig) ChannelRatePlanID(local string) (string, error) {
	if local == "" {
		return "", nil
	}
	return lookup(c.RatePlanMappings, local, ErrUnmappedRatePlan)
}

// LocalRoomID is the reverse of ChannelRoomID; unknown partner ids come back unchanged. When several local
// room types share a partner id the lowest local id wins.
func (c ChannelConfig) LocalRoomID(channelRoomID string) string {
	for _, local := range slices.Sorted(maps.Keys(c.RoomMappings)) {
		if c.RoomMappings[local] == channelRoomID {
			return local
		}
	}
	return channelRoomID
}

func lookup(m map[string]string, key string, missing error) (string, error) {
	if len(m) == 0 {
		return key, nil
	}
	if v, ok := m[key]; ok && v != "" {
		return v, nil
	}
	return "", missing
}
