// Package channelconfig resolves the settings an adapter runs with for one (property, channel) pair.
package channelconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"channelhub/internal/model"
)

// Provider supplies integration-account defaults for a partner.
type Provider interface {
	Defaults(channel string) (model.ChannelDefaults, bool)
}

// StaticProvider is a fixed table of defaults, used by tests and by FileProvider.
type StaticProvider map[string]model.ChannelDefaults

func (p StaticProvider) Defaults(channel string) (model.ChannelDefaults, bool) {
	d, ok := p[strings.ToLower(channel)]
	return d, ok
}

type fileDoc struct {
	Channels map[string]model.ChannelDefaults `yaml:"channels"`
}

// ParseDefaults decodes a YAML document of the form
//
//	channels:
//	  bookingcom:
//	    base_url: https://...
//	    credentials: {username: ..., password: ...}
//	    sync: {batch_size: 100, timeout: 15s}
func ParseDefaults(data []byte) (StaticProvider, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse channel defaults: %w", err)
	}
	out := StaticProvider{}
	for name, d := range doc.Channels {
		out[strings.ToLower(name)] = d
	}
	return out, nil
}

// FileProvider loads defaults from a YAML file. An empty path yields an empty provider.
func FileProvider(path string) (StaticProvider, error) {
	if strings.TrimSpace(path) == "" {
		return StaticProvider{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channel defaults: %w", err)
	}
	return ParseDefaults(b)
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// MapLookup adapts a map to a LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// EnvProvider reads <CHANNEL>_BASE_URL, _API_KEY, _API_SECRET, _USERNAME, _PASSWORD, _TOKEN, _PARTNER_ID,
// _BATCH_SIZE, _RATE_LIMIT and _TIMEOUT through an explicit lookup function.
type EnvProvider struct {
	Lookup LookupFunc
}

func NewEnvProvider(lookup LookupFunc) EnvProvider { return EnvProvider{Lookup: lookup} }

func (p EnvProvider) Defaults(channel string) (model.ChannelDefaults, bool) {
	if p.Lookup == nil {
		return model.ChannelDefaults{}, false
	}
	prefix := envPrefix(channel)
	found := false
	get := func(suffix string) string {
		v, ok := p.Lookup(prefix + suffix)
		if ok && v != "" {
			found = true
		}
		return v
	}
	d := model.ChannelDefaults{
		BaseURL: get("BASE_URL"),
		Credentials: model.Credentials{
			APIKey:    get("API_KEY"),
			APISecret: get("API_SECRET"),
			Username:  get("USERNAME"),
			Password:  get("PASSWORD"),
			Token:     get("TOKEN"),
			PartnerID: get("PARTNER_ID"),
		},
	}
	if n, err := strconv.Atoi(get("BATCH_SIZE")); err == nil && n > 0 {
		d.Sync.BatchSize = n
	}
	if f, err := strconv.ParseFloat(get("RATE_LIMIT"), 64); err == nil && f > 0 {
		d.Sync.RateLimitPerSecond = f
	}
	if dur, err := time.ParseDuration(get("TIMEOUT")); err == nil && dur > 0 {
		d.Sync.Timeout = dur
	}
	return d, found
}

func envPrefix(channel string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return strings.ToUpper(r.Replace(strings.TrimSpace(channel))) + "_"
}

// ChainProvider overlays providers in order: later entries win field by field.
type ChainProvider []Provider

func (c ChainProvider) Defaults(channel string) (model.ChannelDefaults, bool) {
	var out model.ChannelDefaults
	found := false
	for _, p := range c {
		d, ok := p.Defaults(channel)
		if !ok {
			continue
		}
		found = true
		out = overlayDefaults(out, d)
	}
	return out, found
}

func overlayDefaults(base, over model.ChannelDefaults) model.ChannelDefaults {
	if over.BaseURL != "" {
		base.BaseURL = over.BaseURL
	}
	base.Credentials = base.Credentials.Overlay(over.Credentials)
	base.Sync = base.Sync.Overlay(over.Sync)
	return base
}
