// Package registry turns a (channel, property) pair into a ready connector. It is the only package that
// knows every adapter.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"channelhub/internal/channelconfig"
	"channelhub/internal/channels"
	"channelhub/internal/channels/agoda"
	"channelhub/internal/channels/airbnb"
	"channelhub/internal/channels/bookingcom"
	"channelhub/internal/channels/expedia"
	"channelhub/internal/channels/hostelworld"
	"channelhub/internal/channels/hotelbeds"
	"channelhub/internal/channels/traveloka"
	"channelhub/internal/channels/tripadvisor"
	"channelhub/internal/channels/tripcom"
	"channelhub/internal/channels/vrbo"
	"channelhub/internal/model"
)

// UnsupportedChannelError is returned for a channel name no adapter answers to.
type UnsupportedChannelError struct {
	Channel string
}

func (e *UnsupportedChannelError) Error() string {
	return fmt.Sprintf("unsupported channel %q", e.Channel)
}

type adapter struct {
	baseURL string
	auth    func(model.ChannelConfig) (channels.Authenticator, error)
	build   func(channels.Base) channels.Connector
}

var adapters = map[string]adapter{
	agoda.Name:       {agoda.DefaultBaseURL, agoda.NewAuthenticator, func(b channels.Base) channels.Connector { return agoda.New(b) }},
	airbnb.Name:      {airbnb.DefaultBaseURL, airbnb.NewAuthenticator, func(b channels.Base) channels.Connector { return airbnb.New(b) }},
	bookingcom.Name:  {bookingcom.DefaultBaseURL, bookingcom.NewAuthenticator, func(b channels.Base) channels.Connector { return bookingcom.New(b) }},
	expedia.Name:     {expedia.DefaultBaseURL, expedia.NewAuthenticator, func(b channels.Base) channels.Connector { return expedia.New(b) }},
	hostelworld.Name: {hostelworld.DefaultBaseURL, hostelworld.NewAuthenticator, func(b channels.Base) channels.Connector { return hostelworld.New(b) }},
	hotelbeds.Name:   {hotelbeds.DefaultBaseURL, hotelbeds.NewAuthenticator, func(b channels.Base) channels.Connector { return hotelbeds.New(b) }},
	traveloka.Name:   {traveloka.DefaultBaseURL, traveloka.NewAuthenticator, func(b channels.Base) channels.Connector { return traveloka.New(b) }},
	tripadvisor.Name: {tripadvisor.DefaultBaseURL, tripadvisor.NewAuthenticator, func(b channels.Base) channels.Connector { return tripadvisor.New(b) }},
	tripcom.Name:     {tripcom.DefaultBaseURL, tripcom.NewAuthenticator, func(b channels.Base) channels.Connector { return tripcom.New(b) }},
	vrbo.Name:        {vrbo.DefaultBaseURL, vrbo.NewAuthenticator, func(b channels.Base) channels.Connector { return vrbo.New(b) }},
}

// aliases are the alternate spellings operators use for a channel.
var aliases = map[string]string{
	"booking":     bookingcom.Name,
	"booking.com": bookingcom.Name,
	"trip.com":    tripcom.Name,
	"ctrip":       tripcom.Name,
	"homeaway":    vrbo.Name,
}

// Normalize maps a user-supplied channel name onto its canonical form: lowercase, trimmed, aliases
// resolved. The second result is false for unknown channels.
func Normalize(channel string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(channel))
	if a, ok := aliases[name]; ok {
		name = a
	}
	_, ok := adapters[name]
	return name, ok
}

func IsChannelSupported(channel string) bool {
	_, ok := Normalize(channel)
	return ok
}

// SupportedChannels lists canonical channel names in sorted order.
func SupportedChannels() []string {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ConfigResolver is the part of channelconfig.Resolver the registry needs.
type ConfigResolver interface {
	Resolve(ctx context.Context, propertyID, channel string) (model.ChannelConfig, error)
}

type Registry struct {
	resolver ConfigResolver
	data     channels.LocalData
	clients  *channels.ClientFactory
	logger   *zap.Logger
}

func New(resolver ConfigResolver, data channels.LocalData, clients *channels.ClientFactory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clients == nil {
		clients = channels.NewClientFactory(nil, channels.BreakerSettings{}, logger)
	}
	return &Registry{resolver: resolver, data: data, clients: clients, logger: logger}
}

// CreateConnector resolves the pair's config and builds its adapter. Unknown channels fail with
// *UnsupportedChannelError and config problems with *channelconfig.ConfigurationError; nothing is sent to
// the partner.
func (r *Registry) CreateConnector(ctx context.Context, channel, propertyID string) (channels.Connector, error) {
	name, ok := Normalize(channel)
	if !ok {
		return nil, &UnsupportedChannelError{Channel: channel}
	}
	ad := adapters[name]

	cfg, err := r.resolver.Resolve(ctx, propertyID, name)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ad.baseURL
	}
	auth, err := ad.auth(cfg)
	if err != nil {
		return nil, &channelconfig.ConfigurationError{
			PropertyID: propertyID,
			Channel:    name,
			Reason:     channelconfig.ReasonInvalid,
			Detail:     err.Error(),
		}
	}

	logger := r.logger.With(zap.String("channel", name), zap.String("property_id", propertyID))
	return ad.build(channels.Base{
		Config: cfg,
		Client: r.clients.New(cfg, auth),
		Data:   r.data,
		Logger: logger,
	}), nil
}

// IsConfigError reports whether err means the pair cannot be used until its configuration changes.
func IsConfigError(err error) bool {
	var ce *channelconfig.ConfigurationError
	var ue *UnsupportedChannelError
	return errors.As(err, &ce) || errors.As(err, &ue)
}
