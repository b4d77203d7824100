// Package api exposes the sync engine over HTTP: pushes, booking pulls and lifecycle calls per property and
// channel, the sync log, admin config endpoints and a websocket event stream.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"channelhub/internal/auth"
	"channelhub/internal/events"
	"channelhub/internal/metrics"
	"channelhub/internal/model"
	"channelhub/internal/store"
	"channelhub/internal/syncer"
)

// Syncer is the orchestration the handlers drive; *syncer.Service implements it.
type Syncer interface {
	SyncChannel(ctx context.Context, propertyID, channel string, kind model.SyncKind) (model.SyncResult, error)
	SyncProperty(ctx context.Context, propertyID string, kind model.SyncKind) ([]syncer.ChannelRun, error)
	PullBookings(ctx context.Context, propertyID, channel string, q model.BookingQuery) (syncer.BookingPull, error)
	Status(ctx context.Context, propertyID, channel string) (model.ConnectionStatus, error)
	ConfirmBooking(ctx context.Context, propertyID, channel, bookingID string) error
	CancelBooking(ctx context.Context, propertyID, channel, bookingID, reason string) error
	ModifyBooking(ctx context.Context, propertyID, channel, bookingID string, changes model.BookingChanges) error
}

type Store interface {
	store.ConfigStore
	store.SyncLog
	store.BookingWriter
}

// Invalidator drops cached channel configs; *channelconfig.Resolver implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, propertyID, channel string)
}

type Server struct {
	Sync    Syncer
	Store   Store
	Configs Invalidator
	Broker  events.Broker
	Auth    *auth.Verifier
	Logger  *zap.Logger
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Broker == nil {
		s.Broker = events.Discard{}
	}
	if s.Auth == nil {
		s.Auth = &auth.Verifier{Mode: auth.ModeDev}
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/channels", s.ChannelsHandler)

	// Pushes
	mux.HandleFunc("POST /v1/properties/{propertyID}/sync", s.forProperty(s.SyncPropertyHandler))
	mux.HandleFunc("POST /v1/properties/{propertyID}/channels/{channel}/sync", s.forProperty(s.SyncChannelHandler))
	mux.HandleFunc("GET /v1/properties/{propertyID}/channels/{channel}/status", s.forProperty(s.StatusHandler))
	mux.HandleFunc("GET /v1/properties/{propertyID}/sync-log", s.forProperty(s.SyncLogHandler))

	// Bookings
	mux.HandleFunc("GET /v1/properties/{propertyID}/bookings", s.forProperty(s.StoredBookingsHandler))
	mux.HandleFunc("GET /v1/properties/{propertyID}/channels/{channel}/bookings", s.forProperty(s.PullBookingsHandler))
	mux.HandleFunc("POST /v1/properties/{propertyID}/channels/{channel}/bookings/{bookingID}/confirm", s.forProperty(s.ConfirmBookingHandler))
	mux.HandleFunc("POST /v1/properties/{propertyID}/channels/{channel}/bookings/{bookingID}/cancel", s.forProperty(s.CancelBookingHandler))
	mux.HandleFunc("POST /v1/properties/{propertyID}/channels/{channel}/bookings/{bookingID}/modify", s.forProperty(s.ModifyBookingHandler))

	// Events
	mux.HandleFunc("GET /v1/properties/{propertyID}/events/ws", s.forProperty(s.EventsWSHandler))

	// Admin
	mux.HandleFunc("GET /v1/admin/properties/{propertyID}/channels", s.adminOnly(s.ListConfigsHandler))
	mux.HandleFunc("PUT /v1/admin/properties/{propertyID}/channels/{channel}", s.adminOnly(s.SaveConfigHandler))
	mux.HandleFunc("POST /v1/admin/config/invalidate", s.adminOnly(s.InvalidateConfigHandler))

	// Health
	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.HandleFunc("GET /readyz", s.ReadyHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return s.instrument(mux)
}
