package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"channelhub/internal/auth"
	"channelhub/internal/buildinfo"
	"channelhub/internal/model"
	"channelhub/internal/registry"
)

func principalFrom(ctx context.Context) auth.Principal {
	p, _ := ctx.Value(ctxKeyPrincipal{}).(auth.Principal)
	return p
}

// ChannelsHandler handles GET /v1/channels
func (s *Server) ChannelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"channels": registry.SupportedChannels()})
}

// parseKind reads ?kind=, writing a 400 when it is unknown.
func parseKind(w http.ResponseWriter, r *http.Request) (model.SyncKind, bool) {
	kind, ok := model.ParseSyncKind(r.URL.Query().Get("kind"))
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid kind", "kind must be inventory, rates, availability or restrictions", r.URL.Path)
	}
	return kind, ok
}

// SyncChannelHandler handles POST /v1/properties/{propertyID}/channels/{channel}/sync?kind=
func (s *Server) SyncChannelHandler(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	propertyID, channel := r.PathValue("propertyID"), r.PathValue("channel")
	res, err := s.Sync.SyncChannel(r.Context(), propertyID, channel, kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "kind": kind, "result": res})
}

// SyncPropertyHandler handles POST /v1/properties/{propertyID}/sync?kind=
func (s *Server) SyncPropertyHandler(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	runs, err := s.Sync.SyncProperty(r.Context(), r.PathValue("propertyID"), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "channels": runs})
}

// StatusHandler handles GET /v1/properties/{propertyID}/channels/{channel}/status
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.Sync.Status(r.Context(), r.PathValue("propertyID"), r.PathValue("channel"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SyncLogHandler handles GET /v1/properties/{propertyID}/sync-log?channel=&limit=
func (s *Server) SyncLogHandler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}
	channel := r.URL.Query().Get("channel")
	if channel != "" {
		channel, _ = registry.Normalize(channel)
	}
	items, err := s.Store.ListSyncOutcomes(r.Context(), r.PathValue("propertyID"), channel, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// StoredBookingsHandler handles GET /v1/properties/{propertyID}/bookings?channel=
func (s *Server) StoredBookingsHandler(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel != "" {
		channel, _ = registry.Normalize(channel)
	}
	items, err := s.Store.ListBookings(r.Context(), r.PathValue("propertyID"), channel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// PullBookingsHandler handles GET /v1/properties/{propertyID}/channels/{channel}/bookings?from=&to=
func (s *Server) PullBookingsHandler(w http.ResponseWriter, r *http.Request) {
	q := model.BookingQuery{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	pull, err := s.Sync.PullBookings(r.Context(), r.PathValue("propertyID"), r.PathValue("channel"), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pull)
}

// ConfirmBookingHandler handles POST .../bookings/{bookingID}/confirm
func (s *Server) ConfirmBookingHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("bookingID")
	if err := s.Sync.ConfirmBooking(r.Context(), r.PathValue("propertyID"), r.PathValue("channel"), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bookingId": id, "action": "confirm"})
}

// CancelBookingHandler handles POST .../bookings/{bookingID}/cancel with an optional {"reason"}
func (s *Server) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &body) {
		return
	}
	id := r.PathValue("bookingID")
	if err := s.Sync.CancelBooking(r.Context(), r.PathValue("propertyID"), r.PathValue("channel"), id, body.Reason); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bookingId": id, "action": "cancel"})
}

// ModifyBookingHandler handles POST .../bookings/{bookingID}/modify with a BookingChanges body
func (s *Server) ModifyBookingHandler(w http.ResponseWriter, r *http.Request) {
	var changes model.BookingChanges
	if !decodeJSON(w, r, &changes) {
		return
	}
	if err := model.Validate(changes); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid changes", err.Error(), r.URL.Path)
		return
	}
	id := r.PathValue("bookingID")
	if err := s.Sync.ModifyBooking(r.Context(), r.PathValue("propertyID"), r.PathValue("channel"), id, changes); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bookingId": id, "action": "modify"})
}

const secretMask = "****"

// redact hides secrets; only which credentials are set is shown.
func redact(c model.PropertyChannelConfig) model.PropertyChannelConfig {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return secretMask
	}
	c.Credentials = model.Credentials{
		APIKey:    mask(c.Credentials.APIKey),
		APISecret: mask(c.Credentials.APISecret),
		Username:  c.Credentials.Username,
		Password:  mask(c.Credentials.Password),
		Token:     mask(c.Credentials.Token),
		PartnerID: c.Credentials.PartnerID,
	}
	return c
}

// keepSecrets carries stored secrets over wherever the incoming value is empty or the redaction mask, so
// a config read from the admin API can be written back unchanged.
func keepSecrets(in, stored model.Credentials) model.Credentials {
	keep := func(v, old string) string {
		if v == "" || v == secretMask {
			return old
		}
		return v
	}
	in.APIKey = keep(in.APIKey, stored.APIKey)
	in.APISecret = keep(in.APISecret, stored.APISecret)
	in.Password = keep(in.Password, stored.Password)
	in.Token = keep(in.Token, stored.Token)
	return in
}

// ListConfigsHandler handles GET /v1/admin/properties/{propertyID}/channels
func (s *Server) ListConfigsHandler(w http.ResponseWriter, r *http.Request) {
	cfgs, err := s.Store.ListPropertyChannelConfigs(r.Context(), r.PathValue("propertyID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]model.PropertyChannelConfig, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, redact(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// SaveConfigHandler handles PUT /v1/admin/properties/{propertyID}/channels/{channel}
func (s *Server) SaveConfigHandler(w http.ResponseWriter, r *http.Request) {
	channel, ok := registry.Normalize(r.PathValue("channel"))
	if !ok {
		writeProblem(w, http.StatusNotFound, "Unsupported channel", r.PathValue("channel"), r.URL.Path)
		return
	}
	var cfg model.PropertyChannelConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	cfg.PropertyID = r.PathValue("propertyID")
	cfg.Channel = channel
	if cfg.Enabled && cfg.ChannelPropertyID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid config", "channelPropertyId is required for an enabled channel", r.URL.Path)
		return
	}
	existing, err := s.Store.GetPropertyChannelConfig(r.Context(), cfg.PropertyID, channel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if existing != nil {
		cfg.Credentials = keepSecrets(cfg.Credentials, existing.Credentials)
	}
	if err := s.Store.SavePropertyChannelConfig(r.Context(), cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.Configs != nil {
		s.Configs.Invalidate(r.Context(), cfg.PropertyID, channel)
	}
	s.Logger.Info("channel config saved",
		zap.String("property_id", cfg.PropertyID),
		zap.String("channel", channel),
		zap.Bool("enabled", cfg.Enabled),
		zap.String("by", principalFrom(r.Context()).Subject),
	)
	writeJSON(w, http.StatusOK, redact(cfg))
}

// InvalidateConfigHandler handles POST /v1/admin/config/invalidate {"propertyId","channel"}
func (s *Server) InvalidateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PropertyID string `json:"propertyId"`
		Channel    string `json:"channel"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.PropertyID == "" || body.Channel == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid request", "propertyId and channel are required", r.URL.Path)
		return
	}
	channel, ok := registry.Normalize(body.Channel)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Unsupported channel", body.Channel, r.URL.Path)
		return
	}
	if s.Configs != nil {
		s.Configs.Invalidate(r.Context(), body.PropertyID, channel)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
