package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"channelhub/internal/channelconfig"
	"channelhub/internal/channels"
	"channelhub/internal/registry"
	"channelhub/internal/syncer"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps engine errors onto problem responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unsupported *registry.UnsupportedChannelError
		cfgErr      *channelconfig.ConfigurationError
		invalid     *syncer.ValidationError
		transport   *channels.TransportError
	)
	switch {
	case errors.As(err, &unsupported):
		writeProblem(w, http.StatusNotFound, "Unsupported channel", err.Error(), r.URL.Path)
	case errors.As(err, &cfgErr):
		writeProblem(w, http.StatusConflict, "Channel "+cfgErr.Reason, err.Error(), r.URL.Path)
	case errors.As(err, &invalid), errors.Is(err, syncer.ErrRestrictionsUnsupported):
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), r.URL.Path)
	case errors.As(err, &transport):
		writeProblem(w, http.StatusBadGateway, "Partner request failed", err.Error(), r.URL.Path)
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timed out", err.Error(), r.URL.Path)
	default:
		s.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), r.URL.Path)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return false
	}
	return true
}
