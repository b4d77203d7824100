package channels

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"channelhub/internal/metrics"
	"channelhub/internal/model"
)

// NormalizeBookings turns raw partner records into canonical bookings. transform is the partner-specific
// mapping; id extracts the partner's booking id for error reporting before transform runs. Records that
// fail to transform or validate are dropped into Rejected with a logged reason and never affect the rest.
func NormalizeBookings[T any](channel, propertyID string, raws []T, id func(T) string, transform func(T) (model.Booking, error), logger *zap.Logger) model.BookingBatch {
	batch := model.BookingBatch{Bookings: make([]model.Booking, 0, len(raws)), Rejected: []model.RejectedBooking{}}
	for _, raw := range raws {
		b, err := transform(raw)
		if err == nil {
			b.Channel = channel
			b.PropertyID = propertyID
			err = model.Validate(b)
		}
		if err != nil {
			ext := id(raw)
			logger.Warn("dropping malformed booking", zap.String("external_id", ext), zap.Error(err))
			batch.Rejected = append(batch.Rejected, model.RejectedBooking{ExternalID: ext, Reason: err.Error()})
			continue
		}
		batch.Bookings = append(batch.Bookings, b)
	}
	metrics.BookingsFetched.WithLabelValues(channel, "accepted").Add(float64(len(batch.Bookings)))
	metrics.BookingsFetched.WithLabelValues(channel, "rejected").Add(float64(len(batch.Rejected)))
	return batch
}

// StatusMap maps one partner's booking status vocabulary onto the canonical set. Keys are matched
// case-insensitively with spaces and dashes folded to underscores.
type StatusMap map[string]model.BookingStatus

// Map returns the canonical status, or a TransformError for a value outside the vocabulary.
func (m StatusMap) Map(channel, externalID, status string) (model.BookingStatus, error) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(status)))
	if s, ok := m[key]; ok {
		return s, nil
	}
	return "", &TransformError{Channel: channel, ExternalID: externalID, Field: "status", Reason: "unknown value " + `"` + status + `"`}
}

// Date normalizes a partner date or timestamp to YYYY-MM-DD. Empty input stays empty so validation can
// report the missing field.
func Date(channel, externalID, field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	for _, layout := range []string{model.DateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(model.DateLayout), nil
		}
	}
	return "", &TransformError{Channel: channel, ExternalID: externalID, Field: field, Reason: "not a date: " + v}
}

// Timestamp parses a partner RFC 3339 timestamp; empty or unparseable values yield the zero time.
func Timestamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// SplitName splits a single-field guest name into first and last name at the last space.
func SplitName(full string) (first, last string) {
	full = strings.Join(strings.Fields(full), " ")
	i := strings.LastIndexByte(full, ' ')
	if i < 0 {
		return full, ""
	}
	return full[:i], full[i+1:]
}
