// Package channels defines the contract every partner adapter implements and the machinery they share:
// the partner HTTP client, authenticators, the batch-then-fallback push and booking normalization.
package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"channelhub/internal/metrics"
	"channelhub/internal/model"
	"channelhub/internal/store"
)

// Connector is one partner integration bound to one property.
//
// Sync methods never fail as a whole: per-item problems are collected into the result. ConnectionStatus
// never fails either; a broken partner shows up as Connected=false.
type Connector interface {
	Name() string
	ConnectionStatus(ctx context.Context) model.ConnectionStatus
	SyncInventory(ctx context.Context) model.SyncResult
	SyncRates(ctx context.Context) model.SyncResult
	SyncAvailability(ctx context.Context) model.SyncResult

	GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error)
	ConfirmBooking(ctx context.Context, bookingID string) error
	CancelBooking(ctx context.Context, bookingID, reason string) error
	ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error
}

// RestrictionSyncer is implemented by partners that model stay restrictions apart from availability.
type RestrictionSyncer interface {
	SyncRestrictions(ctx context.Context) model.SyncResult
}

// LocalData is the local side adapters read from: the grid snapshots and the sync log's last success.
type LocalData interface {
	store.InventoryReader
	LastSync(ctx context.Context, propertyID, channel string) (*time.Time, error)
}

// Base carries the state every adapter shares and is embedded by each of them.
type Base struct {
	Config model.ChannelConfig
	Client *Client
	Data   LocalData
	Logger *zap.Logger
	// Probe is the lightweight call ConnectionStatus makes. Adapters set it in their constructor.
	Probe Request
}

func (b *Base) Name() string       { return b.Config.Channel }
func (b *Base) PropertyID() string { return b.Config.PropertyID }

// ConnectionStatus runs the probe and reports the last successful sync from the outcome log.
func (b *Base) ConnectionStatus(ctx context.Context) model.ConnectionStatus {
	st := model.ConnectionStatus{CheckedAt: time.Now().UTC()}
	if b.Data != nil {
		if last, err := b.Data.LastSync(ctx, b.Config.PropertyID, b.Config.Channel); err == nil {
			st.LastSync = last
		}
	}
	probe := b.Probe
	if probe.Method == "" {
		probe.Method = http.MethodGet
	}
	if probe.Op == "" {
		probe.Op = "status"
	}
	if err := b.Client.Do(ctx, probe, nil); err != nil {
		st.Error = err.Error()
		return st
	}
	st.Connected = true
	return st
}

// ValidateConnection is the pre-flight check used before state-changing calls that require one.
func (b *Base) ValidateConnection(ctx context.Context) error {
	st := b.ConnectionStatus(ctx)
	if st.Connected {
		return nil
	}
	return &TransportError{Channel: b.Config.Channel, Op: "validate", Err: fmt.Errorf("not connected: %s", st.Error)}
}

func (b *Base) LocalInventory(ctx context.Context) ([]model.InventoryItem, error) {
	items, err := b.Data.GetLocalInventory(ctx, b.Config.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("read local inventory for %s: %w", b.Config.PropertyID, err)
	}
	return items, nil
}

func (b *Base) LocalRates(ctx context.Context) ([]model.RateItem, error) {
	items, err := b.Data.GetLocalRates(ctx, b.Config.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("read local rates for %s: %w", b.Config.PropertyID, err)
	}
	return items, nil
}

func (b *Base) LocalRestrictions(ctx context.Context) ([]model.RestrictionItem, error) {
	items, err := b.Data.GetLocalRestrictions(ctx, b.Config.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("read local restrictions for %s: %w", b.Config.PropertyID, err)
	}
	return items, nil
}

// LocalAvailability projects the inventory snapshot onto availability-only items.
func (b *Base) LocalAvailability(ctx context.Context) ([]model.AvailabilityItem, error) {
	inv, err := b.LocalInventory(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.AvailabilityItem, 0, len(inv))
	for _, it := range inv {
		out = append(out, it.AvailabilityItem())
	}
	return out, nil
}

// PushOptions derives push tuning from the config, using batchSize when the config leaves it unset.
func (b *Base) PushOptions(batchSize int) PushOptions {
	s := b.Config.Sync
	if s.BatchSize > 0 {
		batchSize = s.BatchSize
	}
	return PushOptions{BatchSize: batchSize, Concurrency: s.Concurrency, Retry: RetryPolicyFor(s.MaxRetries)}
}

// Finish logs and counts a completed push.
func (b *Base) Finish(kind model.SyncKind, r model.SyncResult) model.SyncResult {
	metrics.SyncItems.WithLabelValues(b.Config.Channel, string(kind), "synced").Add(float64(r.Synced))
	metrics.SyncItems.WithLabelValues(b.Config.Channel, string(kind), "failed").Add(float64(len(r.Errors)))
	fields := []zap.Field{zap.String("kind", string(kind)), zap.Int("synced", r.Synced), zap.Int("failed", len(r.Errors))}
	switch {
	case r.Success:
		b.Logger.Info("sync finished", fields...)
	case r.Partial():
		b.Logger.Warn("sync partially failed", fields...)
	default:
		b.Logger.Error("sync failed", append(fields, zap.Error(r.Err()))...)
	}
	return r
}

// SnapshotFailed is the result when the local snapshot itself could not be read.
func SnapshotFailed(err error) model.SyncResult {
	return model.NewSyncResult(0, []model.SyncError{{Cause: err.Error(), Err: err}})
}

// RoomIDs maps a local room type and rate plan onto the partner's ids.
func (b *Base) RoomIDs(roomTypeID, ratePlanID string) (room, plan string, err error) {
	if room, err = b.Config.ChannelRoomID(roomTypeID); err != nil {
		return "", "", fmt.Errorf("room type %s: %w", roomTypeID, err)
	}
	if plan, err = b.Config.ChannelRatePlanID(ratePlanID); err != nil {
		return "", "", fmt.Errorf("rate plan %s: %w", ratePlanID, err)
	}
	return room, plan, nil
}

// CheckChanges rejects empty or invalid modification requests before anything is sent.
func (b *Base) CheckChanges(c model.BookingChanges) error {
	if c.Empty() {
		return ErrNoChanges
	}
	return model.Validate(c)
}

// DateQuery builds a booking query string under the partner's parameter names. Empty bounds are omitted.
func DateQuery(q model.BookingQuery, fromKey, toKey string) url.Values {
	v := url.Values{}
	if q.From != "" {
		v.Set(fromKey, q.From)
	}
	if q.To != "" {
		v.Set(toKey, q.To)
	}
	return v
}
