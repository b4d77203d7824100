package store

import (
	"context"
	"errors"
	"time"

	"channelhub/internal/model"
)

// InventoryReader is the read side of the local grid. Sync operations take one snapshot per call.
type InventoryReader interface {
	GetLocalInventory(ctx context.Context, propertyID string) ([]model.InventoryItem, error)
	GetLocalRates(ctx context.Context, propertyID string) ([]model.RateItem, error)
	GetLocalRestrictions(ctx context.Context, propertyID string) ([]model.RestrictionItem, error)
}

// ConfigStore holds property-scoped channel settings.
type ConfigStore interface {
	// GetPropertyChannelConfig returns nil, nil when the property has no row for the channel.
	GetPropertyChannelConfig(ctx context.Context, propertyID, channel string) (*model.PropertyChannelConfig, error)
	SavePropertyChannelConfig(ctx context.Context, cfg model.PropertyChannelConfig) error
	ListPropertyChannelConfigs(ctx context.Context, propertyID string) ([]model.PropertyChannelConfig, error)
	ListEnabledChannelConfigs(ctx context.Context) ([]model.PropertyChannelConfig, error)
}

// SyncLog is the append-only outcome log.
type SyncLog interface {
	RecordSyncOutcome(ctx context.Context, outcome model.SyncOutcome) error
	// LastSync is the time of the newest outcome that moved at least one item, or nil.
	LastSync(ctx context.Context, propertyID, channel string) (*time.Time, error)
	ListSyncOutcomes(ctx context.Context, propertyID, channel string, limit int) ([]model.SyncOutcome, error)
}

// BookingWriter persists normalized bookings keyed by (channel, external id).
type BookingWriter interface {
	UpsertBookings(ctx context.Context, bookings []model.Booking) (created, updated int, err error)
	ListBookings(ctx context.Context, propertyID, channel string) ([]model.Booking, error)
}

// Store is everything the engine consumes from persistence.
type Store interface {
	InventoryReader
	ConfigStore
	SyncLog
	BookingWriter
}

var ErrNotFound = errors.New("not found")
