package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"channelhub/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu           sync.Mutex
	inventory    map[string][]model.InventoryItem       // propertyId -> grid
	rates        map[string][]model.RateItem            // propertyId -> rates
	restrictions map[string][]model.RestrictionItem     // propertyId -> restrictions
	configs      map[string]model.PropertyChannelConfig // propertyId/channel -> config
	outcomes     []model.SyncOutcome                    // append-only
	bookings     map[string]model.Booking               // channel/externalId -> booking
	listeners    []func(propertyID, channel string)     // config change hooks
}

func NewMemory() *Memory {
	return &Memory{
		inventory:    map[string][]model.InventoryItem{},
		rates:        map[string][]model.RateItem{},
		restrictions: map[string][]model.RestrictionItem{},
		configs:      map[string]model.PropertyChannelConfig{},
		bookings:     map[string]model.Booking{},
	}
}

func configKey(propertyID, channel string) string {
	return propertyID + "/" + strings.ToLower(channel)
}

// SetInventory replaces the property's local grid.
func (m *Memory) SetInventory(propertyID string, items []model.InventoryItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory[propertyID] = slices.Clone(items)
}

func (m *Memory) SetRates(propertyID string, items []model.RateItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[propertyID] = slices.Clone(items)
}

func (m *Memory) SetRestrictions(propertyID string, items []model.RestrictionItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restrictions[propertyID] = slices.Clone(items)
}

// OnConfigChange registers a hook fired after every SavePropertyChannelConfig.
func (m *Memory) OnConfigChange(fn func(propertyID, channel string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Memory) GetLocalInventory(ctx context.Context, propertyID string) ([]model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.inventory[propertyID]), nil
}

// GetLocalRates falls back to projecting the inventory grid when no separate rate rows exist.
func (m *Memory) GetLocalRates(ctx context.Context, propertyID string) ([]model.RateItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rates[propertyID]; ok {
		return slices.Clone(r), nil
	}
	inv := m.inventory[propertyID]
	out := make([]model.RateItem, 0, len(inv))
	for _, it := range inv {
		out = append(out, model.RateItem{RoomTypeID: it.RoomTypeID, RatePlanID: it.RatePlanID, Date: it.Date, Rate: it.Rate, Currency: it.Currency})
	}
	return out, nil
}

func (m *Memory) GetLocalRestrictions(ctx context.Context, propertyID string) ([]model.RestrictionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.restrictions[propertyID]), nil
}

func (m *Memory) GetPropertyChannelConfig(ctx context.Context, propertyID, channel string) (*model.PropertyChannelConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.configs[configKey(propertyID, channel)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) SavePropertyChannelConfig(ctx context.Context, cfg model.PropertyChannelConfig) error {
	cfg.Channel = strings.ToLower(cfg.Channel)
	cfg.UpdatedAt = time.Now().UTC()
	m.mu.Lock()
	m.configs[configKey(cfg.PropertyID, cfg.Channel)] = cfg
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg.PropertyID, cfg.Channel)
	}
	return nil
}

func (m *Memory) ListPropertyChannelConfigs(ctx context.Context, propertyID string) ([]model.PropertyChannelConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PropertyChannelConfig{}
	for _, c := range m.configs {
		if c.PropertyID == propertyID {
			out = append(out, c)
		}
	}
	sortConfigs(out)
	return out, nil
}

func (m *Memory) ListEnabledChannelConfigs(ctx context.Context) ([]model.PropertyChannelConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PropertyChannelConfig{}
	for _, c := range m.configs {
		if c.Enabled {
			out = append(out, c)
		}
	}
	sortConfigs(out)
	return out, nil
}

func sortConfigs(cs []model.PropertyChannelConfig) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].PropertyID != cs[j].PropertyID {
			return cs[i].PropertyID < cs[j].PropertyID
		}
		return cs[i].Channel < cs[j].Channel
	})
}

func (m *Memory) RecordSyncOutcome(ctx context.Context, o model.SyncOutcome) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *Memory) LastSync(ctx context.Context, propertyID, channel string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for i := range m.outcomes {
		o := m.outcomes[i]
		if o.PropertyID != propertyID || o.Channel != channel || o.Status == model.OutcomeFailed {
			continue
		}
		if last == nil || o.RecordedAt.After(*last) {
			t := o.RecordedAt
			last = &t
		}
	}
	return last, nil
}

// ListSyncOutcomes returns the newest entries first.
func (m *Memory) ListSyncOutcomes(ctx context.Context, propertyID, channel string, limit int) ([]model.SyncOutcome, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.SyncOutcome{}
	for i := len(m.outcomes) - 1; i >= 0 && len(out) < limit; i-- {
		o := m.outcomes[i]
		if o.PropertyID == propertyID && (channel == "" || o.Channel == channel) {
			out = append(out, o)
		}
	}
	return out, nil
}

func bookingKey(b model.Booking) string { return b.Channel + "/" + b.ExternalID }

func (m *Memory) UpsertBookings(ctx context.Context, bookings []model.Booking) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created, updated := 0, 0
	for _, b := range bookings {
		k := bookingKey(b)
		if _, ok := m.bookings[k]; ok {
			updated++
		} else {
			created++
		}
		m.bookings[k] = b
	}
	return created, updated, nil
}

func (m *Memory) ListBookings(ctx context.Context, propertyID, channel string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, b := range m.bookings {
		if b.PropertyID == propertyID && (channel == "" || b.Channel == channel) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bookingKey(out[i]) < bookingKey(out[j]) })
	return out, nil
}
