package model

import (
	"strings"
	"time"

	"go.uber.org/multierr"
)

// DateLayout is the calendar-day format used for every date on the wire and in the local grid.
const DateLayout = "2006-01-02"

// Local grid snapshots

type InventoryItem struct {
	RoomTypeID   string  `json:"roomTypeId"`
	RatePlanID   string  `json:"ratePlanId,omitempty"`
	Date         string  `json:"date"`
	Availability int     `json:"availability"`
	Rate         float64 `json:"rate"`
	Currency     string  `json:"currency,omitempty"`
}

// AvailabilityItem projects the item onto its availability-only shape.
func (i InventoryItem) AvailabilityItem() AvailabilityItem {
	return AvailabilityItem{RoomTypeID: i.RoomTypeID, Date: i.Date, Availability: max(i.Availability, 0)}
}

type RateItem struct {
	RoomTypeID string  `json:"roomTypeId"`
	RatePlanID string  `json:"ratePlanId,omitempty"`
	Date       string  `json:"date"`
	Rate       float64 `json:"rate"`
	Currency   string  `json:"currency"`
}

type AvailabilityItem struct {
	RoomTypeID   string `json:"roomTypeId"`
	Date         string `json:"date"`
	Availability int    `json:"availability"`
}

// RestrictionItem is a stay constraint for one room type (and optionally rate plan) on one day.
// Zero MinStay/MaxStay mean "no constraint".
type RestrictionItem struct {
	RoomTypeID        string `json:"roomTypeId"`
	RatePlanID        string `json:"ratePlanId,omitempty"`
	Date              string `json:"date"`
	MinStay           int    `json:"minStay,omitempty"`
	MaxStay           int    `json:"maxStay,omitempty"`
	ClosedToArrival   bool   `json:"closedToArrival,omitempty"`
	ClosedToDeparture bool   `json:"closedToDeparture,omitempty"`
	StopSell          bool   `json:"stopSell,omitempty"`
}

// Sync results

type SyncError struct {
	Item  any    `json:"item"`
	Cause string `json:"cause"`
	Err   error  `json:"-"`
}

type SyncResult struct {
	Success bool        `json:"success"`
	Synced  int         `json:"synced"`
	Errors  []SyncError `json:"errors"`
}

// NewSyncResult derives Success from the collected errors.
func NewSyncResult(synced int, errs []SyncError) SyncResult {
	if errs == nil {
		errs = []SyncError{}
	}
	return SyncResult{Success: len(errs) == 0, Synced: synced, Errors: errs}
}

// Partial reports a run that failed for some items but moved at least one.
func (r SyncResult) Partial() bool { return !r.Success && r.Synced > 0 }

// Err combines every item error, or returns nil for a clean run.
func (r SyncResult) Err() error {
	var err error
	for _, e := range r.Errors {
		if e.Err != nil {
			err = multierr.Append(err, e.Err)
			continue
		}
		err = multierr.Append(err, errorString(e.Cause))
	}
	return err
}

type errorString string

func (e errorString) Error() string { return string(e) }

type ConnectionStatus struct {
	Connected bool       `json:"connected"`
	LastSync  *time.Time `json:"lastSync"`
	Error     string     `json:"error,omitempty"`
	CheckedAt time.Time  `json:"checkedAt"`
}

// Sync operations, also used as the outcome log's operation column.
type SyncKind string

const (
	SyncInventory    SyncKind = "inventory"
	SyncRates        SyncKind = "rates"
	SyncAvailability SyncKind = "availability"
	SyncRestrictions SyncKind = "restrictions"
	SyncBookings     SyncKind = "bookings"
)

// ParseSyncKind accepts the push kinds; empty means inventory.
func ParseSyncKind(s string) (SyncKind, bool) {
	switch k := SyncKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SyncInventory, true
	case SyncInventory, SyncRates, SyncAvailability, SyncRestrictions:
		return k, true
	}
	return "", false
}

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// SyncOutcome is one append-only entry of the sync log.
type SyncOutcome struct {
	ID         string         `json:"id"`
	PropertyID string         `json:"propertyId"`
	Channel    string         `json:"channel"`
	Operation  SyncKind       `json:"operation"`
	Status     string         `json:"status"`
	Synced     int            `json:"synced"`
	Failed     int            `json:"failed"`
	Details    map[string]any `json:"details,omitempty"`
	RecordedAt time.Time      `json:"recordedAt"`
}

// OutcomeStatus classifies a sync result for the log.
func OutcomeStatus(r SyncResult) string {
	switch {
	case r.Success:
		return OutcomeSuccess
	case r.Synced > 0:
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}
