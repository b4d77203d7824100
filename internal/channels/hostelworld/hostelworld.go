// Package hostelworld connects hostels to the Hostelworld partner API.
//
// Hostelworld sells beds and accepts one day per request, so pushes only use the per-item path. Money is
// sent and received as decimal strings.
package hostelworld

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "hostelworld"
	DefaultBaseURL = "https://partner-api.hostelworld.com/v1"
)

var _ channels.Connector = (*Adapter)(nil)

type Adapter struct {
	channels.Base
}

func New(base channels.Base) *Adapter {
	a := &Adapter{Base: base}
	a.Probe = channels.Request{Op: "status", Method: http.MethodGet, Path: a.propertyPath("")}
	return a
}

// NewAuthenticator sends the partner id and API key as Basic credentials.
func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	c := cfg.Credentials
	if c.PartnerID == "" || c.APIKey == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.BasicAuth{Username: c.PartnerID, Password: c.APIKey}, nil
}

func (a *Adapter) propertyPath(suffix string) string {
	return "/properties/" + url.PathEscape(a.Config.ChannelPropertyID) + suffix
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, push(ctx, a, "inventory.item", "/availability", items, a.inventoryDay))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, push(ctx, a, "rates.item", "/prices", items, a.priceDay))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, push(ctx, a, "availability.item", "/availability", items, a.availabilityDay))
}

func push[T any](ctx context.Context, a *Adapter, op, suffix string, items []T, conv func(T) (day, error)) model.SyncResult {
	return channels.Push(ctx, items, a.PushOptions(0), nil, func(ctx context.Context, item T) error {
		d, err := conv(item)
		if err != nil {
			return err
		}
		return a.Client.Do(ctx, channels.Request{Op: op, Method: http.MethodPut, Path: a.propertyPath(suffix), Body: d}, nil)
	})
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	var resp bookingsResponse
	req := channels.Request{
		Op:     "bookings.list",
		Method: http.MethodGet,
		Path:   a.propertyPath("/bookings"),
		Query:  channels.DateQuery(q, "arrival_from", "arrival_to"),
	}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Bookings,
		func(b booking) string { return b.BookingRef }, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.Client.Do(ctx, channels.Request{Op: "booking.confirm", Method: http.MethodPost, Path: bookingPath(bookingID, "/confirm")}, nil)
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	req := channels.Request{Op: "booking.cancel", Method: http.MethodPost, Path: bookingPath(bookingID, "/cancel"), Body: cancellation{Reason: reason}}
	return a.Client.Do(ctx, req, nil)
}

func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := modification{Arrival: changes.CheckIn, Departure: changes.CheckOut, Beds: changes.Quantity, Notes: changes.Note}
	if changes.Adults != nil || changes.Children != nil {
		guests := deref(changes.Adults) + deref(changes.Children)
		body.Guests = &guests
	}
	if changes.Gross != nil {
		total := money(*changes.Gross)
		body.Total = &total
	}
	if changes.RoomTypeID != nil {
		room, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.RoomTypeID = &room
	}
	return a.Client.Do(ctx, channels.Request{Op: "booking.modify", Method: http.MethodPatch, Path: bookingPath(bookingID, ""), Body: body}, nil)
}

func bookingPath(ref, suffix string) string {
	return "/bookings/" + url.PathEscape(ref) + suffix
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
