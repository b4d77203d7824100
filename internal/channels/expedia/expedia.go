// Package expedia connects properties to Expedia's lodging supply API.
//
// Expedia issues per-property EQC credentials used with HTTP Basic. Bulk updates accept 200 entries.
// State-changing reservation calls require a successful connection check first.
package expedia

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "expedia"
	DefaultBaseURL = "https://services.expediapartnercentral.com/supply/v1"

	batchSize = 200
)

var (
	_ channels.Connector         = (*Adapter)(nil)
	_ channels.RestrictionSyncer = (*Adapter)(nil)
)

type Adapter struct {
	channels.Base
}

func New(base channels.Base) *Adapter {
	a := &Adapter{Base: base}
	a.Probe = channels.Request{Op: "status", Method: http.MethodGet, Path: a.path("")}
	return a
}

func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	c := cfg.Credentials
	if c.Username == "" || c.Password == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.BasicAuth{Username: c.Username, Password: c.Password}, nil
}

func (a *Adapter) path(suffix string) string {
	return "/properties/" + url.PathEscape(a.Config.ChannelPropertyID) + suffix
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, push(ctx, a, "inventory", "/availability", items, a.inventoryEntry))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, push(ctx, a, "rates", "/rates", items, a.rateEntry))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, push(ctx, a, "availability", "/availability", items, a.availabilityEntry))
}

func (a *Adapter) SyncRestrictions(ctx context.Context) model.SyncResult {
	items, err := a.LocalRestrictions(ctx)
	if err != nil {
		return a.Finish(model.SyncRestrictions, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRestrictions, push(ctx, a, "restrictions", "/restrictions", items, a.restrictionEntry))
}

func push[T any](ctx context.Context, a *Adapter, op, suffix string, items []T, conv func(T) (entry, error)) model.SyncResult {
	send := func(ctx context.Context, op string, items []T) error {
		entries, err := channels.Convert(items, conv)
		if err != nil {
			return err
		}
		var resp envelope
		if err := a.Client.Do(ctx, channels.Request{Op: op, Method: http.MethodPost, Path: a.path(suffix), Body: envelope{Data: entries}}, &resp); err != nil {
			return err
		}
		return resp.err(op)
	}
	return channels.Push(ctx, items, a.PushOptions(batchSize),
		func(ctx context.Context, chunk []T) error { return send(ctx, op+".batch", chunk) },
		func(ctx context.Context, item T) error { return send(ctx, op+".item", []T{item}) })
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	var resp reservationList
	req := channels.Request{
		Op:     "bookings.list",
		Method: http.MethodGet,
		Path:   a.path("/reservations"),
		Query:  channels.DateQuery(q, "checkInFrom", "checkInTo"),
	}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	if err := resp.err(req.Op); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Data,
		func(r reservation) string { return r.ID }, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.lifecycle(ctx, "booking.confirm", http.MethodPut, bookingID, "/confirmation", confirmation{ConfirmationNumber: bookingID})
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	return a.lifecycle(ctx, "booking.cancel", http.MethodPost, bookingID, "/cancellation", cancellation{Reason: reason})
}

func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := modification{
		CheckInDate:   changes.CheckIn,
		CheckOutDate:  changes.CheckOut,
		NumberOfRooms: changes.Quantity,
		AdultCount:    changes.Adults,
		ChildCount:    changes.Children,
		Comment:       changes.Note,
	}
	if changes.Gross != nil {
		body.TotalAmount = &money{Amount: *changes.Gross}
	}
	if changes.RoomTypeID != nil {
		room, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.RoomTypeID = &room
	}
	return a.lifecycle(ctx, "booking.modify", http.MethodPatch, bookingID, "", body)
}

// lifecycle runs the pre-flight connection check before any reservation state change.
func (a *Adapter) lifecycle(ctx context.Context, op, method, bookingID, suffix string, body any) error {
	if err := a.ValidateConnection(ctx); err != nil {
		return err
	}
	var resp envelope
	req := channels.Request{Op: op, Method: method, Path: a.path("/reservations/" + url.PathEscape(bookingID) + suffix), Body: body}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return err
	}
	return resp.err(op)
}
