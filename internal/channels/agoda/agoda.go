// Package agoda connects properties to Agoda's supply API (YCS).
package agoda

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "agoda"
	DefaultBaseURL = "https://supply.agoda.com/api/v2"

	batchSize = 100
	keyHeader = "X-Api-Key"
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
	a.Probe = channels.Request{Op: "status", Method: http.MethodGet, Path: a.propertyPath("/ping")}
	return a
}

// NewAuthenticator sends the integrator API key; Agoda identifies the hotel by the property id in the body.
func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	if cfg.Credentials.APIKey == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.APIKeyAuth{Header: keyHeader, Key: cfg.Credentials.APIKey}, nil
}

func (a *Adapter) propertyPath(suffix string) string {
	return "/properties/" + url.PathEscape(a.Config.ChannelPropertyID) + suffix
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, push(ctx, a, "inventory", "/inventory", items, a.inventoryItem))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, push(ctx, a, "rates", "/rates", items, a.rateItem))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, push(ctx, a, "availability", "/inventory", items, a.allotmentItem))
}

func (a *Adapter) SyncRestrictions(ctx context.Context) model.SyncResult {
	items, err := a.LocalRestrictions(ctx)
	if err != nil {
		return a.Finish(model.SyncRestrictions, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRestrictions, push(ctx, a, "restrictions", "/restrictions", items, a.restrictionItem))
}

func push[T any](ctx context.Context, a *Adapter, op, path string, items []T, conv func(T) (item, error)) model.SyncResult {
	send := func(ctx context.Context, op string, items []T) error {
		wire, err := channels.Convert(items, conv)
		if err != nil {
			return err
		}
		var resp result
		body := updateRequest{PropertyID: a.Config.ChannelPropertyID, Items: wire}
		if err := a.Client.Do(ctx, channels.Request{Op: op, Method: http.MethodPost, Path: path, Body: body}, &resp); err != nil {
			return err
		}
		return resp.err(op)
	}
	return channels.Push(ctx, items, a.PushOptions(batchSize),
		func(ctx context.Context, chunk []T) error { return send(ctx, op+".batch", chunk) },
		func(ctx context.Context, it T) error { return send(ctx, op+".item", []T{it}) })
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	var resp bookingsResponse
	req := channels.Request{
		Op:     "bookings.list",
		Method: http.MethodGet,
		Path:   a.propertyPath("/bookings"),
		Query:  channels.DateQuery(q, "fromDate", "toDate"),
	}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	if err := resp.err(req.Op); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Bookings, booking.externalID, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.bookingCall(ctx, "booking.confirm", bookingID, "/confirm", nil)
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	return a.bookingCall(ctx, "booking.cancel", bookingID, "/cancel", cancellation{Reason: reason})
}

func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := amendment{
		CheckIn:      changes.CheckIn,
		CheckOut:     changes.CheckOut,
		NoOfRooms:    changes.Quantity,
		NoOfAdults:   changes.Adults,
		NoOfChildren: changes.Children,
		Inclusive:    changes.Gross,
		Remark:       changes.Note,
	}
	if changes.RoomTypeID != nil {
		room, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.RoomID = &room
	}
	return a.bookingCall(ctx, "booking.modify", bookingID, "/amend", body)
}

func (a *Adapter) bookingCall(ctx context.Context, op, bookingID, suffix string, body any) error {
	var resp result
	req := channels.Request{Op: op, Method: http.MethodPost, Path: "/bookings/" + url.PathEscape(bookingID) + suffix, Body: body}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return err
	}
	return resp.err(op)
}
