// Package hotelbeds connects properties to the Hotelbeds channel manager API.
//
// Every request is signed with the integrator's key and secret. Hotelbeds has no separate restriction
// model, so the adapter does not implement channels.RestrictionSyncer.
package hotelbeds

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "hotelbeds"
	DefaultBaseURL = "https://api.hotelbeds.com/channel-manager/1.0"

	batchSize = 50
)

var _ channels.Connector = (*Adapter)(nil)

type Adapter struct {
	channels.Base
}

func New(base channels.Base) *Adapter {
	a := &Adapter{Base: base}
	a.Probe = channels.Request{Op: "status", Method: http.MethodGet, Path: "/status"}
	return a
}

// NewAuthenticator returns the request signer. A missing secret is not an error here: the signer refuses
// to sign, so every call fails before anything is sent.
func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	if cfg.Credentials.APIKey == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.HMACSigner{
		APIKey:          cfg.Credentials.APIKey,
		Secret:          cfg.Credentials.APISecret,
		KeyHeader:       "Api-key",
		SignatureHeader: "X-Signature",
		TimestampHeader: "X-Timestamp",
		NonceHeader:     "X-Nonce",
	}, nil
}

func (a *Adapter) hotelPath(suffix string) string {
	return "/hotels/" + url.PathEscape(a.Config.ChannelPropertyID) + suffix
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, push(ctx, a, "inventory", "/inventory", items, a.inventoryLine))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, push(ctx, a, "rates", "/prices", items, a.priceLine))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, push(ctx, a, "availability", "/allotments", items, a.allotmentLine))
}

func push[T any](ctx context.Context, a *Adapter, op, suffix string, items []T, conv func(T) (line, error)) model.SyncResult {
	send := func(ctx context.Context, op string, items []T) error {
		lines, err := channels.Convert(items, conv)
		if err != nil {
			return err
		}
		var resp response
		req := channels.Request{Op: op, Method: http.MethodPost, Path: a.hotelPath(suffix), Body: updateRequest{HotelCode: a.Config.ChannelPropertyID, Lines: lines}}
		if err := a.Client.Do(ctx, req, &resp); err != nil {
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
	req := channels.Request{Op: "bookings.list", Method: http.MethodGet, Path: a.hotelPath("/bookings"), Query: channels.DateQuery(q, "start", "end")}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	if err := resp.err(req.Op); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Bookings,
		func(b booking) string { return b.Reference }, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.bookingCall(ctx, "booking.confirm", http.MethodPut, bookingID, "/confirm", nil, nil)
}

// CancelBooking sends the reason as a query parameter; Hotelbeds cancellations carry no body.
func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	var q url.Values
	if reason != "" {
		q = url.Values{"reason": {reason}}
	}
	return a.bookingCall(ctx, "booking.cancel", http.MethodDelete, bookingID, "", q, nil)
}

func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := modification{
		CheckIn:  changes.CheckIn,
		CheckOut: changes.CheckOut,
		Quantity: changes.Quantity,
		Adults:   changes.Adults,
		Children: changes.Children,
		Selling:  changes.Gross,
		Remark:   changes.Note,
	}
	if changes.RoomTypeID != nil {
		room, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.RoomCode = &room
	}
	return a.bookingCall(ctx, "booking.modify", http.MethodPut, bookingID, "", nil, body)
}

func (a *Adapter) bookingCall(ctx context.Context, op, method, ref, suffix string, q url.Values, body any) error {
	var resp response
	req := channels.Request{Op: op, Method: method, Path: "/bookings/" + url.PathEscape(ref) + suffix, Query: q, Body: body}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return err
	}
	return resp.err(op)
}
