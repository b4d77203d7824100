// Package tripcom connects properties to the Trip.com open platform.
//
// Every call is a signed POST. Trip.com answers 200 with a ResponseStatus envelope; Ack "Failure" is a
// rejected call and "Warning" is accepted.
package tripcom

import (
	"context"
	"net/http"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "tripcom"
	DefaultBaseURL = "https://openapi.trip.com/hotel/v1"

	batchSize = 100
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
	a.Probe = channels.Request{Op: "status", Method: http.MethodPost, Path: "/ping", Body: hotelRef{HotelCode: base.Config.ChannelPropertyID}}
	return a
}

// NewAuthenticator builds the request signer. A missing secret is reported by every call instead, so the
// connector still reports its status.
func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	if cfg.Credentials.APIKey == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.HMACSigner{
		APIKey:          cfg.Credentials.APIKey,
		Secret:          cfg.Credentials.APISecret,
		KeyHeader:       "Trip-Api-Key",
		SignatureHeader: "Trip-Signature",
		TimestampHeader: "Trip-Timestamp",
		NonceHeader:     "Trip-Nonce",
	}, nil
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, push(ctx, a, "inventory", "/inventory", items, a.inventoryRow))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, push(ctx, a, "rates", "/rates", items, a.rateRow))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, push(ctx, a, "availability", "/allotment", items, a.allotmentRow))
}

func (a *Adapter) SyncRestrictions(ctx context.Context) model.SyncResult {
	items, err := a.LocalRestrictions(ctx)
	if err != nil {
		return a.Finish(model.SyncRestrictions, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRestrictions, push(ctx, a, "restrictions", "/restrictions", items, a.restrictionRow))
}

func push[T any](ctx context.Context, a *Adapter, op, path string, items []T, conv func(T) (row, error)) model.SyncResult {
	send := func(ctx context.Context, op string, items []T) error {
		rows, err := channels.Convert(items, conv)
		if err != nil {
			return err
		}
		return a.call(ctx, op, path, updateRequest{HotelCode: a.Config.ChannelPropertyID, Rows: rows}, nil)
	}
	return channels.Push(ctx, items, a.PushOptions(batchSize),
		func(ctx context.Context, chunk []T) error { return send(ctx, op+".batch", chunk) },
		func(ctx context.Context, item T) error { return send(ctx, op+".item", []T{item}) })
}

// call posts body and checks the ResponseStatus envelope. out, when non-nil, must embed envelope.
func (a *Adapter) call(ctx context.Context, op, path string, body any, out statusCarrier) error {
	var env envelope
	if out == nil {
		out = &env
	}
	if err := a.Client.Do(ctx, channels.Request{Op: op, Method: http.MethodPost, Path: path, Body: body}, out); err != nil {
		return err
	}
	return out.status().err(op)
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	var resp ordersResponse
	body := orderSearch{HotelCode: a.Config.ChannelPropertyID, CheckInFrom: q.From, CheckInTo: q.To}
	if err := a.call(ctx, "bookings.list", "/orders/search", body, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Orders,
		func(o order) string { return o.OrderID }, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.call(ctx, "booking.confirm", "/orders/confirm", orderAction{HotelCode: a.Config.ChannelPropertyID, OrderID: bookingID}, nil)
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	body := orderAction{HotelCode: a.Config.ChannelPropertyID, OrderID: bookingID, Reason: reason}
	return a.call(ctx, "booking.cancel", "/orders/cancel", body, nil)
}

func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := orderModify{
		HotelCode:    a.Config.ChannelPropertyID,
		OrderID:      bookingID,
		CheckIn:      changes.CheckIn,
		CheckOut:     changes.CheckOut,
		RoomQuantity: changes.Quantity,
		AdultCount:   changes.Adults,
		ChildCount:   changes.Children,
		TotalAmount:  changes.Gross,
		Remark:       changes.Note,
	}
	if changes.RoomTypeID != nil {
		room, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.RoomCode = &room
	}
	return a.call(ctx, "booking.modify", "/orders/modify", body, nil)
}
