// Package traveloka connects properties to Traveloka's TERA extranet API.
package traveloka

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "traveloka"
	DefaultBaseURL = "https://api.traveloka.com/tera/v1"

	batchSize = 100
)

var _ channels.Connector = (*Adapter)(nil)

type Adapter struct {
	channels.Base
}

func New(base channels.Base) *Adapter {
	a := &Adapter{Base: base}
	a.Probe = channels.Request{Op: "status", Method: http.MethodGet, Path: a.hotelPath("/health")}
	return a
}

// NewAuthenticator sends the API key together with the partner id header.
func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	c := cfg.Credentials
	if c.APIKey == "" || c.PartnerID == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.APIKeyAuth{Header: "X-Api-Key", Key: c.APIKey, Extra: map[string]string{"X-Partner-Id": c.PartnerID}}, nil
}

func (a *Adapter) hotelPath(suffix string) string {
	return "/hotels/" + url.PathEscape(a.Config.ChannelPropertyID) + suffix
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, push(ctx, a, "inventory", "/inventory", items, a.inventoryUpdate))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, push(ctx, a, "rates", "/rates", items, a.rateUpdate))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, push(ctx, a, "availability", "/allotment", items, a.allotmentUpdate))
}

func push[T any](ctx context.Context, a *Adapter, op, suffix string, items []T, conv func(T) (update, error)) model.SyncResult {
	send := func(ctx context.Context, op string, items []T) error {
		updates, err := channels.Convert(items, conv)
		if err != nil {
			return err
		}
		body := updateRequest{HotelID: a.Config.ChannelPropertyID, Updates: updates}
		return a.call(ctx, channels.Request{Op: op, Method: http.MethodPost, Path: a.hotelPath(suffix), Body: body}, nil)
	}
	return channels.Push(ctx, items, a.PushOptions(batchSize),
		func(ctx context.Context, chunk []T) error { return send(ctx, op+".batch", chunk) },
		func(ctx context.Context, item T) error { return send(ctx, op+".item", []T{item}) })
}

// call sends req and checks the result code. out, when non-nil, must embed result.
func (a *Adapter) call(ctx context.Context, req channels.Request, out coded) error {
	var r result
	if out == nil {
		out = &r
	}
	if err := a.Client.Do(ctx, req, out); err != nil {
		return err
	}
	return out.outcome().err(req.Op)
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	var resp bookingsResponse
	req := channels.Request{
		Op:     "bookings.list",
		Method: http.MethodGet,
		Path:   a.hotelPath("/bookings"),
		Query:  channels.DateQuery(q, "checkInStart", "checkInEnd"),
	}
	if err := a.call(ctx, req, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Bookings,
		func(b booking) string { return b.BookingID }, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.call(ctx, channels.Request{Op: "booking.confirm", Method: http.MethodPost, Path: bookingPath(bookingID, "/confirm")}, nil)
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	req := channels.Request{Op: "booking.cancel", Method: http.MethodPost, Path: bookingPath(bookingID, "/cancel"), Body: cancellation{Reason: reason}}
	return a.call(ctx, req, nil)
}

func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := modification{
		CheckInDate:   changes.CheckIn,
		CheckOutDate:  changes.CheckOut,
		NumOfRooms:    changes.Quantity,
		NumOfAdults:   changes.Adults,
		NumOfChildren: changes.Children,
		TotalPrice:    changes.Gross,
		Note:          changes.Note,
	}
	if changes.RoomTypeID != nil {
		room, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.RoomID = &room
	}
	return a.call(ctx, channels.Request{Op: "booking.modify", Method: http.MethodPost, Path: bookingPath(bookingID, "/modify"), Body: body}, nil)
}

func bookingPath(id, suffix string) string {
	return "/bookings/" + url.PathEscape(id) + suffix
}
