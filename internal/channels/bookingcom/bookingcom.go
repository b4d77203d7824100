// Package bookingcom connects properties to Booking.com's JSON connectivity API.
//
// Booking.com authenticates the integrator account with HTTP Basic and identifies the hotel by its
// Booking.com hotel id. Availability, rates and restrictions go through bulk update endpoints that accept
// up to 100 updates per call; the per-item fallback sends single-update requests to the same endpoints.
// A 200 response can still carry an errors array, which is treated as a failed call.
package bookingcom

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "bookingcom"
	DefaultBaseURL = "https://supply-xml.booking.com/json/v1"

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
	a.Probe = channels.Request{Op: "status", Method: http.MethodGet, Path: a.hotelPath("/status")}
	return a
}

// NewAuthenticator uses the integrator's username and password.
func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	c := cfg.Credentials
	if c.Username == "" || c.Password == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.BasicAuth{Username: c.Username, Password: c.Password}, nil
}

func (a *Adapter) hotelPath(suffix string) string {
	return "/hotels/" + url.PathEscape(a.Config.ChannelPropertyID) + suffix
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, pushAll(ctx, a, "inventory", "/availability", items, a.inventoryUpdate))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, pushAll(ctx, a, "rates", "/rates", items, a.rateUpdate))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, pushAll(ctx, a, "availability", "/availability", items, a.availabilityUpdate))
}

func (a *Adapter) SyncRestrictions(ctx context.Context) model.SyncResult {
	items, err := a.LocalRestrictions(ctx)
	if err != nil {
		return a.Finish(model.SyncRestrictions, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRestrictions, pushAll(ctx, a, "restrictions", "/restrictions", items, a.restrictionUpdate))
}

func pushAll[T any](ctx context.Context, a *Adapter, op, suffix string, items []T, conv func(T) (update, error)) model.SyncResult {
	return channels.Push(ctx, items, a.PushOptions(batchSize),
		func(ctx context.Context, chunk []T) error {
			return sendUpdates(ctx, a, op+".batch", suffix, chunk, conv)
		},
		func(ctx context.Context, item T) error {
			return sendUpdates(ctx, a, op+".item", suffix, []T{item}, conv)
		})
}

func sendUpdates[T any](ctx context.Context, a *Adapter, op, suffix string, items []T, conv func(T) (update, error)) error {
	updates, err := channels.Convert(items, conv)
	if err != nil {
		return err
	}
	var resp apiResponse
	req := channels.Request{
		Op:     op,
		Method: http.MethodPost,
		Path:   a.hotelPath(suffix),
		Body:   updateRequest{HotelID: a.Config.ChannelPropertyID, Updates: updates},
	}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return err
	}
	return resp.err(op)
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	var resp reservationsResponse
	req := channels.Request{
		Op:     "bookings.list",
		Method: http.MethodGet,
		Path:   a.hotelPath("/reservations"),
		Query:  channels.DateQuery(q, "arrival_from", "arrival_to"),
	}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	if err := resp.err(req.Op); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Reservations,
		func(r reservation) string { return r.ReservationID }, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.lifecycle(ctx, "booking.confirm", http.MethodPost, bookingID, "/acknowledge", nil)
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	return a.lifecycle(ctx, "booking.cancel", http.MethodPost, bookingID, "/cancel", cancellation{Reason: reason})
}

func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := modification{
		ArrivalDate:   changes.CheckIn,
		DepartureDate: changes.CheckOut,
		NumberOfRooms: changes.Quantity,
		Adults:        changes.Adults,
		Children:      changes.Children,
		TotalPrice:    changes.Gross,
		Remarks:       changes.Note,
	}
	if changes.RoomTypeID != nil {
		room, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.RoomID = &room
	}
	return a.lifecycle(ctx, "booking.modify", http.MethodPatch, bookingID, "", body)
}

func (a *Adapter) lifecycle(ctx context.Context, op, method, bookingID, suffix string, body any) error {
	var resp apiResponse
	req := channels.Request{
		Op:     op,
		Method: method,
		Path:   a.hotelPath("/reservations/" + url.PathEscape(bookingID) + suffix),
		Body:   body,
	}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return err
	}
	return resp.err(op)
}
