// Package tripadvisor connects properties to Tripadvisor's connectivity API.
//
// Tripadvisor has no bulk endpoint: every room-day is its own PUT, so pushes run entirely on the per-item
// path with bounded concurrency.
package tripadvisor

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "tripadvisor"
	DefaultBaseURL = "https://api.tripadvisor.com/connectivity/v1"

	keyHeader = "X-TripAdvisor-API-Key"
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

func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	if cfg.Credentials.APIKey == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.APIKeyAuth{Header: keyHeader, Key: cfg.Credentials.APIKey}, nil
}

func (a *Adapter) propertyPath(suffix string) string {
	return "/properties/" + url.PathEscape(a.Config.ChannelPropertyID) + suffix
}

func (a *Adapter) dayPath(room, kind, date string) string {
	return a.propertyPath("/rooms/" + url.PathEscape(room) + "/" + kind + "/" + date)
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, channels.Push(ctx, items, a.PushOptions(0), nil,
		func(ctx context.Context, it model.InventoryItem) error {
			room, _, err := a.RoomIDs(it.RoomTypeID, "")
			if err != nil {
				return err
			}
			n := max(it.Availability, 0)
			body := availabilityDay{Available: &n, Price: &price{Amount: it.Rate, Currency: it.Currency}}
			return a.put(ctx, "inventory.item", a.dayPath(room, "availability", it.Date), body)
		}))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, channels.Push(ctx, items, a.PushOptions(0), nil,
		func(ctx context.Context, it model.RateItem) error {
			room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
			if err != nil {
				return err
			}
			return a.put(ctx, "rates.item", a.dayPath(room, "rates", it.Date), rateDay{Amount: it.Rate, Currency: it.Currency, RatePlan: plan})
		}))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, channels.Push(ctx, items, a.PushOptions(0), nil,
		func(ctx context.Context, it model.AvailabilityItem) error {
			room, _, err := a.RoomIDs(it.RoomTypeID, "")
			if err != nil {
				return err
			}
			n := it.Availability
			return a.put(ctx, "availability.item", a.dayPath(room, "availability", it.Date), availabilityDay{Available: &n})
		}))
}

func (a *Adapter) put(ctx context.Context, op, path string, body any) error {
	return a.Client.Do(ctx, channels.Request{Op: op, Method: http.MethodPut, Path: path, Body: body}, nil)
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	var resp reservationsResponse
	req := channels.Request{Op: "bookings.list", Method: http.MethodGet, Path: a.propertyPath("/reservations"), Query: channels.DateQuery(q, "start_date", "end_date")}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Reservations,
		func(r reservation) string { return r.ReservationID }, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.Client.Do(ctx, channels.Request{Op: "booking.confirm", Method: http.MethodPost, Path: reservationPath(bookingID, "/confirm")}, nil)
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	req := channels.Request{Op: "booking.cancel", Method: http.MethodPost, Path: reservationPath(bookingID, "/cancel"), Body: cancellation{Reason: reason}}
	return a.Client.Do(ctx, req, nil)
}

func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := modification{
		CheckIn:  changes.CheckIn,
		CheckOut: changes.CheckOut,
		Rooms:    changes.Quantity,
		Adults:   changes.Adults,
		Children: changes.Children,
		Notes:    changes.Note,
	}
	if changes.Gross != nil {
		body.TotalPrice = &price{Amount: *changes.Gross}
	}
	if changes.RoomTypeID != nil {
		room, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.RoomID = &room
	}
	return a.Client.Do(ctx, channels.Request{Op: "booking.modify", Method: http.MethodPut, Path: reservationPath(bookingID, ""), Body: body}, nil)
}

func reservationPath(id, suffix string) string {
	return "/reservations/" + url.PathEscape(id) + suffix
}
