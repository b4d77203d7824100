// Package vrbo connects vacation rentals to the Vrbo partner API. Each property maps to a listing and each
// room type to a unit of that listing.
package vrbo

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "vrbo"
	DefaultBaseURL = "https://api.vrbo.com/v1"

	batchSize = 90
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
	a.Probe = channels.Request{Op: "status", Method: http.MethodGet, Path: a.listingPath("")}
	return a
}

func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	if cfg.Credentials.Token == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.BearerAuth{Token: cfg.Credentials.Token}, nil
}

func (a *Adapter) listingPath(suffix string) string {
	return "/listings/" + url.PathEscape(a.Config.ChannelPropertyID) + suffix
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, push(ctx, a, "inventory", "/calendar", items, a.calendarEntry))
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
	return a.Finish(model.SyncAvailability, push(ctx, a, "availability", "/calendar", items, a.availabilityEntry))
}

func (a *Adapter) SyncRestrictions(ctx context.Context) model.SyncResult {
	items, err := a.LocalRestrictions(ctx)
	if err != nil {
		return a.Finish(model.SyncRestrictions, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRestrictions, push(ctx, a, "restrictions", "/stay-rules", items, a.stayRule))
}

func push[T, W any](ctx context.Context, a *Adapter, op, suffix string, items []T, conv func(T) (W, error)) model.SyncResult {
	send := func(ctx context.Context, op string, items []T) error {
		entries, err := channels.Convert(items, conv)
		if err != nil {
			return err
		}
		var resp apiResponse
		req := channels.Request{Op: op, Method: http.MethodPut, Path: a.listingPath(suffix), Body: entriesRequest[W]{Entries: entries}}
		if err := a.Client.Do(ctx, req, &resp); err != nil {
			return err
		}
		return resp.err(op)
	}
	return channels.Push(ctx, items, a.PushOptions(batchSize),
		func(ctx context.Context, chunk []T) error { return send(ctx, op+".batch", chunk) },
		func(ctx context.Context, item T) error { return send(ctx, op+".item", []T{item}) })
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	var resp reservationsResponse
	req := channels.Request{
		Op:     "bookings.list",
		Method: http.MethodGet,
		Path:   a.listingPath("/reservations"),
		Query:  channels.DateQuery(q, "arrivalStart", "arrivalEnd"),
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
	return a.lifecycle(ctx, "booking.confirm", http.MethodPost, bookingID, "/accept", nil)
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
		Adults:        changes.Adults,
		Children:      changes.Children,
		TotalAmount:   changes.Gross,
		Message:       changes.Note,
	}
	if changes.RoomTypeID != nil {
		unit, _, err := a.RoomIDs(*changes.RoomTypeID, "")
		if err != nil {
			return err
		}
		body.UnitID = &unit
	}
	return a.lifecycle(ctx, "booking.modify", http.MethodPatch, bookingID, "", body)
}

func (a *Adapter) lifecycle(ctx context.Context, op, method, bookingID, suffix string, body any) error {
	var resp apiResponse
	req := channels.Request{Op: op, Method: method, Path: "/reservations/" + url.PathEscape(bookingID) + suffix, Body: body}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return err
	}
	return resp.err(op)
}
