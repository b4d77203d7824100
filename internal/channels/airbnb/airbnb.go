// Package airbnb connects properties to Airbnb's host calendar and reservation API.
//
// Each mapped room type is an Airbnb listing; ChannelPropertyID is the host account. Calendar updates are
// posted as operations per listing, at most 50 operations per chunk.
package airbnb

import (
	"context"
	"net/http"
	"net/url"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

const (
	Name           = "airbnb"
	DefaultBaseURL = "https://api.airbnb.com/v2"

	batchSize = 50
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
	a.Probe = channels.Request{Op: "status", Method: http.MethodGet, Path: "/users/" + url.PathEscape(a.Config.ChannelPropertyID)}
	return a
}

// NewAuthenticator uses the host's OAuth access token.
func NewAuthenticator(cfg model.ChannelConfig) (channels.Authenticator, error) {
	if cfg.Credentials.Token == "" {
		return nil, channels.ErrMissingCredentials
	}
	return channels.BearerAuth{Token: cfg.Credentials.Token}, nil
}

func (a *Adapter) SyncInventory(ctx context.Context) model.SyncResult {
	items, err := a.LocalInventory(ctx)
	if err != nil {
		return a.Finish(model.SyncInventory, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncInventory, push(ctx, a, "inventory", items, func(it model.InventoryItem) (string, operation, error) {
		listing, err := a.listing(it.RoomTypeID)
		if err != nil {
			return "", operation{}, err
		}
		return listing, operation{Dates: []string{it.Date}, Availability: availability(it.Availability), AvailableCount: ptr(max(it.Availability, 0)), DailyPrice: ptr(it.Rate), Currency: it.Currency}, nil
	}))
}

func (a *Adapter) SyncRates(ctx context.Context) model.SyncResult {
	items, err := a.LocalRates(ctx)
	if err != nil {
		return a.Finish(model.SyncRates, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRates, push(ctx, a, "rates", items, func(it model.RateItem) (string, operation, error) {
		listing, err := a.listing(it.RoomTypeID)
		if err != nil {
			return "", operation{}, err
		}
		return listing, operation{Dates: []string{it.Date}, DailyPrice: ptr(it.Rate), Currency: it.Currency}, nil
	}))
}

func (a *Adapter) SyncAvailability(ctx context.Context) model.SyncResult {
	items, err := a.LocalAvailability(ctx)
	if err != nil {
		return a.Finish(model.SyncAvailability, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncAvailability, push(ctx, a, "availability", items, func(it model.AvailabilityItem) (string, operation, error) {
		listing, err := a.listing(it.RoomTypeID)
		if err != nil {
			return "", operation{}, err
		}
		return listing, operation{Dates: []string{it.Date}, Availability: availability(it.Availability), AvailableCount: ptr(it.Availability)}, nil
	}))
}

func (a *Adapter) SyncRestrictions(ctx context.Context) model.SyncResult {
	items, err := a.LocalRestrictions(ctx)
	if err != nil {
		return a.Finish(model.SyncRestrictions, channels.SnapshotFailed(err))
	}
	return a.Finish(model.SyncRestrictions, push(ctx, a, "restrictions", items, func(it model.RestrictionItem) (string, operation, error) {
		listing, err := a.listing(it.RoomTypeID)
		if err != nil {
			return "", operation{}, err
		}
		op := operation{
			Dates:             []string{it.Date},
			MinNights:         it.MinStay,
			MaxNights:         it.MaxStay,
			ClosedToArrival:   ptr(it.ClosedToArrival),
			ClosedToDeparture: ptr(it.ClosedToDeparture),
		}
		if it.StopSell {
			op.Availability = "unavailable"
		}
		return listing, op, nil
	}))
}

func (a *Adapter) listing(roomTypeID string) (string, error) {
	room, _, err := a.RoomIDs(roomTypeID, "")
	return room, err
}

// push groups each chunk by listing and sends one calendar request per listing. A chunk fails if any of
// its listing requests fails.
func push[T any](ctx context.Context, a *Adapter, op string, items []T, conv func(T) (string, operation, error)) model.SyncResult {
	send := func(ctx context.Context, op string, items []T) error {
		var order []string
		byListing := map[string][]operation{}
		for _, it := range items {
			listing, o, err := conv(it)
			if err != nil {
				return err
			}
			if _, ok := byListing[listing]; !ok {
				order = append(order, listing)
			}
			byListing[listing] = append(byListing[listing], o)
		}
		for _, listing := range order {
			req := channels.Request{
				Op:     op,
				Method: http.MethodPost,
				Path:   "/calendar_operations",
				Body:   calendarRequest{ListingID: listing, Operations: byListing[listing]},
			}
			var resp apiResponse
			if err := a.Client.Do(ctx, req, &resp); err != nil {
				return err
			}
			if err := resp.err(op); err != nil {
				return err
			}
		}
		return nil
	}
	return channels.Push(ctx, items, a.PushOptions(batchSize),
		func(ctx context.Context, chunk []T) error { return send(ctx, op+".batch", chunk) },
		func(ctx context.Context, item T) error { return send(ctx, op+".item", []T{item}) })
}

func (a *Adapter) GetBookings(ctx context.Context, q model.BookingQuery) (model.BookingBatch, error) {
	query := channels.DateQuery(q, "start_date", "end_date")
	query.Set("host_id", a.Config.ChannelPropertyID)
	var resp reservationsResponse
	if err := a.Client.Do(ctx, channels.Request{Op: "bookings.list", Method: http.MethodGet, Path: "/reservations", Query: query}, &resp); err != nil {
		return model.BookingBatch{}, err
	}
	if err := resp.err("bookings.list"); err != nil {
		return model.BookingBatch{}, err
	}
	return channels.NormalizeBookings(Name, a.PropertyID(), resp.Reservations,
		func(r reservation) string { return r.ConfirmationCode }, a.transform, a.Logger), nil
}

func (a *Adapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	return a.reservationCall(ctx, "booking.confirm", bookingID, "/accept", nil)
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) error {
	return a.reservationCall(ctx, "booking.cancel", bookingID, "/cancel", cancellation{CancelReason: reason})
}

// ModifyBooking submits an alteration request; the guest still has to accept it on Airbnb.
func (a *Adapter) ModifyBooking(ctx context.Context, bookingID string, changes model.BookingChanges) error {
	if err := a.CheckChanges(changes); err != nil {
		return err
	}
	body := alteration{
		StartDate:        changes.CheckIn,
		EndDate:          changes.CheckOut,
		NumberOfAdults:   changes.Adults,
		NumberOfChildren: changes.Children,
		Price:            changes.Gross,
		Message:          changes.Note,
	}
	if changes.RoomTypeID != nil {
		listing, err := a.listing(*changes.RoomTypeID)
		if err != nil {
			return err
		}
		body.ListingID = &listing
	}
	return a.reservationCall(ctx, "booking.modify", bookingID, "/alterations", body)
}

func (a *Adapter) reservationCall(ctx context.Context, op, code, suffix string, body any) error {
	var resp apiResponse
	req := channels.Request{Op: op, Method: http.MethodPost, Path: "/reservations/" + url.PathEscape(code) + suffix, Body: body}
	if err := a.Client.Do(ctx, req, &resp); err != nil {
		return err
	}
	return resp.err(op)
}

func ptr[T any](v T) *T { return &v }

func availability(n int) string {
	if n > 0 {
		return "available"
	}
	return "unavailable"
}
