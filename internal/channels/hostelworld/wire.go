package hostelworld

import (
	"strconv"
	"strings"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type day struct {
	RoomTypeID string `json:"roomTypeId"`
	Date       string `json:"date"`
	Beds       *int   `json:"beds,omitempty"`
	Price      string `json:"price,omitempty"`
	Currency   string `json:"currency,omitempty"`
}

type cancellation struct {
	Reason string `json:"reason,omitempty"`
}

type modification struct {
	Arrival    *string `json:"arrival,omitempty"`
	Departure  *string `json:"departure,omitempty"`
	RoomTypeID *string `json:"room_type_id,omitempty"`
	Beds       *int    `json:"beds,omitempty"`
	Guests     *int    `json:"guests,omitempty"`
	Total      *string `json:"total,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (a *Adapter) inventoryDay(it model.InventoryItem) (day, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return day{}, err
	}
	beds := max(it.Availability, 0)
	return day{RoomTypeID: room, Date: it.Date, Beds: &beds, Price: money(it.Rate), Currency: it.Currency}, nil
}

func (a *Adapter) priceDay(it model.RateItem) (day, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return day{}, err
	}
	return day{RoomTypeID: room, Date: it.Date, Price: money(it.Rate), Currency: it.Currency}, nil
}

func (a *Adapter) availabilityDay(it model.AvailabilityItem) (day, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return day{}, err
	}
	beds := it.Availability
	return day{RoomTypeID: room, Date: it.Date, Beds: &beds}, nil
}

type bookingsResponse struct {
	Bookings []booking `json:"bookings"`
}

type booking struct {
	BookingRef string `json:"booking_ref"`
	Status     string `json:"status"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	RoomTypeID string `json:"room_type_id"`
	Beds       int    `json:"beds"`
	Guests     int    `json:"guests"`
	Arrival    string `json:"arrival"`
	Departure  string `json:"departure"`
	Total      string `json:"total"`
	Deposit    string `json:"deposit"`
	Currency   string `json:"currency"`
	BookedAt   string `json:"booked_at"`
}

var statuses = channels.StatusMap{
	"confirmed":   model.StatusConfirmed,
	"booked":      model.StatusConfirmed,
	"pending":     model.StatusPending,
	"amended":     model.StatusModified,
	"modified":    model.StatusModified,
	"cancelled":   model.StatusCancelled,
	"checked_out": model.StatusCompleted,
	"no_show":     model.StatusNoShow,
}

// transform maps a Hostelworld booking. Hostelworld keeps the deposit as its commission, and reports a
// single guest count that is booked as adults.
func (a *Adapter) transform(b booking) (model.Booking, error) {
	ref := b.BookingRef
	if ref == "" {
		return model.Booking{}, channels.MissingField(Name, "", "booking_ref")
	}
	status, err := statuses.Map(Name, ref, b.Status)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, ref, "arrival", b.Arrival)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, ref, "departure", b.Departure)
	if err != nil {
		return model.Booking{}, err
	}
	total, err := parseMoney(ref, "total", b.Total)
	if err != nil {
		return model.Booking{}, err
	}
	deposit, err := parseMoney(ref, "deposit", b.Deposit)
	if err != nil {
		return model.Booking{}, err
	}
	first, last := channels.SplitName(b.GuestName)
	return model.Booking{
		ExternalID: ref,
		Guest:      model.Guest{FirstName: first, LastName: last, Email: b.GuestEmail, Phone: b.GuestPhone},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(b.RoomTypeID),
			ChannelRoomID: b.RoomTypeID,
			Quantity:      max(b.Beds, 1),
			Adults:        b.Guests,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(total, 0, deposit, b.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(b.BookedAt),
		UpdatedAt: channels.Timestamp(b.BookedAt),
	}, nil
}

func parseMoney(ref, field, v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &channels.TransformError{Channel: Name, ExternalID: ref, Field: field, Reason: "not an amount: " + v}
	}
	return f, nil
}
