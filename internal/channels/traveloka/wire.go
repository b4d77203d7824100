package traveloka

import (
	"strings"
	"time"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type update struct {
	RoomID     string   `json:"roomId"`
	RatePlanID string   `json:"ratePlanId,omitempty"`
	Date       string   `json:"date"`
	Allotment  *int     `json:"allotment,omitempty"`
	Rate       *float64 `json:"rate,omitempty"`
	Currency   string   `json:"currency,omitempty"`
}

type updateRequest struct {
	HotelID string   `json:"hotelId"`
	Updates []update `json:"updates"`
}

type result struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r result) outcome() result { return r }

func (r result) err(op string) error {
	if r.Code == "" || strings.EqualFold(r.Code, "SUCCESS") {
		return nil
	}
	return channels.Rejected(Name, op, r.Code+": "+r.Message)
}

type coded interface {
	outcome() result
}

type cancellation struct {
	Reason string `json:"reason,omitempty"`
}

type modification struct {
	CheckInDate   *string  `json:"checkInDate,omitempty"`
	CheckOutDate  *string  `json:"checkOutDate,omitempty"`
	RoomID        *string  `json:"roomId,omitempty"`
	NumOfRooms    *int     `json:"numOfRooms,omitempty"`
	NumOfAdults   *int     `json:"numOfAdults,omitempty"`
	NumOfChildren *int     `json:"numOfChildren,omitempty"`
	TotalPrice    *float64 `json:"totalPrice,omitempty"`
	Note          string   `json:"note,omitempty"`
}

func (a *Adapter) inventoryUpdate(it model.InventoryItem) (update, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return update{}, err
	}
	n, rate := max(it.Availability, 0), it.Rate
	return update{RoomID: room, RatePlanID: plan, Date: it.Date, Allotment: &n, Rate: &rate, Currency: it.Currency}, nil
}

func (a *Adapter) rateUpdate(it model.RateItem) (update, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return update{}, err
	}
	rate := it.Rate
	return update{RoomID: room, RatePlanID: plan, Date: it.Date, Rate: &rate, Currency: it.Currency}, nil
}

func (a *Adapter) allotmentUpdate(it model.AvailabilityItem) (update, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return update{}, err
	}
	n := it.Availability
	return update{RoomID: room, Date: it.Date, Allotment: &n}, nil
}

type bookingsResponse struct {
	result
	Bookings []booking `json:"bookings"`
}

type booking struct {
	BookingID     string `json:"bookingId"`
	BookingStatus string `json:"bookingStatus"`
	Contact       struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phoneNumber"`
	} `json:"contact"`
	RoomID        string  `json:"roomId"`
	NumOfRooms    int     `json:"numOfRooms"`
	NumOfAdults   int     `json:"numOfAdults"`
	NumOfChildren int     `json:"numOfChildren"`
	CheckInDate   string  `json:"checkInDate"`
	CheckOutDate  string  `json:"checkOutDate"`
	TotalPrice    float64 `json:"totalPrice"`
	NetPrice      float64 `json:"netPrice"`
	Currency      string  `json:"currency"`
	CreatedTime   int64   `json:"createdTime"`
	UpdatedTime   int64   `json:"updatedTime"`
}

var statuses = channels.StatusMap{
	"issued":      model.StatusConfirmed,
	"confirmed":   model.StatusConfirmed,
	"pending":     model.StatusPending,
	"modified":    model.StatusModified,
	"cancelled":   model.StatusCancelled,
	"refunded":    model.StatusCancelled,
	"checked_out": model.StatusCompleted,
	"no_show":     model.StatusNoShow,
}

// transform maps a Traveloka booking. Timestamps arrive as epoch milliseconds and the commission is the
// gap between total and net price.
func (a *Adapter) transform(b booking) (model.Booking, error) {
	id := b.BookingID
	if id == "" {
		return model.Booking{}, channels.MissingField(Name, "", "bookingId")
	}
	status, err := statuses.Map(Name, id, b.BookingStatus)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, id, "checkInDate", b.CheckInDate)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, id, "checkOutDate", b.CheckOutDate)
	if err != nil {
		return model.Booking{}, err
	}
	c := b.Contact
	return model.Booking{
		ExternalID: id,
		Guest:      model.Guest{FirstName: c.FirstName, LastName: c.LastName, Email: c.Email, Phone: c.PhoneNumber},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(b.RoomID),
			ChannelRoomID: b.RoomID,
			Quantity:      max(b.NumOfRooms, 1),
			Adults:        b.NumOfAdults,
			Children:      b.NumOfChildren,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(b.TotalPrice, b.NetPrice, 0, b.Currency),
		Status:    status,
		CreatedAt: epochMillis(b.CreatedTime),
		UpdatedAt: epochMillis(b.UpdatedTime),
	}, nil
}

func epochMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
