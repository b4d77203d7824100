package model

import (
	"math"
	"strings"
	"time"
)

// BookingStatus is the closed set every partner vocabulary is mapped onto.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusModified  BookingStatus = "modified"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no_show"
)

type Guest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty"`
}

type RoomDetails struct {
	RoomTypeID    string `json:"roomTypeId"`
	ChannelRoomID string `json:"channelRoomId" validate:"required"`
	Quantity      int    `json:"quantity" validate:"gte=1"`
	Adults        int    `json:"adults" validate:"gte=1"`
	Children      int    `json:"children" validate:"gte=0"`
}

type Amount struct {
	Gross      float64 `json:"gross" validate:"gte=0"`
	Net        float64 `json:"net" validate:"gte=0"`
	Commission float64 `json:"commission" validate:"gte=0"`
	Currency   string  `json:"currency" validate:"required,len=3"`
}

// NewAmount fills whichever of net/commission the partner left out, rounds every member to cents and
// upper-cases the currency. Partners report either (gross, commission) or (gross, net); both must normalize
// to the same value.
func NewAmount(gross, net, commission float64, currency string) Amount {
	switch {
	case net == 0 && commission != 0:
		net = gross - commission
	case commission == 0 && net != 0:
		commission = gross - net
	case net == 0 && commission == 0:
		net = gross
	}
	return Amount{
		Gross:      roundCents(gross),
		Net:        roundCents(net),
		Commission: roundCents(commission),
		Currency:   strings.ToUpper(strings.TrimSpace(currency)),
	}
}

func roundCents(v float64) float64 { return math.Round(v*100) / 100 }

// Booking is the partner-agnostic reservation.
type Booking struct {
	ExternalID string        `json:"externalBookingId" validate:"required"`
	Channel    string        `json:"channel" validate:"required"`
	PropertyID string        `json:"propertyId"`
	Guest      Guest         `json:"guest"`
	Room       RoomDetails   `json:"room"`
	CheckIn    string        `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut   string        `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Amount     Amount        `json:"amount"`
	Status     BookingStatus `json:"status" validate:"oneof=pending confirmed modified cancelled completed no_show"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Nights returns the length of stay, or 0 when the dates do not parse.
func (b Booking) Nights() int {
	in, err1 := time.Parse(DateLayout, b.CheckIn)
	out, err2 := time.Parse(DateLayout, b.CheckOut)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

// BookingQuery filters retrieval by stay dates; empty bounds are open.
type BookingQuery struct {
	From string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type RejectedBooking struct {
	ExternalID string `json:"externalBookingId"`
	Reason     string `json:"reason"`
}

// BookingBatch is what retrieval hands back: well-formed bookings plus the records that were dropped.
type BookingBatch struct {
	Bookings []Booking         `json:"bookings"`
	Rejected []RejectedBooking `json:"rejected"`
}

// BookingChanges carries the fields a modification request may touch. Nil means unchanged.
type BookingChanges struct {
	CheckIn    *string  `json:"checkIn,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CheckOut   *string  `json:"checkOut,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RoomTypeID *string  `json:"roomTypeId,omitempty"`
	Quantity   *int     `json:"quantity,omitempty" validate:"omitempty,gte=1"`
	Adults     *int     `json:"adults,omitempty" validate:"omitempty,gte=1"`
	Children   *int     `json:"children,omitempty" validate:"omitempty,gte=0"`
	Gross      *float64 `json:"gross,omitempty" validate:"omitempty,gte=0"`
	Note       string   `json:"note,omitempty"`
}

// Empty reports whether no field would change.
func (c BookingChanges) Empty() bool {
	return c.CheckIn == nil && c.CheckOut == nil && c.RoomTypeID == nil && c.Quantity == nil &&
		c.Adults == nil && c.Children == nil && c.Gross == nil
}
