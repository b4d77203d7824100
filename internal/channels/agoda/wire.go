package agoda

import (
	"strconv"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type item struct {
	RoomID     string   `json:"roomId"`
	RatePlanID string   `json:"ratePlanId,omitempty"`
	Date       string   `json:"date"`
	Allotment  *int     `json:"allotment,omitempty"`
	Rate       *float64 `json:"rate,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	MinLos     int      `json:"minLos,omitempty"`
	MaxLos     int      `json:"maxLos,omitempty"`
	CTA        *bool    `json:"cta,omitempty"`
	CTD        *bool    `json:"ctd,omitempty"`
	Closed     *bool    `json:"closed,omitempty"`
}

type updateRequest struct {
	PropertyID string `json:"propertyId"`
	Items      []item `json:"items"`
}

// result is the common response envelope. A missing success flag counts as success.
type result struct {
	Success *bool `json:"success"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (r result) err(op string) error {
	if r.Success == nil || *r.Success {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return channels.Rejected(Name, op, msgs...)
}

type cancellation struct {
	Reason string `json:"reason,omitempty"`
}

type amendment struct {
	CheckIn      *string  `json:"checkIn,omitempty"`
	CheckOut     *string  `json:"checkOut,omitempty"`
	RoomID       *string  `json:"roomId,omitempty"`
	NoOfRooms    *int     `json:"noOfRooms,omitempty"`
	NoOfAdults   *int     `json:"noOfAdults,omitempty"`
	NoOfChildren *int     `json:"noOfChildren,omitempty"`
	Inclusive    *float64 `json:"inclusive,omitempty"`
	Remark       string   `json:"remark,omitempty"`
}

func (a *Adapter) inventoryItem(it model.InventoryItem) (item, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return item{}, err
	}
	n, rate := max(it.Availability, 0), it.Rate
	return item{RoomID: room, RatePlanID: plan, Date: it.Date, Allotment: &n, Rate: &rate, Currency: it.Currency}, nil
}

func (a *Adapter) rateItem(it model.RateItem) (item, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return item{}, err
	}
	rate := it.Rate
	return item{RoomID: room, RatePlanID: plan, Date: it.Date, Rate: &rate, Currency: it.Currency}, nil
}

func (a *Adapter) allotmentItem(it model.AvailabilityItem) (item, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return item{}, err
	}
	n := it.Availability
	return item{RoomID: room, Date: it.Date, Allotment: &n}, nil
}

func (a *Adapter) restrictionItem(it model.RestrictionItem) (item, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return item{}, err
	}
	cta, ctd, closed := it.ClosedToArrival, it.ClosedToDeparture, it.StopSell
	return item{RoomID: room, RatePlanID: plan, Date: it.Date, MinLos: it.MinStay, MaxLos: it.MaxStay, CTA: &cta, CTD: &ctd, Closed: &closed}, nil
}

type bookingsResponse struct {
	result
	Bookings []booking `json:"bookings"`
}

type booking struct {
	BookingID int64  `json:"bookingId"`
	Status    string `json:"status"`
	Customer  struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"customer"`
	RoomID       string `json:"roomId"`
	NoOfRooms    int    `json:"noOfRooms"`
	NoOfAdults   int    `json:"noOfAdults"`
	NoOfChildren int    `json:"noOfChildren"`
	CheckIn      string `json:"checkIn"`
	CheckOut     string `json:"checkOut"`
	Rates        struct {
		Inclusive  float64 `json:"inclusive"`
		Commission float64 `json:"commission"`
	} `json:"rates"`
	Currency     string `json:"currency"`
	BookingDate  string `json:"bookingDate"`
	LastModified string `json:"lastModified"`
}

func (b booking) externalID() string {
	if b.BookingID == 0 {
		return ""
	}
	return strconv.FormatInt(b.BookingID, 10)
}

var statuses = channels.StatusMap{
	"confirmed":   model.StatusConfirmed,
	"booked":      model.StatusConfirmed,
	"pending":     model.StatusPending,
	"amended":     model.StatusModified,
	"cancelled":   model.StatusCancelled,
	"rejected":    model.StatusCancelled,
	"noshow":      model.StatusNoShow,
	"departed":    model.StatusCompleted,
	"checked_out": model.StatusCompleted,
}

func (a *Adapter) transform(b booking) (model.Booking, error) {
	id := b.externalID()
	if id == "" {
		return model.Booking{}, channels.MissingField(Name, "", "bookingId")
	}
	status, err := statuses.Map(Name, id, b.Status)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, id, "checkIn", b.CheckIn)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, id, "checkOut", b.CheckOut)
	if err != nil {
		return model.Booking{}, err
	}
	c := b.Customer
	return model.Booking{
		ExternalID: id,
		Guest:      model.Guest{FirstName: c.FirstName, LastName: c.LastName, Email: c.Email, Phone: c.Phone},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(b.RoomID),
			ChannelRoomID: b.RoomID,
			Quantity:      max(b.NoOfRooms, 1),
			Adults:        b.NoOfAdults,
			Children:      b.NoOfChildren,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(b.Rates.Inclusive, 0, b.Rates.Commission, b.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(b.BookingDate),
		UpdatedAt: channels.Timestamp(b.LastModified),
	}, nil
}
