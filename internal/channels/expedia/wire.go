package expedia

import (
	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

type entry struct {
	RoomTypeID              string `json:"roomTypeId"`
	RatePlanID              string `json:"ratePlanId,omitempty"`
	Date                    string `json:"date"`
	TotalInventoryAvailable *int   `json:"totalInventoryAvailable,omitempty"`
	Rate                    *money `json:"rate,omitempty"`
	MinLOS                  int    `json:"minLOS,omitempty"`
	MaxLOS                  int    `json:"maxLOS,omitempty"`
	ClosedToArrival         *bool  `json:"closedToArrival,omitempty"`
	ClosedToDeparture       *bool  `json:"closedToDeparture,omitempty"`
	Closed                  *bool  `json:"closed,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope wraps every request and response body.
type envelope struct {
	Data   []entry    `json:"data,omitempty"`
	Errors []apiError `json:"errors,omitempty"`
}

func (e envelope) err(op string) error {
	if len(e.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, x := range e.Errors {
		msgs = append(msgs, x.Code+": "+x.Message)
	}
	return channels.Rejected(Name, op, msgs...)
}

type confirmation struct {
	ConfirmationNumber string `json:"confirmationNumber"`
}

type cancellation struct {
	Reason string `json:"reason,omitempty"`
}

type modification struct {
	CheckInDate   *string `json:"checkInDate,omitempty"`
	CheckOutDate  *string `json:"checkOutDate,omitempty"`
	RoomTypeID    *string `json:"roomTypeId,omitempty"`
	NumberOfRooms *int    `json:"numberOfRooms,omitempty"`
	AdultCount    *int    `json:"adultCount,omitempty"`
	ChildCount    *int    `json:"childCount,omitempty"`
	TotalAmount   *money  `json:"totalAmount,omitempty"`
	Comment       string  `json:"comment,omitempty"`
}

func (a *Adapter) inventoryEntry(it model.InventoryItem) (entry, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return entry{}, err
	}
	n := max(it.Availability, 0)
	return entry{RoomTypeID: room, RatePlanID: plan, Date: it.Date, TotalInventoryAvailable: &n, Rate: &money{Amount: it.Rate, Currency: it.Currency}}, nil
}

func (a *Adapter) rateEntry(it model.RateItem) (entry, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return entry{}, err
	}
	return entry{RoomTypeID: room, RatePlanID: plan, Date: it.Date, Rate: &money{Amount: it.Rate, Currency: it.Currency}}, nil
}

func (a *Adapter) availabilityEntry(it model.AvailabilityItem) (entry, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return entry{}, err
	}
	n := it.Availability
	return entry{RoomTypeID: room, Date: it.Date, TotalInventoryAvailable: &n}, nil
}

func (a *Adapter) restrictionEntry(it model.RestrictionItem) (entry, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return entry{}, err
	}
	cta, ctd, closed := it.ClosedToArrival, it.ClosedToDeparture, it.StopSell
	return entry{
		RoomTypeID: room, RatePlanID: plan, Date: it.Date,
		MinLOS: it.MinStay, MaxLOS: it.MaxStay,
		ClosedToArrival: &cta, ClosedToDeparture: &ctd, Closed: &closed,
	}, nil
}

type reservationList struct {
	Data   []reservation `json:"data"`
	Errors []apiError    `json:"errors"`
}

func (l reservationList) err(op string) error { return envelope{Errors: l.Errors}.err(op) }

type reservation struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	PrimaryGuest struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phoneNumber"`
	} `json:"primaryGuest"`
	RoomTypeID         string `json:"roomTypeId"`
	NumberOfRooms      int    `json:"numberOfRooms"`
	AdultCount         int    `json:"adultCount"`
	ChildCount         int    `json:"childCount"`
	CheckInDate        string `json:"checkInDate"`
	CheckOutDate       string `json:"checkOutDate"`
	TotalAmount        money  `json:"totalAmount"`
	Commission         money  `json:"commission"`
	CreationDateTime   string `json:"creationDateTime"`
	LastUpdateDateTime string `json:"lastUpdateDateTime"`
}

var statuses = channels.StatusMap{
	"booked":    model.StatusConfirmed,
	"confirmed": model.StatusConfirmed,
	"pending":   model.StatusPending,
	"modified":  model.StatusModified,
	"cancelled": model.StatusCancelled,
	"no_show":   model.StatusNoShow,
	"stayed":    model.StatusCompleted,
	"completed": model.StatusCompleted,
}

func (a *Adapter) transform(r reservation) (model.Booking, error) {
	if r.ID == "" {
		return model.Booking{}, channels.MissingField(Name, "", "id")
	}
	status, err := statuses.Map(Name, r.ID, r.Status)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, r.ID, "checkInDate", r.CheckInDate)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, r.ID, "checkOutDate", r.CheckOutDate)
	if err != nil {
		return model.Booking{}, err
	}
	g := r.PrimaryGuest
	return model.Booking{
		ExternalID: r.ID,
		Guest:      model.Guest{FirstName: g.FirstName, LastName: g.LastName, Email: g.Email, Phone: g.PhoneNumber},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(r.RoomTypeID),
			ChannelRoomID: r.RoomTypeID,
			Quantity:      max(r.NumberOfRooms, 1),
			Adults:        r.AdultCount,
			Children:      r.ChildCount,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(r.TotalAmount.Amount, 0, r.Commission.Amount, r.TotalAmount.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(r.CreationDateTime),
		UpdatedAt: channels.Timestamp(r.LastUpdateDateTime),
	}, nil
}
