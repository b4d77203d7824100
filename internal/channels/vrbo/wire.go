package vrbo

import (
	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type entriesRequest[W any] struct {
	Entries []W `json:"entries"`
}

type calendarEntry struct {
	UnitID         string   `json:"unitId"`
	Date           string   `json:"date"`
	UnitsAvailable *int     `json:"unitsAvailable,omitempty"`
	NightlyRate    *float64 `json:"nightlyRate,omitempty"`
	Currency       string   `json:"currency,omitempty"`
}

type rateEntry struct {
	UnitID      string  `json:"unitId"`
	RatePlanID  string  `json:"ratePlanId,omitempty"`
	Date        string  `json:"date"`
	NightlyRate float64 `json:"nightlyRate"`
	Currency    string  `json:"currency"`
}

type stayRule struct {
	UnitID          string `json:"unitId"`
	Date            string `json:"date"`
	MinNights       int    `json:"minNights,omitempty"`
	MaxNights       int    `json:"maxNights,omitempty"`
	CheckInAllowed  bool   `json:"checkInAllowed"`
	CheckOutAllowed bool   `json:"checkOutAllowed"`
	Blocked         bool   `json:"blocked"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Errors []apiError `json:"errors"`
}

func (r apiResponse) err(op string) error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Code+": "+e.Message)
	}
	return channels.Rejected(Name, op, msgs...)
}

type cancellation struct {
	Reason string `json:"reason,omitempty"`
}

type modification struct {
	ArrivalDate   *string  `json:"arrivalDate,omitempty"`
	DepartureDate *string  `json:"departureDate,omitempty"`
	UnitID        *string  `json:"unitId,omitempty"`
	Adults        *int     `json:"adults,omitempty"`
	Children      *int     `json:"children,omitempty"`
	TotalAmount   *float64 `json:"totalAmount,omitempty"`
	Message       string   `json:"message,omitempty"`
}

func (a *Adapter) calendarEntry(it model.InventoryItem) (calendarEntry, error) {
	unit, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return calendarEntry{}, err
	}
	n, rate := max(it.Availability, 0), it.Rate
	return calendarEntry{UnitID: unit, Date: it.Date, UnitsAvailable: &n, NightlyRate: &rate, Currency: it.Currency}, nil
}

func (a *Adapter) availabilityEntry(it model.AvailabilityItem) (calendarEntry, error) {
	unit, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return calendarEntry{}, err
	}
	n := it.Availability
	return calendarEntry{UnitID: unit, Date: it.Date, UnitsAvailable: &n}, nil
}

func (a *Adapter) rateEntry(it model.RateItem) (rateEntry, error) {
	unit, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return rateEntry{}, err
	}
	return rateEntry{UnitID: unit, RatePlanID: plan, Date: it.Date, NightlyRate: it.Rate, Currency: it.Currency}, nil
}

func (a *Adapter) stayRule(it model.RestrictionItem) (stayRule, error) {
	unit, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return stayRule{}, err
	}
	return stayRule{
		UnitID:          unit,
		Date:            it.Date,
		MinNights:       it.MinStay,
		MaxNights:       it.MaxStay,
		CheckInAllowed:  !it.ClosedToArrival,
		CheckOutAllowed: !it.ClosedToDeparture,
		Blocked:         it.StopSell,
	}, nil
}

type reservationsResponse struct {
	apiResponse
	Reservations []reservation `json:"reservations"`
}

type reservation struct {
	ReservationID   string `json:"reservationId"`
	Status          string `json:"status"`
	PrimaryTraveler struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		Email       string `json:"emailAddress"`
		PhoneNumber string `json:"phoneNumber"`
	} `json:"primaryTraveler"`
	UnitID        string  `json:"unitId"`
	Adults        int     `json:"adults"`
	Children      int     `json:"children"`
	ArrivalDate   string  `json:"arrivalDate"`
	DepartureDate string  `json:"departureDate"`
	TotalAmount   float64 `json:"totalAmount"`
	PayoutAmount  float64 `json:"payoutAmount"`
	Currency      string  `json:"currency"`
	CreatedDate   string  `json:"createdDate"`
	UpdatedDate   string  `json:"lastUpdatedDate"`
}

var statuses = channels.StatusMap{
	"reserved":    model.StatusConfirmed,
	"confirmed":   model.StatusConfirmed,
	"tentative":   model.StatusPending,
	"inquiry":     model.StatusPending,
	"modified":    model.StatusModified,
	"cancelled":   model.StatusCancelled,
	"declined":    model.StatusCancelled,
	"checked_out": model.StatusCompleted,
	"no_show":     model.StatusNoShow,
}

// transform maps a Vrbo reservation. A unit is always booked whole, and the host payout is the net
// amount.
func (a *Adapter) transform(r reservation) (model.Booking, error) {
	id := r.ReservationID
	if id == "" {
		return model.Booking{}, channels.MissingField(Name, "", "reservationId")
	}
	status, err := statuses.Map(Name, id, r.Status)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, id, "arrivalDate", r.ArrivalDate)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, id, "departureDate", r.DepartureDate)
	if err != nil {
		return model.Booking{}, err
	}
	t := r.PrimaryTraveler
	return model.Booking{
		ExternalID: id,
		Guest:      model.Guest{FirstName: t.FirstName, LastName: t.LastName, Email: t.Email, Phone: t.PhoneNumber},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(r.UnitID),
			ChannelRoomID: r.UnitID,
			Quantity:      1,
			Adults:        r.Adults,
			Children:      r.Children,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(r.TotalAmount, r.PayoutAmount, 0, r.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(r.CreatedDate),
		UpdatedAt: channels.Timestamp(r.UpdatedDate),
	}, nil
}
