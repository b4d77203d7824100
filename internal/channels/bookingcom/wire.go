package bookingcom

import (
	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type update struct {
	RoomID            string   `json:"room_id"`
	RatePlanID        string   `json:"rate_plan_id,omitempty"`
	Date              string   `json:"date"`
	RoomsToSell       *int     `json:"rooms_to_sell,omitempty"`
	Price             *float64 `json:"price,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	MinStay           int      `json:"min_stay_arrival,omitempty"`
	MaxStay           int      `json:"max_stay,omitempty"`
	ClosedToArrival   *bool    `json:"closed_onarrival,omitempty"`
	ClosedToDeparture *bool    `json:"closed_ondeparture,omitempty"`
	Closed            *bool    `json:"closed,omitempty"`
}

type updateRequest struct {
	HotelID string   `json:"hotel_id"`
	Updates []update `json:"updates"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Errors   []apiError `json:"errors"`
	Warnings []apiError `json:"warnings"`
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
	ArrivalDate   *string  `json:"arrival_date,omitempty"`
	DepartureDate *string  `json:"departure_date,omitempty"`
	RoomID        *string  `json:"room_id,omitempty"`
	NumberOfRooms *int     `json:"number_of_rooms,omitempty"`
	Adults        *int     `json:"adults,omitempty"`
	Children      *int     `json:"children,omitempty"`
	TotalPrice    *float64 `json:"total_price,omitempty"`
	Remarks       string   `json:"remarks,omitempty"`
}

func (a *Adapter) inventoryUpdate(it model.InventoryItem) (update, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return update{}, err
	}
	count, price := max(it.Availability, 0), it.Rate
	return update{RoomID: room, RatePlanID: plan, Date: it.Date, RoomsToSell: &count, Price: &price, Currency: it.Currency}, nil
}

func (a *Adapter) rateUpdate(it model.RateItem) (update, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return update{}, err
	}
	price := it.Rate
	return update{RoomID: room, RatePlanID: plan, Date: it.Date, Price: &price, Currency: it.Currency}, nil
}

func (a *Adapter) availabilityUpdate(it model.AvailabilityItem) (update, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return update{}, err
	}
	count := it.Availability
	return update{RoomID: room, Date: it.Date, RoomsToSell: &count}, nil
}

func (a *Adapter) restrictionUpdate(it model.RestrictionItem) (update, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return update{}, err
	}
	cta, ctd, closed := it.ClosedToArrival, it.ClosedToDeparture, it.StopSell
	return update{
		RoomID: room, RatePlanID: plan, Date: it.Date,
		MinStay: it.MinStay, MaxStay: it.MaxStay,
		ClosedToArrival: &cta, ClosedToDeparture: &ctd, Closed: &closed,
	}, nil
}

type reservationsResponse struct {
	apiResponse
	Reservations []reservation `json:"reservations"`
}

type reservation struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	Booker        struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Telephone string `json:"telephone"`
	} `json:"booker"`
	Room struct {
		RoomID        string `json:"room_id"`
		NumberOfRooms int    `json:"number_of_rooms"`
		Adults        int    `json:"adults"`
		Children      int    `json:"children"`
	} `json:"room"`
	ArrivalDate   string `json:"arrival_date"`
	DepartureDate string `json:"departure_date"`
	Price         struct {
		Total      float64 `json:"total"`
		Commission float64 `json:"commission"`
		Currency   string  `json:"currency"`
	} `json:"price"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
}

var statuses = channels.StatusMap{
	"new":       model.StatusConfirmed,
	"confirmed": model.StatusConfirmed,
	"pending":   model.StatusPending,
	"modified":  model.StatusModified,
	"cancelled": model.StatusCancelled,
	"canceled":  model.StatusCancelled,
	"no_show":   model.StatusNoShow,
	"completed": model.StatusCompleted,
	"stayed":    model.StatusCompleted,
}

// transform is the only place Booking.com reservation field names are known.
func (a *Adapter) transform(r reservation) (model.Booking, error) {
	if r.ReservationID == "" {
		return model.Booking{}, channels.MissingField(Name, "", "reservation_id")
	}
	status, err := statuses.Map(Name, r.ReservationID, r.Status)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, r.ReservationID, "arrival_date", r.ArrivalDate)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, r.ReservationID, "departure_date", r.DepartureDate)
	if err != nil {
		return model.Booking{}, err
	}
	return model.Booking{
		ExternalID: r.ReservationID,
		Guest: model.Guest{
			FirstName: r.Booker.FirstName,
			LastName:  r.Booker.LastName,
			Email:     r.Booker.Email,
			Phone:     r.Booker.Telephone,
		},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(r.Room.RoomID),
			ChannelRoomID: r.Room.RoomID,
			Quantity:      max(r.Room.NumberOfRooms, 1),
			Adults:        r.Room.Adults,
			Children:      r.Room.Children,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(r.Price.Total, 0, r.Price.Commission, r.Price.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(r.CreatedAt),
		UpdatedAt: channels.Timestamp(r.ModifiedAt),
	}, nil
}
