package tripadvisor

import (
	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

type availabilityDay struct {
	Available *int   `json:"available,omitempty"`
	Price     *price `json:"price,omitempty"`
}

type rateDay struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	RatePlan string  `json:"ratePlan,omitempty"`
}

type cancellation struct {
	Reason string `json:"reason,omitempty"`
}

type modification struct {
	CheckIn    *string `json:"check_in,omitempty"`
	CheckOut   *string `json:"check_out,omitempty"`
	RoomID     *string `json:"room_id,omitempty"`
	Rooms      *int    `json:"rooms,omitempty"`
	Adults     *int    `json:"adults,omitempty"`
	Children   *int    `json:"children,omitempty"`
	TotalPrice *price  `json:"total_price,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

type reservationsResponse struct {
	Reservations []reservation `json:"reservations"`
}

type reservation struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	Customer      struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
	} `json:"customer"`
	RoomID     string `json:"room_id"`
	Rooms      int    `json:"rooms"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	TotalPrice price  `json:"total_price"`
	Commission price  `json:"commission"`
	Created    string `json:"created"`
	Modified   string `json:"modified"`
}

var statuses = channels.StatusMap{
	"booked":    model.StatusConfirmed,
	"confirmed": model.StatusConfirmed,
	"pending":   model.StatusPending,
	"modified":  model.StatusModified,
	"cancelled": model.StatusCancelled,
	"completed": model.StatusCompleted,
	"noshow":    model.StatusNoShow,
	"no_show":   model.StatusNoShow,
}

func (a *Adapter) transform(r reservation) (model.Booking, error) {
	id := r.ReservationID
	if id == "" {
		return model.Booking{}, channels.MissingField(Name, "", "reservation_id")
	}
	status, err := statuses.Map(Name, id, r.Status)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, id, "check_in", r.CheckIn)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, id, "check_out", r.CheckOut)
	if err != nil {
		return model.Booking{}, err
	}
	c := r.Customer
	return model.Booking{
		ExternalID: id,
		Guest:      model.Guest{FirstName: c.FirstName, LastName: c.LastName, Email: c.Email, Phone: c.PhoneNumber},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(r.RoomID),
			ChannelRoomID: r.RoomID,
			Quantity:      max(r.Rooms, 1),
			Adults:        r.Adults,
			Children:      r.Children,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(r.TotalPrice.Amount, 0, r.Commission.Amount, r.TotalPrice.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(r.Created),
		UpdatedAt: channels.Timestamp(r.Modified),
	}, nil
}
