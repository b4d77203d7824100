package airbnb

import (
	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type operation struct {
	Dates             []string `json:"dates"`
	Availability      string   `json:"availability,omitempty"`
	AvailableCount    *int     `json:"available_count,omitempty"`
	DailyPrice        *float64 `json:"daily_price,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	MinNights         int      `json:"min_nights,omitempty"`
	MaxNights         int      `json:"max_nights,omitempty"`
	ClosedToArrival   *bool    `json:"closed_to_arrival,omitempty"`
	ClosedToDeparture *bool    `json:"closed_to_departure,omitempty"`
}

type calendarRequest struct {
	ListingID  string      `json:"listing_id"`
	Operations []operation `json:"operations"`
}

type apiResponse struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (r apiResponse) err(op string) error {
	if r.Error == "" {
		return nil
	}
	return channels.Rejected(Name, op, r.Error+": "+r.ErrorMessage)
}

type cancellation struct {
	CancelReason string `json:"cancel_reason,omitempty"`
}

type alteration struct {
	ListingID        *string  `json:"listing_id,omitempty"`
	StartDate        *string  `json:"start_date,omitempty"`
	EndDate          *string  `json:"end_date,omitempty"`
	NumberOfAdults   *int     `json:"number_of_adults,omitempty"`
	NumberOfChildren *int     `json:"number_of_children,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	Message          string   `json:"message,omitempty"`
}

type reservationsResponse struct {
	apiResponse
	Reservations []reservation `json:"reservations"`
}

type reservation struct {
	ConfirmationCode string `json:"confirmation_code"`
	Status           string `json:"status"`
	ListingID        string `json:"listing_id"`
	Guest            struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"guest"`
	GuestDetails struct {
		NumberOfAdults   int `json:"number_of_adults"`
		NumberOfChildren int `json:"number_of_children"`
	} `json:"guest_details"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Total     float64 `json:"total_price"`
	HostFee   float64 `json:"host_fee"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

var statuses = channels.StatusMap{
	"accepted":           model.StatusConfirmed,
	"pending":            model.StatusPending,
	"inquiry":            model.StatusPending,
	"awaiting_payment":   model.StatusPending,
	"altered":            model.StatusModified,
	"denied":             model.StatusCancelled,
	"cancelled":          model.StatusCancelled,
	"cancelled_by_guest": model.StatusCancelled,
	"cancelled_by_host":  model.StatusCancelled,
	"checked_out":        model.StatusCompleted,
	"completed":          model.StatusCompleted,
	"no_show":            model.StatusNoShow,
}

// transform maps one Airbnb reservation. Airbnb books whole listings, so quantity is always one and
// host_fee is the commission.
func (a *Adapter) transform(r reservation) (model.Booking, error) {
	id := r.ConfirmationCode
	if id == "" {
		return model.Booking{}, channels.MissingField(Name, "", "confirmation_code")
	}
	status, err := statuses.Map(Name, id, r.Status)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, id, "start_date", r.StartDate)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, id, "end_date", r.EndDate)
	if err != nil {
		return model.Booking{}, err
	}
	return model.Booking{
		ExternalID: id,
		Guest:      model.Guest{FirstName: r.Guest.FirstName, LastName: r.Guest.LastName, Email: r.Guest.Email, Phone: r.Guest.Phone},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(r.ListingID),
			ChannelRoomID: r.ListingID,
			Quantity:      1,
			Adults:        r.GuestDetails.NumberOfAdults,
			Children:      r.GuestDetails.NumberOfChildren,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(r.Total, 0, r.HostFee, r.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(r.CreatedAt),
		UpdatedAt: channels.Timestamp(r.UpdatedAt),
	}, nil
}
