package hotelbeds

import (
	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type line struct {
	RoomCode  string   `json:"roomCode"`
	RateCode  string   `json:"rateCode,omitempty"`
	Date      string   `json:"date"`
	Allotment *int     `json:"allotment,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Currency  string   `json:"currency,omitempty"`
}

type updateRequest struct {
	HotelCode string `json:"hotelCode"`
	Lines     []line `json:"lines"`
}

type response struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r response) err(op string) error {
	if r.Error == nil {
		return nil
	}
	return channels.Rejected(Name, op, r.Error.Code+": "+r.Error.Message)
}

type modification struct {
	CheckIn  *string  `json:"checkIn,omitempty"`
	CheckOut *string  `json:"checkOut,omitempty"`
	RoomCode *string  `json:"roomCode,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
	Adults   *int     `json:"adults,omitempty"`
	Children *int     `json:"children,omitempty"`
	Selling  *float64 `json:"totalSellingRate,omitempty"`
	Remark   string   `json:"remark,omitempty"`
}

func (a *Adapter) inventoryLine(it model.InventoryItem) (line, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return line{}, err
	}
	n, price := max(it.Availability, 0), it.Rate
	return line{RoomCode: room, RateCode: plan, Date: it.Date, Allotment: &n, Price: &price, Currency: it.Currency}, nil
}

func (a *Adapter) priceLine(it model.RateItem) (line, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return line{}, err
	}
	price := it.Rate
	return line{RoomCode: room, RateCode: plan, Date: it.Date, Price: &price, Currency: it.Currency}, nil
}

func (a *Adapter) allotmentLine(it model.AvailabilityItem) (line, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return line{}, err
	}
	n := it.Availability
	return line{RoomCode: room, Date: it.Date, Allotment: &n}, nil
}

type bookingsResponse struct {
	response
	Bookings []booking `json:"bookings"`
}

type booking struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Holder    struct {
		Name    string `json:"name"`
		Surname string `json:"surname"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
	} `json:"holder"`
	Room struct {
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
		Paxes    struct {
			Adults   int `json:"adults"`
			Children int `json:"children"`
		} `json:"paxes"`
	} `json:"room"`
	CheckIn          string  `json:"checkIn"`
	CheckOut         string  `json:"checkOut"`
	TotalSellingRate float64 `json:"totalSellingRate"`
	TotalNet         float64 `json:"totalNet"`
	Currency         string  `json:"currency"`
	CreationDate     string  `json:"creationDate"`
	UpdateDate       string  `json:"updateDate"`
}

var statuses = channels.StatusMap{
	"confirmed":  model.StatusConfirmed,
	"pending":    model.StatusPending,
	"on_request": model.StatusPending,
	"modified":   model.StatusModified,
	"cancelled":  model.StatusCancelled,
	"completed":  model.StatusCompleted,
	"no_show":    model.StatusNoShow,
}

// transform maps a Hotelbeds booking. Hotelbeds reports selling and net rates; the commission is the
// difference.
func (a *Adapter) transform(b booking) (model.Booking, error) {
	if b.Reference == "" {
		return model.Booking{}, channels.MissingField(Name, "", "reference")
	}
	status, err := statuses.Map(Name, b.Reference, b.Status)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, b.Reference, "checkIn", b.CheckIn)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, b.Reference, "checkOut", b.CheckOut)
	if err != nil {
		return model.Booking{}, err
	}
	return model.Booking{
		ExternalID: b.Reference,
		Guest:      model.Guest{FirstName: b.Holder.Name, LastName: b.Holder.Surname, Email: b.Holder.Email, Phone: b.Holder.Phone},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(b.Room.Code),
			ChannelRoomID: b.Room.Code,
			Quantity:      max(b.Room.Quantity, 1),
			Adults:        b.Room.Paxes.Adults,
			Children:      b.Room.Paxes.Children,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(b.TotalSellingRate, b.TotalNet, 0, b.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(b.CreationDate),
		UpdatedAt: channels.Timestamp(b.UpdateDate),
	}, nil
}
