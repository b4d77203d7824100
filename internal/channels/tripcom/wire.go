package tripcom

import (
	"strings"

	"channelhub/internal/channels"
	"channelhub/internal/model"
)

type hotelRef struct {
	HotelCode string `json:"HotelCode"`
}

type row struct {
	RoomCode          string   `json:"RoomCode"`
	RatePlanCode      string   `json:"RatePlanCode,omitempty"`
	Date              string   `json:"Date"`
	Allotment         *int     `json:"Allotment,omitempty"`
	Price             *float64 `json:"Price,omitempty"`
	Currency          string   `json:"Currency,omitempty"`
	MinLOS            int      `json:"MinLOS,omitempty"`
	MaxLOS            int      `json:"MaxLOS,omitempty"`
	ClosedToArrival   *bool    `json:"CTA,omitempty"`
	ClosedToDeparture *bool    `json:"CTD,omitempty"`
	StopSell          *bool    `json:"StopSell,omitempty"`
}

type updateRequest struct {
	HotelCode string `json:"HotelCode"`
	Rows      []row  `json:"Rows"`
}

type responseStatus struct {
	Ack    string `json:"Ack"`
	Errors []struct {
		ErrorCode string `json:"ErrorCode"`
		Message   string `json:"Message"`
	} `json:"Errors"`
}

func (s responseStatus) err(op string) error {
	if !strings.EqualFold(s.Ack, "Failure") {
		return nil
	}
	msgs := make([]string, 0, len(s.Errors))
	for _, e := range s.Errors {
		msgs = append(msgs, e.ErrorCode+": "+e.Message)
	}
	return channels.Rejected(Name, op, msgs...)
}

type envelope struct {
	ResponseStatus responseStatus `json:"ResponseStatus"`
}

func (e *envelope) status() responseStatus { return e.ResponseStatus }

type statusCarrier interface {
	status() responseStatus
}

type orderSearch struct {
	HotelCode   string `json:"HotelCode"`
	CheckInFrom string `json:"CheckInFrom,omitempty"`
	CheckInTo   string `json:"CheckInTo,omitempty"`
}

type orderAction struct {
	HotelCode string `json:"HotelCode"`
	OrderID   string `json:"OrderID"`
	Reason    string `json:"Reason,omitempty"`
}

type orderModify struct {
	HotelCode    string   `json:"HotelCode"`
	OrderID      string   `json:"OrderID"`
	CheckIn      *string  `json:"CheckIn,omitempty"`
	CheckOut     *string  `json:"CheckOut,omitempty"`
	RoomCode     *string  `json:"RoomCode,omitempty"`
	RoomQuantity *int     `json:"RoomQuantity,omitempty"`
	AdultCount   *int     `json:"AdultCount,omitempty"`
	ChildCount   *int     `json:"ChildCount,omitempty"`
	TotalAmount  *float64 `json:"TotalAmount,omitempty"`
	Remark       string   `json:"Remark,omitempty"`
}

func (a *Adapter) inventoryRow(it model.InventoryItem) (row, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return row{}, err
	}
	n, price := max(it.Availability, 0), it.Rate
	return row{RoomCode: room, RatePlanCode: plan, Date: it.Date, Allotment: &n, Price: &price, Currency: it.Currency}, nil
}

func (a *Adapter) rateRow(it model.RateItem) (row, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return row{}, err
	}
	price := it.Rate
	return row{RoomCode: room, RatePlanCode: plan, Date: it.Date, Price: &price, Currency: it.Currency}, nil
}

func (a *Adapter) allotmentRow(it model.AvailabilityItem) (row, error) {
	room, _, err := a.RoomIDs(it.RoomTypeID, "")
	if err != nil {
		return row{}, err
	}
	n := it.Availability
	return row{RoomCode: room, Date: it.Date, Allotment: &n}, nil
}

func (a *Adapter) restrictionRow(it model.RestrictionItem) (row, error) {
	room, plan, err := a.RoomIDs(it.RoomTypeID, it.RatePlanID)
	if err != nil {
		return row{}, err
	}
	cta, ctd, stop := it.ClosedToArrival, it.ClosedToDeparture, it.StopSell
	return row{
		RoomCode:          room,
		RatePlanCode:      plan,
		Date:              it.Date,
		MinLOS:            it.MinStay,
		MaxLOS:            it.MaxStay,
		ClosedToArrival:   &cta,
		ClosedToDeparture: &ctd,
		StopSell:          &stop,
	}, nil
}

type ordersResponse struct {
	envelope
	Orders []order `json:"Orders"`
}

type order struct {
	OrderID     string `json:"OrderID"`
	OrderStatus string `json:"OrderStatus"`
	Guest       struct {
		FirstName string `json:"FirstName"`
		LastName  string `json:"LastName"`
		Email     string `json:"Email"`
		Phone     string `json:"Phone"`
	} `json:"Guest"`
	RoomCode     string  `json:"RoomCode"`
	RoomQuantity int     `json:"RoomQuantity"`
	AdultCount   int     `json:"AdultCount"`
	ChildCount   int     `json:"ChildCount"`
	CheckIn      string  `json:"CheckIn"`
	CheckOut     string  `json:"CheckOut"`
	TotalAmount  float64 `json:"TotalAmount"`
	Commission   float64 `json:"Commission"`
	Currency     string  `json:"Currency"`
	CreateTime   string  `json:"CreateTime"`
	UpdateTime   string  `json:"UpdateTime"`
}

var statuses = channels.StatusMap{
	"confirmed": model.StatusConfirmed,
	"new":       model.StatusPending,
	"pending":   model.StatusPending,
	"modified":  model.StatusModified,
	"cancelled": model.StatusCancelled,
	"canceled":  model.StatusCancelled,
	"checkout":  model.StatusCompleted,
	"completed": model.StatusCompleted,
	"noshow":    model.StatusNoShow,
	"no_show":   model.StatusNoShow,
}

func (a *Adapter) transform(o order) (model.Booking, error) {
	id := o.OrderID
	if id == "" {
		return model.Booking{}, channels.MissingField(Name, "", "OrderID")
	}
	status, err := statuses.Map(Name, id, o.OrderStatus)
	if err != nil {
		return model.Booking{}, err
	}
	checkIn, err := channels.Date(Name, id, "CheckIn", o.CheckIn)
	if err != nil {
		return model.Booking{}, err
	}
	checkOut, err := channels.Date(Name, id, "CheckOut", o.CheckOut)
	if err != nil {
		return model.Booking{}, err
	}
	return model.Booking{
		ExternalID: id,
		Guest:      model.Guest{FirstName: o.Guest.FirstName, LastName: o.Guest.LastName, Email: o.Guest.Email, Phone: o.Guest.Phone},
		Room: model.RoomDetails{
			RoomTypeID:    a.Config.LocalRoomID(o.RoomCode),
			ChannelRoomID: o.RoomCode,
			Quantity:      max(o.RoomQuantity, 1),
			Adults:        o.AdultCount,
			Children:      o.ChildCount,
		},
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Amount:    model.NewAmount(o.TotalAmount, 0, o.Commission, o.Currency),
		Status:    status,
		CreatedAt: channels.Timestamp(o.CreateTime),
		UpdatedAt: channels.Timestamp(o.UpdateTime),
	}, nil
}
