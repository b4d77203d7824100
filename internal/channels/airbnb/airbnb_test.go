package airbnb

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelhub/internal/channels"
	"channelhub/internal/channels/channelstest"
	"channelhub/internal/model"
)

func newAdapter(t *testing.T, baseURL string, rows int, mappings map[string]string) *Adapter {
	t.Helper()
	cfg := channelstest.Config(Name, baseURL)
	cfg.RoomMappings = mappings
	auth, err := NewAuthenticator(cfg)
	require.NoError(t, err)
	return New(channelstest.NewBase(cfg, auth, channelstest.Data(rows)))
}

func TestSyncInventoryGroupsByListing(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	data := channelstest.Data(0)
	inv := channelstest.Inventory(6)
	for i := range inv[3:] {
		inv[3+i].RoomTypeID = "STD"
	}
	inv[0].Availability = 0
	data.SetInventory(channelstest.PropertyID, inv)
	cfg := channelstest.Config(Name, p.URL)
	cfg.RoomMappings = map[string]string{"DLX": "L-100", "STD": "L-200"}
	a := New(channelstest.NewBase(cfg, channels.BearerAuth{Token: "tok"}, data))

	res := a.SyncInventory(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, 6, res.Synced)

	hits := p.Hits()
	require.Len(t, hits, 2)
	assert.Equal(t, "Bearer tok", hits[0].Header.Get("Authorization"))
	var first calendarRequest
	require.NoError(t, json.Unmarshal([]byte(hits[0].Body), &first))
	assert.Equal(t, "L-100", first.ListingID)
	require.Len(t, first.Operations, 3)
	assert.Equal(t, "unavailable", first.Operations[0].Availability)
	assert.Equal(t, "available", first.Operations[1].Availability)
}

func TestSyncInventoryChunksAt50(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 120, nil)
	res := a.SyncInventory(context.Background())
	assert.True(t, res.Success)
	assert.Equal(t, 120, res.Synced)
	assert.Len(t, p.Hits(), 3)
}

func TestSyncRestrictionsStopSellBlocksDate(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	data := channelstest.Data(0)
	r := channelstest.Restrictions(2)
	r[1].StopSell = true
	data.SetRestrictions(channelstest.PropertyID, r)
	a := New(channelstest.NewBase(channelstest.Config(Name, p.URL), channels.BearerAuth{Token: "tok"}, data))

	require.True(t, a.SyncRestrictions(context.Background()).Success)
	var body calendarRequest
	require.NoError(t, json.Unmarshal([]byte(p.Hits()[0].Body), &body))
	assert.Equal(t, 2, body.Operations[0].MinNights)
	assert.Equal(t, 14, body.Operations[0].MaxNights)
	assert.Empty(t, body.Operations[0].Availability)
	assert.Equal(t, "unavailable", body.Operations[1].Availability)
}

func TestErrorBodyTriggersFallback(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		var body calendarRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Operations) > 1 {
			channelstest.JSON(w, http.StatusOK, `{"error":"invalid_request","error_message":"too many operations"}`)
			return
		}
		channelstest.JSON(w, http.StatusOK, `{}`)
	})
	a := newAdapter(t, p.URL, 3, nil)

	res := a.SyncRates(context.Background())
	assert.True(t, res.Success)
	assert.Len(t, p.Hits(), 4)
}

func TestSyncAvailabilityUnreachable(t *testing.T) {
	a := newAdapter(t, channelstest.UnreachableURL, 5, nil)
	res := a.SyncAvailability(context.Background())
	assert.False(t, res.Success)
	assert.Len(t, res.Errors, 5)
}

const fixture = `{"reservations":[
 {"confirmation_code":"HMABC","status":"accepted","listing_id":"L-100",
  "guest":{"first_name":"Ana","last_name":"Silva","email":"ana@example.com","phone":"+351900000"},
  "guest_details":{"number_of_adults":2,"number_of_children":1},"start_date":"2026-11-01","end_date":"2026-11-04",
  "total_price":450.5,"host_fee":67.58,"currency":"EUR","created_at":"2026-10-01T10:00:00Z","updated_at":"2026-10-02T09:00:00Z"},
 {"confirmation_code":"HMDEF","status":"accepted","listing_id":"L-100","guest":{"first_name":"Bo"},
  "guest_details":{"number_of_adults":1},"start_date":"2026-11-08","end_date":"2026-11-09","total_price":100,"currency":"EUR"}
]}`

func TestGetBookingsMapsListingBack(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		channelstest.JSON(w, http.StatusOK, fixture)
	})
	a := newAdapter(t, p.URL, 0, map[string]string{"DLX": "L-100"})

	batch, err := a.GetBookings(context.Background(), model.BookingQuery{})
	require.NoError(t, err)
	require.Len(t, batch.Bookings, 1)
	b := batch.Bookings[0]
	assert.Equal(t, "DLX", b.Room.RoomTypeID)
	assert.Equal(t, "L-100", b.Room.ChannelRoomID)
	assert.Equal(t, 1, b.Room.Quantity)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	require.Len(t, batch.Rejected, 1)
	assert.Equal(t, "HMDEF", batch.Rejected[0].ExternalID)
	assert.Equal(t, "host_id=hotel-42", p.Hits()[0].Query)
}

func TestTransformIsDeterministic(t *testing.T) {
	var resp reservationsResponse
	require.NoError(t, json.Unmarshal([]byte(fixture), &resp))
	a := newAdapter(t, "http://partner.test", 0, nil)
	x, err := a.transform(resp.Reservations[0])
	require.NoError(t, err)
	y, _ := a.transform(resp.Reservations[0])
	bx, _ := json.Marshal(x)
	by, _ := json.Marshal(y)
	assert.Equal(t, string(bx), string(by))
}

func TestLifecycle(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 0, map[string]string{"DLX": "L-100"})
	ctx := context.Background()
	start := "2026-11-02"

	require.NoError(t, a.ConfirmBooking(ctx, "HMABC"))
	require.NoError(t, a.CancelBooking(ctx, "HMABC", "host unavailable"))
	require.NoError(t, a.ModifyBooking(ctx, "HMABC", model.BookingChanges{CheckIn: &start}))
	room := "PENTHOUSE"
	assert.ErrorIs(t, a.ModifyBooking(ctx, "HMABC", model.BookingChanges{RoomTypeID: &room}), model.ErrUnmappedRoom)

	hits := p.Hits()
	require.Len(t, hits, 3)
	assert.Equal(t, "/reservations/HMABC/accept", hits[0].Path)
	assert.JSONEq(t, `{"cancel_reason":"host unavailable"}`, hits[1].Body)
	assert.Equal(t, "/reservations/HMABC/alterations", hits[2].Path)
	assert.JSONEq(t, `{"start_date":"2026-11-02"}`, hits[2].Body)
}
