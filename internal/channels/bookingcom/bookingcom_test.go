package bookingcom

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelhub/internal/channels"
	"channelhub/internal/channels/channelstest"
	"channelhub/internal/model"
)

func newAdapter(t *testing.T, baseURL string, rows int) *Adapter {
	t.Helper()
	cfg := channelstest.Config(Name, baseURL)
	auth, err := NewAuthenticator(cfg)
	require.NoError(t, err)
	return New(channelstest.NewBase(cfg, auth, channelstest.Data(rows)))
}

func TestSyncInventoryBulk(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 250)

	res := a.SyncInventory(context.Background())
	assert.True(t, res.Success)
	assert.Equal(t, 250, res.Synced)
	assert.Empty(t, res.Errors)

	hits := p.Hits()
	require.Len(t, hits, 3)
	assert.Equal(t, "/hotels/hotel-42/availability", hits[0].Path)
	assert.True(t, strings.HasPrefix(hits[0].Header.Get("Authorization"), "Basic "))

	var body updateRequest
	require.NoError(t, json.Unmarshal([]byte(hits[0].Body), &body))
	assert.Equal(t, "hotel-42", body.HotelID)
	require.Len(t, body.Updates, 100)
	assert.Equal(t, "DLX", body.Updates[0].RoomID)
	assert.Equal(t, 5, *body.Updates[0].RoomsToSell)
	assert.Equal(t, 120.0, *body.Updates[0].Price)
}

func TestSyncInventoryFallbackIsolatesRejectedDay(t *testing.T) {
	bad := channelstest.Inventory(30)[14]
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, u := range req.Updates {
			if u.Date == bad.Date {
				channelstest.JSON(w, http.StatusOK, `{"errors":[{"code":"INVALID_DATE","message":"date closed for updates"}]}`)
				return
			}
		}
		channelstest.JSON(w, http.StatusOK, `{"warnings":[]}`)
	})
	a := newAdapter(t, p.URL, 30)

	res := a.SyncInventory(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, 29, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, bad, res.Errors[0].Item)
	assert.Contains(t, res.Errors[0].Cause, "INVALID_DATE")
	assert.Len(t, p.Hits(), 31)
}

func TestSyncInventoryUnreachable(t *testing.T) {
	a := newAdapter(t, channelstest.UnreachableURL, 12)
	res := a.SyncInventory(context.Background())
	assert.False(t, res.Success)
	assert.Zero(t, res.Synced)
	assert.Len(t, res.Errors, 12)
}

func TestUnmappedRoomFailsOnlyThatItem(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	cfg := channelstest.Config(Name, p.URL)
	cfg.RoomMappings = map[string]string{"DLX": "10101"}
	data := channelstest.Data(3)
	inv := channelstest.Inventory(3)
	inv[1].RoomTypeID = "STD"
	data.SetInventory(channelstest.PropertyID, inv)
	auth, _ := NewAuthenticator(cfg)
	a := New(channelstest.NewBase(cfg, auth, data))

	res := a.SyncInventory(context.Background())
	assert.Equal(t, 2, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0].Err, model.ErrUnmappedRoom)
	// one rejected batch conversion sends nothing, then two single-item calls
	assert.Len(t, p.Hits(), 2)
}

func TestSyncRestrictionsPayload(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 7)

	res := a.SyncRestrictions(context.Background())
	require.True(t, res.Success)
	hits := p.Hits()
	require.Len(t, hits, 1)
	assert.Equal(t, "/hotels/hotel-42/restrictions", hits[0].Path)

	var body updateRequest
	require.NoError(t, json.Unmarshal([]byte(hits[0].Body), &body))
	require.Len(t, body.Updates, 7)
	assert.Equal(t, 2, body.Updates[0].MinStay)
	assert.True(t, *body.Updates[5].ClosedToArrival)
	assert.False(t, *body.Updates[0].Closed)
}

func TestSyncRatesAndAvailability(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 4)

	assert.True(t, a.SyncRates(context.Background()).Success)
	assert.True(t, a.SyncAvailability(context.Background()).Success)
	assert.Equal(t, 1, p.Count("/hotels/hotel-42/rates"))

	var body updateRequest
	require.NoError(t, json.Unmarshal([]byte(p.Hits()[1].Body), &body))
	assert.Nil(t, body.Updates[0].Price)
	assert.Equal(t, 5, *body.Updates[0].RoomsToSell)
}

const reservationsFixture = `{"reservations":[
 {"reservation_id":"4001","status":"new","booker":{"first_name":"Ana","last_name":"Silva","email":"ana@example.com","telephone":"+351900000"},
  "room":{"room_id":"DLX","number_of_rooms":1,"adults":2,"children":1},"arrival_date":"2026-11-01","departure_date":"2026-11-04",
  "price":{"total":450.5,"commission":67.58,"currency":"eur"},"created_at":"2026-10-01T10:00:00Z","modified_at":"2026-10-02T09:00:00Z"},
 {"reservation_id":"4002","status":"cancelled","booker":{"first_name":"Bo","last_name":"Lee","email":""},
  "room":{"room_id":"DLX","adults":1},"arrival_date":"2026-11-05","departure_date":"2026-11-06","price":{"total":100,"currency":"EUR"}},
 {"reservation_id":"4003","status":"no_show","booker":{"first_name":"Cy","last_name":"Ng","email":"cy@example.com"},
  "room":{"room_id":"DLX","adults":1},"arrival_date":"2026-11-07","departure_date":"2026-11-08","price":{"total":100,"commission":15,"currency":"EUR"}}
]}`

func TestGetBookings(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		channelstest.JSON(w, http.StatusOK, reservationsFixture)
	})
	a := newAdapter(t, p.URL, 0)

	batch, err := a.GetBookings(context.Background(), model.BookingQuery{From: "2026-11-01", To: "2026-11-30"})
	require.NoError(t, err)
	require.Len(t, batch.Bookings, 2)
	require.Len(t, batch.Rejected, 1)
	assert.Equal(t, "4002", batch.Rejected[0].ExternalID)
	assert.Contains(t, batch.Rejected[0].Reason, "guest.email")

	b := batch.Bookings[0]
	assert.Equal(t, Name, b.Channel)
	assert.Equal(t, channelstest.PropertyID, b.PropertyID)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, model.Amount{Gross: 450.5, Net: 382.92, Commission: 67.58, Currency: "EUR"}, b.Amount)
	assert.Equal(t, 3, b.Nights())
	assert.Equal(t, model.StatusNoShow, batch.Bookings[1].Status)

	assert.Equal(t, "arrival_from=2026-11-01&arrival_to=2026-11-30", p.Hits()[0].Query)
}

func TestTransformIsDeterministic(t *testing.T) {
	var resp reservationsResponse
	require.NoError(t, json.Unmarshal([]byte(reservationsFixture), &resp))
	a := newAdapter(t, "http://partner.test", 0)

	first, err := a.transform(resp.Reservations[0])
	require.NoError(t, err)
	second, err := a.transform(resp.Reservations[0])
	require.NoError(t, err)

	x, _ := json.Marshal(first)
	y, _ := json.Marshal(second)
	assert.Equal(t, string(x), string(y))
}

func TestLifecycleCalls(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	cfg := channelstest.Config(Name, p.URL)
	cfg.RoomMappings = map[string]string{"DLX": "10101"}
	auth, _ := NewAuthenticator(cfg)
	a := New(channelstest.NewBase(cfg, auth, channelstest.Data(0)))
	ctx := context.Background()

	require.NoError(t, a.ConfirmBooking(ctx, "4001"))
	require.NoError(t, a.CancelBooking(ctx, "4001", "guest request"))
	room, checkOut := "DLX", "2026-11-05"
	require.NoError(t, a.ModifyBooking(ctx, "4001", model.BookingChanges{RoomTypeID: &room, CheckOut: &checkOut}))
	assert.ErrorIs(t, a.ModifyBooking(ctx, "4001", model.BookingChanges{}), channels.ErrNoChanges)

	hits := p.Hits()
	require.Len(t, hits, 3)
	assert.Equal(t, "/hotels/hotel-42/reservations/4001/acknowledge", hits[0].Path)
	assert.Equal(t, "/hotels/hotel-42/reservations/4001/cancel", hits[1].Path)
	assert.JSONEq(t, `{"reason":"guest request"}`, hits[1].Body)
	assert.Equal(t, http.MethodPatch, hits[2].Method)
	assert.JSONEq(t, `{"departure_date":"2026-11-05","room_id":"10101"}`, hits[2].Body)
}

func TestLifecycleRejected(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		channelstest.JSON(w, http.StatusOK, `{"errors":[{"code":"ALREADY_CANCELLED","message":"reservation is cancelled"}]}`)
	})
	a := newAdapter(t, p.URL, 0)
	err := a.ConfirmBooking(context.Background(), "4001")
	var te *channels.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "ALREADY_CANCELLED")
}

func TestNewAuthenticatorRequiresCredentials(t *testing.T) {
	cfg := channelstest.Config(Name, DefaultBaseURL)
	cfg.Credentials.Password = ""
	_, err := NewAuthenticator(cfg)
	assert.ErrorIs(t, err, channels.ErrMissingCredentials)
}

func TestConnectionStatusProbe(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 0)
	st := a.ConnectionStatus(context.Background())
	assert.True(t, st.Connected)
	assert.Equal(t, 1, p.Count("/hotels/hotel-42/status"))
}
