package hostelworld

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

func newAdapter(t *testing.T, baseURL string, rows int) *Adapter {
	t.Helper()
	cfg := channelstest.Config(Name, baseURL)
	auth, err := NewAuthenticator(cfg)
	require.NoError(t, err)
	return New(channelstest.NewBase(cfg, auth, channelstest.Data(rows)))
}

func TestSyncInventoryPerDay(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 8)

	res := a.SyncInventory(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, 8, res.Synced)
	assert.Equal(t, 8, p.Count("/properties/hotel-42/availability"))

	auth := channels.BasicAuth{Username: "partner-1", Password: "key-123"}
	for _, h := range p.Hits() {
		assert.Equal(t, http.MethodPut, h.Method)
		assert.Equal(t, "Basic "+auth.Encoded(), h.Header.Get("Authorization"))
	}
}

func TestPricesAreDecimalStrings(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 1)

	require.True(t, a.SyncRates(context.Background()).Success)
	h := p.Hits()[0]
	assert.Equal(t, "/properties/hotel-42/prices", h.Path)
	assert.JSONEq(t, `{"roomTypeId":"DLX","date":"2026-11-01","price":"120.00","currency":"EUR"}`, h.Body)
}

func TestOneDayRejected(t *testing.T) {
	bad := channelstest.Inventory(30)[14].Date
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		var d day
		_ = json.NewDecoder(r.Body).Decode(&d)
		if d.Date == bad {
			channelstest.JSON(w, http.StatusUnprocessableEntity, `{"error":"beds exceed capacity"}`)
			return
		}
		channelstest.JSON(w, http.StatusOK, `{}`)
	})
	a := newAdapter(t, p.URL, 30)

	res := a.SyncAvailability(context.Background())
	assert.Equal(t, 29, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, bad, res.Errors[0].Item.(model.AvailabilityItem).Date)
	var te *channels.TransportError
	require.ErrorAs(t, res.Errors[0].Err, &te)
	assert.Equal(t, http.StatusUnprocessableEntity, te.Status)
}

func TestUnreachable(t *testing.T) {
	a := newAdapter(t, channelstest.UnreachableURL, 5)
	res := a.SyncInventory(context.Background())
	assert.False(t, res.Success)
	assert.Len(t, res.Errors, 5)
}

const fixture = `{"bookings":[
 {"booking_ref":"HW-99812","status":"Confirmed","guest_name":"Ana Maria Silva","guest_email":"ana@example.com",
  "room_type_id":"DLX","beds":3,"guests":3,"arrival":"2026-11-01","departure":"2026-11-04",
  "total":"135.00","deposit":"20.25","currency":"EUR","booked_at":"2026-10-01T10:00:00Z"},
 {"booking_ref":"HW-99813","status":"Confirmed","guest_name":"Bo","guest_email":"bo@example.com",
  "room_type_id":"DLX","beds":1,"guests":1,"arrival":"2026-11-01","departure":"2026-11-02",
  "total":"twelve","currency":"EUR"}
]}`

func TestGetBookings(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		channelstest.JSON(w, http.StatusOK, fixture)
	})
	a := newAdapter(t, p.URL, 0)

	batch, err := a.GetBookings(context.Background(), model.BookingQuery{From: "2026-11-01", To: "2026-11-30"})
	require.NoError(t, err)
	require.Len(t, batch.Bookings, 1)
	b := batch.Bookings[0]
	assert.Equal(t, model.Guest{FirstName: "Ana Maria", LastName: "Silva", Email: "ana@example.com"}, b.Guest)
	assert.Equal(t, 3, b.Room.Quantity)
	assert.Equal(t, model.Amount{Gross: 135, Net: 114.75, Commission: 20.25, Currency: "EUR"}, b.Amount)
	require.Len(t, batch.Rejected, 1)
	assert.Contains(t, batch.Rejected[0].Reason, "total: not an amount: twelve")
	assert.Equal(t, "arrival_from=2026-11-01&arrival_to=2026-11-30", p.Hits()[0].Query)
}

func TestTransformIsDeterministic(t *testing.T) {
	var resp bookingsResponse
	require.NoError(t, json.Unmarshal([]byte(fixture), &resp))
	a := newAdapter(t, "http://partner.test", 0)
	x, err := a.transform(resp.Bookings[0])
	require.NoError(t, err)
	y, _ := a.transform(resp.Bookings[0])
	bx, _ := json.Marshal(x)
	by, _ := json.Marshal(y)
	assert.Equal(t, string(bx), string(by))
}

func TestLifecycle(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 0)
	ctx := context.Background()
	adults, children, gross := 2, 1, 99.5

	require.NoError(t, a.ConfirmBooking(ctx, "HW-99812"))
	require.NoError(t, a.CancelBooking(ctx, "HW-99812", "no show"))
	require.NoError(t, a.ModifyBooking(ctx, "HW-99812", model.BookingChanges{Adults: &adults, Children: &children, Gross: &gross}))

	hits := p.Hits()
	require.Len(t, hits, 3)
	assert.Equal(t, "/bookings/HW-99812/confirm", hits[0].Path)
	assert.Equal(t, "/bookings/HW-99812/cancel", hits[1].Path)
	assert.Equal(t, http.MethodPatch, hits[2].Method)
	assert.JSONEq(t, `{"guests":3,"total":"99.50"}`, hits[2].Body)
}
