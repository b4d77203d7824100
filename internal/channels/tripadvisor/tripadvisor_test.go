package tripadvisor

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestSyncInventoryOneCallPerDay(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 10)

	res := a.SyncInventory(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, 10, res.Synced)
	assert.Equal(t, 10, p.Count("/properties/hotel-42/rooms/DLX/availability/"))

	for _, h := range p.Hits() {
		assert.Equal(t, http.MethodPut, h.Method)
		assert.Equal(t, "key-123", h.Header.Get("X-TripAdvisor-API-Key"))
	}
}

func TestThirtyDaysOneRejected(t *testing.T) {
	bad := channelstest.Inventory(30)[14]
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/"+bad.Date) {
			channelstest.JSON(w, http.StatusBadRequest, `{"message":"date in the past"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	a := newAdapter(t, p.URL, 30)

	res := a.SyncInventory(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, 29, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, bad, res.Errors[0].Item)
	assert.Contains(t, res.Errors[0].Cause, "date in the past")
}

func TestSyncRatesPayload(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 1)
	require.True(t, a.SyncRates(context.Background()).Success)
	h := p.Hits()[0]
	assert.Equal(t, "/properties/hotel-42/rooms/DLX/rates/2026-11-01", h.Path)
	assert.JSONEq(t, `{"amount":120,"currency":"EUR","ratePlan":"BAR"}`, h.Body)
}

func TestUnreachable(t *testing.T) {
	a := newAdapter(t, channelstest.UnreachableURL, 9)
	res := a.SyncAvailability(context.Background())
	assert.False(t, res.Success)
	assert.Len(t, res.Errors, 9)
}

const fixture = `{"reservations":[
 {"reservation_id":"TA-77","status":"Booked","customer":{"first_name":"Ana","last_name":"Silva","email":"ana@example.com","phone_number":"+351900000"},
  "room_id":"DLX","rooms":1,"adults":2,"children":1,"check_in":"2026-11-01","check_out":"2026-11-04",
  "total_price":{"amount":450.5,"currency":"EUR"},"commission":{"amount":67.58,"currency":"EUR"},
  "created":"2026-10-01T10:00:00Z","modified":"2026-10-02T09:00:00Z"},
 {"reservation_id":"TA-78","status":"Booked","customer":{"first_name":"Bo","email":"not-an-email"},"room_id":"DLX","adults":1,
  "check_in":"2026-11-01","check_out":"2026-11-02","total_price":{"amount":90,"currency":"EUR"}}
]}`

func TestGetBookings(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		channelstest.JSON(w, http.StatusOK, fixture)
	})
	a := newAdapter(t, p.URL, 0)
	batch, err := a.GetBookings(context.Background(), model.BookingQuery{})
	require.NoError(t, err)
	require.Len(t, batch.Bookings, 1)
	assert.Equal(t, "TA-77", batch.Bookings[0].ExternalID)
	require.Len(t, batch.Rejected, 1)
	assert.Contains(t, batch.Rejected[0].Reason, "guest.email must be a valid email")
}

func TestTransformIsDeterministic(t *testing.T) {
	var resp reservationsResponse
	require.NoError(t, json.Unmarshal([]byte(fixture), &resp))
	a := newAdapter(t, "http://partner.test", 0)
	x, err := a.transform(resp.Reservations[0])
	require.NoError(t, err)
	y, _ := a.transform(resp.Reservations[0])
	bx, _ := json.Marshal(x)
	by, _ := json.Marshal(y)
	assert.Equal(t, string(bx), string(by))
}

func TestLifecycle(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 0)
	ctx := context.Background()
	gross := 300.0

	require.NoError(t, a.ConfirmBooking(ctx, "TA-77"))
	require.NoError(t, a.CancelBooking(ctx, "TA-77", "duplicate"))
	require.NoError(t, a.ModifyBooking(ctx, "TA-77", model.BookingChanges{Gross: &gross}))

	hits := p.Hits()
	require.Len(t, hits, 3)
	assert.Equal(t, "/reservations/TA-77/confirm", hits[0].Path)
	assert.Equal(t, "/reservations/TA-77/cancel", hits[1].Path)
	assert.Equal(t, http.MethodPut, hits[2].Method)
	assert.JSONEq(t, `{"total_price":{"amount":300}}`, hits[2].Body)
}
