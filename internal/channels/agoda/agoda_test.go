package agoda

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

func TestSyncInventorySendsKeyAndProperty(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		channelstest.JSON(w, http.StatusOK, `{"success":true}`)
	})
	a := newAdapter(t, p.URL, 30)

	res := a.SyncInventory(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, 30, res.Synced)

	hits := p.Hits()
	require.Len(t, hits, 1)
	assert.Equal(t, "key-123", hits[0].Header.Get("X-Api-Key"))
	var body updateRequest
	require.NoError(t, json.Unmarshal([]byte(hits[0].Body), &body))
	assert.Equal(t, "hotel-42", body.PropertyID)
	assert.Len(t, body.Items, 30)
}

func TestSuccessFalseIsFailure(t *testing.T) {
	bad := channelstest.Inventory(30)[14]
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		var body updateRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, it := range body.Items {
			if it.Date == bad.Date {
				channelstest.JSON(w, http.StatusOK, `{"success":false,"errors":[{"message":"allotment exceeds room count"}]}`)
				return
			}
		}
		channelstest.JSON(w, http.StatusOK, `{"success":true}`)
	})
	a := newAdapter(t, p.URL, 30)

	res := a.SyncInventory(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, 29, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, bad, res.Errors[0].Item)
	assert.Contains(t, res.Errors[0].Cause, "allotment exceeds room count")
}

func TestSyncRestrictions(t *testing.T) {
	p := channelstest.NewPartner(t, nil)
	a := newAdapter(t, p.URL, 7)
	require.True(t, a.SyncRestrictions(context.Background()).Success)

	var body updateRequest
	require.NoError(t, json.Unmarshal([]byte(p.Hits()[0].Body), &body))
	assert.Equal(t, "/restrictions", p.Hits()[0].Path)
	assert.Equal(t, 2, body.Items[0].MinLos)
	assert.True(t, *body.Items[5].CTA)
}

func TestSyncRatesUnreachable(t *testing.T) {
	a := newAdapter(t, channelstest.UnreachableURL, 8)
	res := a.SyncRates(context.Background())
	assert.False(t, res.Success)
	assert.Len(t, res.Errors, 8)
}

const fixture = `{"success":true,"bookings":[
 {"bookingId":900001,"status":"Confirmed","customer":{"firstName":"Ana","lastName":"Silva","email":"ana@example.com","phone":"+351900000"},
  "roomId":"DLX","noOfRooms":1,"noOfAdults":2,"noOfChildren":1,"checkIn":"2026-11-01","checkOut":"2026-11-04",
  "rates":{"inclusive":450.5,"commission":67.58},"currency":"EUR","bookingDate":"2026-10-01T10:00:00Z","lastModified":"2026-10-02T09:00:00Z"},
 {"status":"Confirmed","customer":{"firstName":"Nobody","email":"n@example.com"},"roomId":"DLX","noOfAdults":1,
  "checkIn":"2026-11-01","checkOut":"2026-11-02","rates":{"inclusive":90},"currency":"EUR"}
]}`

func TestGetBookings(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		channelstest.JSON(w, http.StatusOK, fixture)
	})
	a := newAdapter(t, p.URL, 0)

	batch, err := a.GetBookings(context.Background(), model.BookingQuery{To: "2026-11-30"})
	require.NoError(t, err)
	require.Len(t, batch.Bookings, 1)
	assert.Equal(t, "900001", batch.Bookings[0].ExternalID)
	assert.Equal(t, model.StatusConfirmed, batch.Bookings[0].Status)
	require.Len(t, batch.Rejected, 1)
	assert.Contains(t, batch.Rejected[0].Reason, "bookingId")
	assert.Equal(t, "/properties/hotel-42/bookings", p.Hits()[0].Path)
	assert.Equal(t, "toDate=2026-11-30", p.Hits()[0].Query)
}

func TestGetBookingsFailureEnvelope(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		channelstest.JSON(w, http.StatusOK, `{"success":false,"errors":[{"message":"property suspended"}]}`)
	})
	a := newAdapter(t, p.URL, 0)
	_, err := a.GetBookings(context.Background(), model.BookingQuery{})
	var te *channels.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "property suspended")
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
	n := 2

	require.NoError(t, a.ConfirmBooking(ctx, "900001"))
	require.NoError(t, a.CancelBooking(ctx, "900001", ""))
	require.NoError(t, a.ModifyBooking(ctx, "900001", model.BookingChanges{Quantity: &n}))

	hits := p.Hits()
	require.Len(t, hits, 3)
	assert.Equal(t, "/bookings/900001/confirm", hits[0].Path)
	assert.JSONEq(t, `{}`, hits[1].Body)
	assert.Equal(t, "/bookings/900001/amend", hits[2].Path)
	assert.JSONEq(t, `{"noOfRooms":2}`, hits[2].Body)
}
