package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"channelhub/internal/channelconfig"
	"channelhub/internal/channels"
	"channelhub/internal/channels/channelstest"
	"channelhub/internal/events"
	"channelhub/internal/model"
	"channelhub/internal/registry"
	"channelhub/internal/store"
)

type fakeConnector struct {
	name  string
	res   model.SyncResult
	batch model.BookingBatch
	err   error
	calls atomic.Int32
}

func (f *fakeConnector) Name() string { return f.name }
func (f *fakeConnector) ConnectionStatus(context.Context) model.ConnectionStatus {
	return model.ConnectionStatus{Connected: f.err == nil}
}
func (f *fakeConnector) sync() model.SyncResult {
	f.calls.Add(1)
	return f.res
}
func (f *fakeConnector) SyncInventory(context.Context) model.SyncResult    { return f.sync() }
func (f *fakeConnector) SyncRates(context.Context) model.SyncResult        { return f.sync() }
func (f *fakeConnector) SyncAvailability(context.Context) model.SyncResult { return f.sync() }
func (f *fakeConnector) GetBookings(context.Context, model.BookingQuery) (model.BookingBatch, error) {
	return f.batch, f.err
}
func (f *fakeConnector) ConfirmBooking(context.Context, string) error        { return f.err }
func (f *fakeConnector) CancelBooking(context.Context, string, string) error { return f.err }
func (f *fakeConnector) ModifyBooking(_ context.Context, _ string, c model.BookingChanges) error {
	if c.Empty() {
		return channels.ErrNoChanges
	}
	return f.err
}

type restrictingConnector struct {
	*fakeConnector
}

func (r restrictingConnector) SyncRestrictions(context.Context) model.SyncResult { return r.sync() }

type fakeFactory map[string]channels.Connector

func (f fakeFactory) CreateConnector(_ context.Context, channel, propertyID string) (channels.Connector, error) {
	c, ok := f[channel]
	if !ok {
		return nil, &channelconfig.ConfigurationError{PropertyID: propertyID, Channel: channel, Reason: channelconfig.ReasonNotConfigured}
	}
	return c, nil
}

func enable(t *testing.T, mem *store.Memory, channels ...string) {
	t.Helper()
	for _, ch := range channels {
		require.NoError(t, mem.SavePropertyChannelConfig(context.Background(), model.PropertyChannelConfig{
			PropertyID: "p1", Channel: ch, Enabled: true, ChannelPropertyID: "x",
		}))
	}
}

func partial() model.SyncResult {
	return model.NewSyncResult(29, []model.SyncError{{Item: "row-15", Cause: "rejected"}})
}

func TestSyncChannelRecordsAndPublishes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	broker := events.NewMemoryBroker()
	sub := broker.Subscribe("p1")
	svc := NewService(fakeFactory{"agoda": &fakeConnector{name: "agoda", res: partial()}}, mem, broker, zap.NewNop(), Options{})

	res, err := svc.SyncChannel(ctx, "p1", "agoda", model.SyncRates)
	require.NoError(t, err)
	assert.True(t, res.Partial())

	log, err := mem.ListSyncOutcomes(ctx, "p1", "agoda", 0)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, model.SyncRates, log[0].Operation)
	assert.Equal(t, model.OutcomePartial, log[0].Status)
	assert.Equal(t, 29, log[0].Synced)
	assert.Equal(t, 1, log[0].Failed)
	assert.Equal(t, []string{"rejected"}, log[0].Details["errors"])

	last, err := mem.LastSync(ctx, "p1", "agoda")
	require.NoError(t, err)
	assert.NotNil(t, last)

	evt := <-sub
	assert.Equal(t, events.TypeSyncCompleted, evt.Type)
	assert.Equal(t, model.OutcomePartial, evt.Data["status"])
}

func TestSyncChannelRestrictionsUnsupported(t *testing.T) {
	svc := NewService(fakeFactory{"hotelbeds": &fakeConnector{name: "hotelbeds"}}, store.NewMemory(), nil, nil, Options{})
	_, err := svc.SyncChannel(context.Background(), "p1", "hotelbeds", model.SyncRestrictions)
	assert.ErrorIs(t, err, ErrRestrictionsUnsupported)
}

func TestSyncPropertyRunsEveryEnabledChannel(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	enable(t, mem, "agoda", "expedia", "vrbo")
	require.NoError(t, mem.SavePropertyChannelConfig(ctx, model.PropertyChannelConfig{PropertyID: "p1", Channel: "airbnb"}))

	ok := &fakeConnector{name: "agoda", res: model.NewSyncResult(10, nil)}
	half := &fakeConnector{name: "expedia", res: partial()}
	disabled := &fakeConnector{name: "airbnb", res: model.NewSyncResult(10, nil)}
	svc := NewService(fakeFactory{"agoda": ok, "expedia": half, "airbnb": disabled}, mem, nil, zap.NewNop(), Options{Concurrency: 2})

	runs, err := svc.SyncProperty(ctx, "p1", model.SyncInventory)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"agoda", "expedia", "vrbo"}, []string{runs[0].Channel, runs[1].Channel, runs[2].Channel})
	assert.True(t, runs[0].Result.Success)
	assert.True(t, runs[1].Result.Partial())
	assert.Contains(t, runs[2].Error, "not configured")
	assert.Zero(t, disabled.calls.Load())

	log, err := mem.ListSyncOutcomes(ctx, "p1", "", 0)
	require.NoError(t, err)
	statuses := map[string]string{}
	for _, o := range log {
		statuses[o.Channel] = o.Status
	}
	assert.Equal(t, map[string]string{"agoda": "success", "expedia": "partial", "vrbo": "failed"}, statuses)
}

func TestSyncPropertySkipsChannelsWithoutRestrictions(t *testing.T) {
	mem := store.NewMemory()
	enable(t, mem, "agoda", "hotelbeds")
	agoda := restrictingConnector{&fakeConnector{name: "agoda", res: model.NewSyncResult(4, nil)}}
	svc := NewService(fakeFactory{"agoda": agoda, "hotelbeds": &fakeConnector{name: "hotelbeds"}}, mem, nil, nil, Options{})

	runs, err := svc.SyncProperty(context.Background(), "p1", model.SyncRestrictions)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "agoda", runs[0].Channel)
	assert.Equal(t, 4, runs[0].Result.Synced)
}

func TestPullBookingsPersistsAccepted(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	batch := model.BookingBatch{
		Bookings: []model.Booking{{ExternalID: "B1", Channel: "agoda", PropertyID: "p1"}, {ExternalID: "B2", Channel: "agoda", PropertyID: "p1"}},
		Rejected: []model.RejectedBooking{{ExternalID: "B3", Reason: "guest.email is required"}},
	}
	svc := NewService(fakeFactory{"agoda": &fakeConnector{name: "agoda", batch: batch}}, mem, nil, nil, Options{})

	pull, err := svc.PullBookings(ctx, "p1", "agoda", model.BookingQuery{From: "2026-11-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, pull.Created)
	require.Len(t, pull.Rejected, 1)

	pull, err = svc.PullBookings(ctx, "p1", "agoda", model.BookingQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, pull.Updated)

	stored, err := mem.ListBookings(ctx, "p1", "agoda")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	log, err := mem.ListSyncOutcomes(ctx, "p1", "agoda", 1)
	require.NoError(t, err)
	assert.Equal(t, model.SyncBookings, log[0].Operation)
	assert.Equal(t, model.OutcomePartial, log[0].Status)
}

func TestPullBookingsRejectsBadQuery(t *testing.T) {
	svc := NewService(fakeFactory{}, store.NewMemory(), nil, nil, Options{})
	_, err := svc.PullBookings(context.Background(), "p1", "agoda", model.BookingQuery{From: "01/11/2026"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "from must be a date")
}

func TestPullBookingsTransportFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	down := &fakeConnector{name: "agoda", err: &channels.TransportError{Channel: "agoda", Op: "bookings.list", Status: 503}}
	svc := NewService(fakeFactory{"agoda": down}, mem, nil, nil, Options{})

	_, err := svc.PullBookings(ctx, "p1", "agoda", model.BookingQuery{})
	var te *channels.TransportError
	require.ErrorAs(t, err, &te)
	log, _ := mem.ListSyncOutcomes(ctx, "p1", "agoda", 1)
	require.Len(t, log, 1)
	assert.Equal(t, model.OutcomeFailed, log[0].Status)
}

func TestBookingActions(t *testing.T) {
	ctx := context.Background()
	broker := events.NewMemoryBroker()
	sub := broker.Subscribe("p1")
	svc := NewService(fakeFactory{"vrbo": &fakeConnector{name: "vrbo"}}, store.NewMemory(), broker, nil, Options{})

	require.NoError(t, svc.ConfirmBooking(ctx, "p1", "vrbo", "HA-1"))
	evt := <-sub
	assert.Equal(t, events.TypeBookingAction, evt.Type)
	assert.Equal(t, map[string]any{"action": "confirm", "bookingId": "HA-1"}, evt.Data)

	var ve *ValidationError
	assert.ErrorAs(t, svc.ModifyBooking(ctx, "p1", "vrbo", "HA-1", model.BookingChanges{}), &ve)
	assert.ErrorAs(t, svc.CancelBooking(ctx, "p1", "vrbo", "", "x"), &ve)
}

func TestTimeoutBoundsEachOperation(t *testing.T) {
	p := channelstest.NewPartner(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		channelstest.JSON(w, http.StatusOK, "{}")
	})
	mem := channelstest.Data(1)
	require.NoError(t, mem.SavePropertyChannelConfig(context.Background(), model.PropertyChannelConfig{
		PropertyID: channelstest.PropertyID, Channel: "agoda", Enabled: true, ChannelPropertyID: "h1",
		BaseURL: p.URL, Credentials: channelstest.Credentials, Sync: model.SyncSettings{MaxRetries: -1},
	}))
	reg := registry.New(channelconfig.NewResolver(mem, nil, nil, 0, nil), mem, nil, nil)
	svc := NewService(reg, mem, nil, nil, Options{Timeout: 20 * time.Millisecond})

	res, err := svc.SyncChannel(context.Background(), channelstest.PropertyID, "agoda", model.SyncInventory)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

// End to end through the registry against fake partners.
func TestSyncPropertyThroughRegistry(t *testing.T) {
	ctx := context.Background()
	p := channelstest.NewPartner(t, nil)
	mem := channelstest.Data(20)
	for _, ch := range []string{"bookingcom", "tripadvisor", "traveloka"} {
		require.NoError(t, mem.SavePropertyChannelConfig(ctx, model.PropertyChannelConfig{
			PropertyID: channelstest.PropertyID, Channel: ch, Enabled: true, ChannelPropertyID: "h-" + ch,
			BaseURL: p.URL, Credentials: channelstest.Credentials, Sync: model.SyncSettings{MaxRetries: -1},
		}))
	}
	reg := registry.New(channelconfig.NewResolver(mem, nil, nil, time.Minute, nil), mem, nil, nil)
	svc := NewService(reg, mem, nil, zap.NewNop(), Options{Timeout: 5 * time.Second})

	runs, err := svc.SyncProperty(ctx, channelstest.PropertyID, model.SyncAvailability)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, r := range runs {
		assert.True(t, r.Result.Success, r.Channel)
		assert.Equal(t, 20, r.Result.Synced, r.Channel)
	}

	st, err := svc.Status(ctx, channelstest.PropertyID, "tripadvisor")
	require.NoError(t, err)
	assert.True(t, st.Connected)
	require.NotNil(t, st.LastSync)
	assert.WithinDuration(t, time.Now(), *st.LastSync, time.Minute)

	_, err = svc.SyncChannel(ctx, channelstest.PropertyID, "orbitz", model.SyncInventory)
	var ue *registry.UnsupportedChannelError
	assert.True(t, errors.As(err, &ue), fmt.Sprint(err))
}
