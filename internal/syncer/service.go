// Package syncer orchestrates connectors: it runs pushes and booking pulls for one channel or every enabled
// channel of a property, records each run in the sync log and publishes the outcome.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"channelhub/internal/channels"
	"channelhub/internal/events"
	"channelhub/internal/metrics"
	"channelhub/internal/model"
	"channelhub/internal/store"
)

// ErrRestrictionsUnsupported is returned when restrictions are pushed to a partner without a restriction API.
var ErrRestrictionsUnsupported = errors.New("channel does not support restriction sync")

const (
	maxDetailErrors    = 10
	defaultConcurrency = 4
)

// ConnectorFactory builds a connector for a pair; registry.Registry implements it.
type ConnectorFactory interface {
	CreateConnector(ctx context.Context, channel, propertyID string) (channels.Connector, error)
}

// Store is the persistence the service needs.
type Store interface {
	store.ConfigStore
	store.SyncLog
	store.BookingWriter
}

type Options struct {
	// Timeout bounds each sync operation; zero leaves only the caller's deadline.
	Timeout time.Duration
	// Concurrency bounds how many channels SyncProperty runs at once.
	Concurrency int
}

type Service struct {
	connectors ConnectorFactory
	store      Store
	broker     events.Broker
	logger     *zap.Logger
	opts       Options
	now        func() time.Time
}

func NewService(connectors ConnectorFactory, st Store, broker events.Broker, logger *zap.Logger, opts Options) *Service {
	if broker == nil {
		broker = events.Discard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Service{connectors: connectors, store: st, broker: broker, logger: logger, opts: opts, now: time.Now}
}

// ChannelRun is one channel's share of a property-wide sync.
type ChannelRun struct {
	Channel string           `json:"channel"`
	Result  model.SyncResult `json:"result"`
	Error   string           `json:"error,omitempty"`
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout > 0 {
		return context.WithTimeout(ctx, s.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// SyncChannel pushes one kind of local data to one channel. The error is set only when the push could not
// start (unknown channel, bad config, unsupported kind); partner failures live in the result.
func (s *Service) SyncChannel(ctx context.Context, propertyID, channel string, kind model.SyncKind) (model.SyncResult, error) {
	c, err := s.connectors.CreateConnector(ctx, channel, propertyID)
	if err != nil {
		return model.SyncResult{}, err
	}
	if kind == model.SyncRestrictions {
		if _, ok := c.(channels.RestrictionSyncer); !ok {
			return model.SyncResult{}, fmt.Errorf("%s: %w", c.Name(), ErrRestrictionsUnsupported)
		}
	}
	return s.push(ctx, propertyID, c, kind), nil
}

func (s *Service) push(ctx context.Context, propertyID string, c channels.Connector, kind model.SyncKind) model.SyncResult {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := s.now()
	var res model.SyncResult
	switch kind {
	case model.SyncRates:
		res = c.SyncRates(ctx)
	case model.SyncAvailability:
		res = c.SyncAvailability(ctx)
	case model.SyncRestrictions:
		res = c.(channels.RestrictionSyncer).SyncRestrictions(ctx)
	default:
		kind = model.SyncInventory
		res = c.SyncInventory(ctx)
	}
	s.record(ctx, propertyID, c.Name(), kind, res, s.now().Sub(start))
	return res
}

// SyncProperty pushes kind to every enabled channel of the property at once. One channel's failure never
// stops the others. Channels without restriction support are skipped for restriction pushes.
func (s *Service) SyncProperty(ctx context.Context, propertyID string, kind model.SyncKind) ([]ChannelRun, error) {
	cfgs, err := s.store.ListPropertyChannelConfigs(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list channels for %s: %w", propertyID, err)
	}

	var (
		mu   sync.Mutex
		runs = []ChannelRun{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		channel := cfg.Channel
		g.Go(func() error {
			run := ChannelRun{Channel: channel}
			res, err := s.SyncChannel(gctx, propertyID, channel, kind)
			switch {
			case errors.Is(err, ErrRestrictionsUnsupported):
				return nil
			case err != nil:
				run.Error = err.Error()
				run.Result = channels.SnapshotFailed(err)
				s.record(gctx, propertyID, channel, kind, run.Result, 0)
			default:
				run.Result = res
			}
			mu.Lock()
			runs = append(runs, run)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(runs, func(i, j int) bool { return runs[i].Channel < runs[j].Channel })
	return runs, nil
}

// BookingPull is the result of fetching and persisting one channel's bookings.
type BookingPull struct {
	model.BookingBatch
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// PullBookings fetches the channel's bookings in the query window and upserts the accepted ones.
func (s *Service) PullBookings(ctx context.Context, propertyID, channel string, q model.BookingQuery) (BookingPull, error) {
	if err := model.Validate(q); err != nil {
		return BookingPull{}, &ValidationError{Err: err}
	}
	c, err := s.connectors.CreateConnector(ctx, channel, propertyID)
	if err != nil {
		return BookingPull{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := s.now()
	batch, err := c.GetBookings(ctx, q)
	if err != nil {
		s.record(ctx, propertyID, c.Name(), model.SyncBookings, channels.SnapshotFailed(err), s.now().Sub(start))
		return BookingPull{}, err
	}
	pull := BookingPull{BookingBatch: batch}
	if len(batch.Bookings) > 0 {
		if pull.Created, pull.Updated, err = s.store.UpsertBookings(ctx, batch.Bookings); err != nil {
			return BookingPull{}, fmt.Errorf("store %s bookings: %w", c.Name(), err)
		}
	}

	errs := make([]model.SyncError, 0, len(batch.Rejected))
	for _, r := range batch.Rejected {
		errs = append(errs, model.SyncError{Item: r.ExternalID, Cause: r.Reason})
	}
	s.record(ctx, propertyID, c.Name(), model.SyncBookings, model.NewSyncResult(len(batch.Bookings), errs), s.now().Sub(start))
	return pull, nil
}

func (s *Service) Status(ctx context.Context, propertyID, channel string) (model.ConnectionStatus, error) {
	c, err := s.connectors.CreateConnector(ctx, channel, propertyID)
	if err != nil {
		return model.ConnectionStatus{}, err
	}
	return c.ConnectionStatus(ctx), nil
}

func (s *Service) ConfirmBooking(ctx context.Context, propertyID, channel, bookingID string) error {
	return s.bookingAction(ctx, propertyID, channel, bookingID, "confirm", func(ctx context.Context, c channels.Connector) error {
		return c.ConfirmBooking(ctx, bookingID)
	})
}

func (s *Service) CancelBooking(ctx context.Context, propertyID, channel, bookingID, reason string) error {
	return s.bookingAction(ctx, propertyID, channel, bookingID, "cancel", func(ctx context.Context, c channels.Connector) error {
		return c.CancelBooking(ctx, bookingID, reason)
	})
}

func (s *Service) ModifyBooking(ctx context.Context, propertyID, channel, bookingID string, changes model.BookingChanges) error {
	return s.bookingAction(ctx, propertyID, channel, bookingID, "modify", func(ctx context.Context, c channels.Connector) error {
		err := c.ModifyBooking(ctx, bookingID, changes)
		if errors.Is(err, channels.ErrNoChanges) {
			return &ValidationError{Err: err}
		}
		return err
	})
}

func (s *Service) bookingAction(ctx context.Context, propertyID, channel, bookingID, action string, fn func(context.Context, channels.Connector) error) error {
	if bookingID == "" {
		return &ValidationError{Err: errors.New("booking id is required")}
	}
	c, err := s.connectors.CreateConnector(ctx, channel, propertyID)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	logger := s.logger.With(zap.String("property_id", propertyID), zap.String("channel", c.Name()),
		zap.String("booking_id", bookingID), zap.String("action", action))
	if err := fn(ctx, c); err != nil {
		logger.Warn("booking action failed", zap.Error(err))
		return err
	}
	logger.Info("booking action sent")
	s.broker.Publish(events.Event{
		Type:       events.TypeBookingAction,
		PropertyID: propertyID,
		Channel:    c.Name(),
		Data:       map[string]any{"action": action, "bookingId": bookingID},
	})
	return nil
}

// record appends the run to the sync log, counts it and publishes it. Log write failures are logged, not
// returned: the partner side already happened.
func (s *Service) record(ctx context.Context, propertyID, channel string, kind model.SyncKind, res model.SyncResult, took time.Duration) {
	status := model.OutcomeStatus(res)
	details := map[string]any{"durationMs": took.Milliseconds()}
	if n := len(res.Errors); n > 0 {
		causes := make([]string, 0, min(n, maxDetailErrors))
		for _, e := range res.Errors[:min(n, maxDetailErrors)] {
			causes = append(causes, e.Cause)
		}
		details["errors"] = causes
	}
	outcome := model.SyncOutcome{
		PropertyID: propertyID,
		Channel:    channel,
		Operation:  kind,
		Status:     status,
		Synced:     res.Synced,
		Failed:     len(res.Errors),
		Details:    details,
		RecordedAt: s.now().UTC(),
	}
	// the caller's deadline may already be spent; the log entry must still land
	if err := s.store.RecordSyncOutcome(context.WithoutCancel(ctx), outcome); err != nil {
		s.logger.Error("record sync outcome", zap.String("property_id", propertyID), zap.String("channel", channel), zap.Error(err))
	}
	metrics.SyncRuns.WithLabelValues(channel, string(kind), status).Inc()
	s.broker.Publish(events.Event{
		Type:       eventType(kind),
		PropertyID: propertyID,
		Channel:    channel,
		Data: map[string]any{
			"operation": string(kind),
			"status":    status,
			"synced":    res.Synced,
			"failed":    len(res.Errors),
		},
		At: outcome.RecordedAt,
	})
}

func eventType(kind model.SyncKind) string {
	if kind == model.SyncBookings {
		return events.TypeBookingsFetched
	}
	return events.TypeSyncCompleted
}

// ValidationError marks a request the caller must fix.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }
