package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"channelhub/internal/model"
)

// Worker runs scheduled syncs. Every tick it walks the enabled channel configs and syncs each pair whose
// interval has elapsed since its last run.
type Worker struct {
	Service *Service
	Store   Store
	Logger  *zap.Logger
	// Tick is how often schedules are checked; DefaultInterval applies to pairs without their own.
	Tick            time.Duration
	DefaultInterval time.Duration
	Concurrency     int
	Stop            chan struct{}

	mu      sync.Mutex
	lastRun map[string]time.Time
	now     func() time.Time
}

func NewWorker(svc *Service, st Store, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Service:         svc,
		Store:           st,
		Logger:          logger,
		Tick:            time.Minute,
		DefaultInterval: interval,
		Concurrency:     defaultConcurrency,
		Stop:            make(chan struct{}),
		lastRun:         map[string]time.Time{},
		now:             time.Now,
	}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(w.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce(context.Background())
			}
		}
	}()
}

// processOnce syncs every due pair and returns how many ran.
func (w *Worker) processOnce(ctx context.Context) int {
	cfgs, err := w.Store.ListEnabledChannelConfigs(ctx)
	if err != nil {
		w.Logger.Error("list enabled channels", zap.Error(err))
		return 0
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(w.Concurrency, 1))
	ran := 0
	for _, cfg := range cfgs {
		if !w.due(ctx, cfg) {
			continue
		}
		ran++
		g.Go(func() error {
			w.runPair(gctx, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return ran
}

func (w *Worker) interval(cfg model.PropertyChannelConfig) time.Duration {
	if cfg.Sync.IntervalMinutes > 0 {
		return time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
	}
	return w.DefaultInterval
}

// due reports whether the pair should run now and, if so, claims the slot.
func (w *Worker) due(ctx context.Context, cfg model.PropertyChannelConfig) bool {
	key := cfg.PropertyID + "/" + cfg.Channel
	now := w.now()

	w.mu.Lock()
	last, seen := w.lastRun[key]
	w.mu.Unlock()
	if !seen {
		if t, err := w.Store.LastSync(ctx, cfg.PropertyID, cfg.Channel); err == nil && t != nil {
			last = *t
		}
	}
	if !last.IsZero() && now.Sub(last) < w.interval(cfg) {
		return false
	}
	w.mu.Lock()
	w.lastRun[key] = now
	w.mu.Unlock()
	return true
}

// runPair pushes inventory and rates, restrictions when the pair opts in, then pulls bookings.
func (w *Worker) runPair(ctx context.Context, cfg model.PropertyChannelConfig) {
	logger := w.Logger.With(zap.String("property_id", cfg.PropertyID), zap.String("channel", cfg.Channel))
	kinds := []model.SyncKind{model.SyncInventory, model.SyncRates}
	if cfg.Sync.PushRestrictions {
		kinds = append(kinds, model.SyncRestrictions)
	}
	for _, kind := range kinds {
		if _, err := w.Service.SyncChannel(ctx, cfg.PropertyID, cfg.Channel, kind); err != nil {
			logger.Warn("scheduled sync skipped", zap.String("kind", string(kind)), zap.Error(err))
			if !errors.Is(err, ErrRestrictionsUnsupported) {
				return
			}
		}
	}
	if _, err := w.Service.PullBookings(ctx, cfg.PropertyID, cfg.Channel, model.BookingQuery{}); err != nil {
		logger.Warn("scheduled booking pull failed", zap.Error(err))
	}
}
