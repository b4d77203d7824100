package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"channelhub/internal/api"
	"channelhub/internal/auth"
	"channelhub/internal/channelconfig"
	"channelhub/internal/channels"
	"channelhub/internal/config"
	"channelhub/internal/events"
	"channelhub/internal/registry"
	"channelhub/internal/store"
	"channelhub/internal/syncer"
)

type appStore interface {
	api.Store
	store.InventoryReader
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store: Postgres when DATABASE_URL is set, in-memory otherwise
	var (
		st      appStore
		onSaved func(fn func(propertyID, channel string))
	)
	if cfg.DatabaseURL == "" {
		mem := store.NewMemory()
		st, onSaved = mem, mem.OnConfigChange
		logger.Warn("DATABASE_URL not set; using in-memory store")
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()
		if cfg.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
		}
		st = pg
	}

	// Redis backs the shared config cache and the event broker
	var (
		cache  channelconfig.Cache
		broker events.Broker = events.NewMemoryBroker()
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		cache = channelconfig.NewRedisCache(rdb)
		rb := events.NewRedisBroker(rdb, logger)
		defer rb.Close()
		broker = rb
	}

	providers := channelconfig.ChainProvider{}
	if cfg.ChannelDefaultsFile != "" {
		fp, err := channelconfig.FileProvider(cfg.ChannelDefaultsFile)
		if err != nil {
			return err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, channelconfig.NewEnvProvider(os.LookupEnv))

	resolver := channelconfig.NewResolver(st, providers, cache, cfg.ConfigCacheTTL, logger)
	if onSaved != nil {
		onSaved(func(propertyID, channel string) { resolver.Invalidate(context.Background(), propertyID, channel) })
	}

	clients := channels.NewClientFactory(&http.Client{Timeout: cfg.HTTPTimeout}, channels.BreakerSettings{}, logger)
	reg := registry.New(resolver, st, clients, logger)
	svc := syncer.NewService(reg, st, broker, logger, syncer.Options{Timeout: cfg.SyncTimeout})

	verifier, err := auth.NewVerifier(cfg.AuthMode, cfg.AuthHMACSecret)
	if err != nil {
		return err
	}
	server := &api.Server{Sync: svc, Store: st, Configs: resolver, Broker: broker, Auth: verifier, Logger: logger}

	if cfg.SyncWorker {
		worker := syncer.NewWorker(svc, st, cfg.SyncInterval, logger)
		worker.Start()
		defer close(worker.Stop)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("API listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
