package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/banchogo/internal/bancho"
	"github.com/udisondev/banchogo/internal/config"
	"github.com/udisondev/banchogo/internal/db"
)

const defaultConfigPath = "config.json"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	level := slog.LevelInfo
	if os.Getenv("BANCHOGO_DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	path := defaultConfigPath
	if p := os.Getenv("BANCHOGO_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrReview) {
			log.Warn("config written with defaults, review it and start again", "path", path)
			return nil
		}
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("config loaded", "path", path, "port", cfg.Port)

	database, err := db.New(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	log.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations applied")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	log.Info("redis connected", "addr", cfg.RedisAddr())

	pool := database.Pool()
	stores := bancho.Stores{
		Users:    db.NewUserRepository(pool),
		Stats:    db.NewStatsRepository(pool),
		Scores:   db.NewScoreRepository(pool),
		Settings: db.NewSettingsRepository(pool),
		Statuses: db.NewStatusRepository(pool),
		ChatLogs: db.NewChatLogRepository(pool),
		Reports:  db.NewReportRepository(pool),
		Beatmaps: db.NewBeatmapRepository(pool),
		Hardware: db.NewHardwareRepository(pool),
		Channels: db.NewChannelRepository(pool),
	}

	server := bancho.NewServer(&cfg, log, rdb, stores)
	if err := server.LoadState(ctx); err != nil {
		return fmt.Errorf("loading server state: %w", err)
	}

	// Local cancel so a scheduled restart winds the loops down the same
	// way a signal does.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	api := bancho.NewAPI(server)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info("bancho listening", "addr", addr)
		if err := api.Run(gctx, addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := server.RunPubSub(gctx); err != nil {
			return fmt.Errorf("pubsub intake: %w", err)
		}
		return nil
	})

	g.Go(func() error { return server.RunTimeoutSweep(gctx) })
	g.Go(func() error { return server.RunSpamReset(gctx) })
	g.Go(func() error { return server.RunMatchCleanup(gctx) })

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-server.ShutdownSignal():
			log.Info("scheduled restart reached, exiting")
			cancel()
		}
		return nil
	})

	return g.Wait()
}
