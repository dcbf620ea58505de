package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"group-broadcast-gateway/internal/application"
	"group-broadcast-gateway/internal/config"
	tele "group-broadcast-gateway/internal/infra/adapters/telegram"
	"group-broadcast-gateway/internal/infra/db"
	"group-broadcast-gateway/internal/infra/i18n"
	"group-broadcast-gateway/internal/infra/logging"
	"group-broadcast-gateway/internal/infra/metrics"
	red "group-broadcast-gateway/internal/infra/redis"
	"group-broadcast-gateway/internal/infra/sched"
	"group-broadcast-gateway/internal/infra/session"
	"group-broadcast-gateway/internal/infra/web"
	"group-broadcast-gateway/internal/infra/worker"
	"group-broadcast-gateway/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted ids)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("gateway stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("gateway stopped")
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	logger.Info().Str("version", version).Str("driver", cfg.Database.Driver).Bool("dev", cfg.Runtime.Dev).Msg("starting gateway")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Store ----
	store, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	// ---- Redis (optional) ----
	var (
		locker      usecase.Locker
		rateLimiter tele.RateLimiter
		offsets     tele.OffsetStore
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		if cfg.RateLimit.CommandsPerMinute > 0 {
			rateLimiter = red.NewRateLimiter(redisClient, cfg.RateLimit.CommandsPerMinute, time.Minute)
		}
		offsets = red.NewOffsetStore(redisClient)
	} else {
		logger.Warn().Msg("redis not configured: rate limiting off, broadcast lock is process-local")
	}

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return fmt.Errorf("load reply texts: %w", err)
	}

	tracker := session.NewTracker()
	messenger := &lateMessenger{}

	// ---- Use cases ----
	window := cfg.Entitlement.UsageDuration
	broadcastCtx, cancelBroadcasts := context.WithCancel(context.Background())
	defer cancelBroadcasts()
	pool := worker.NewPool(cfg.Broadcast.Workers, logger)
	pool.Start(broadcastCtx)

	activationUC := usecase.NewActivationUseCase(store.Codes, store.Users, store.Tx, cfg.Entitlement.CodeTTL, logger)
	authUC := usecase.NewAuthorizationUseCase(store.Users, window, logger)
	userUC := usecase.NewUserUseCase(store.Users, store.Groups, window, logger)
	groupUC := usecase.NewGroupUseCase(store.Groups, logger)
	broadcastUC := usecase.NewBroadcastUseCase(store.Groups, messenger, pool, locker, usecase.BroadcastPacing{
		BaseDelay: cfg.Broadcast.BaseDelay,
		StepDelay: cfg.Broadcast.StepDelay,
		LockTTL:   cfg.Broadcast.LockTTL,
	}, logger)
	statsUC := usecase.NewStatsUseCase(store.Users, store.Codes, store.Groups, logger)
	maintenanceUC := usecase.NewMaintenanceUseCase(store.Codes, store.Users, window, logger)

	dispatcher := application.NewDispatcher(activationUC, authUC, userUC, groupUC, broadcastUC, statsUC, messenger, tr,
		application.DispatcherConfig{
			AdminID:           cfg.Bot.AdminID,
			AdminContact:      cfg.Bot.AdminContact,
			ActivationCommand: cfg.Entitlement.ActivationCommand,
			UsageWindow:       window,
			Dev:               cfg.Runtime.Dev,
		}, logger)

	// ---- Transport ----
	bot, err := tele.NewBot(tele.Options{
		Token:       cfg.Bot.Token,
		PollTimeout: cfg.Bot.PollTimeout,
		SendRate:    cfg.Transport.SendRate,
		SendBurst:   cfg.Transport.SendBurst,
		Backoff: session.Backoff{
			Initial:     cfg.Transport.ReconnectInitial,
			Max:         cfg.Transport.ReconnectMax,
			MaxAttempts: cfg.Transport.ReconnectMaxAttempts,
		},
		RateLimitedReply: tr.T("rate_limited"),
		Dev:              cfg.Runtime.Dev,
	}, dispatcher, tracker, rateLimiter, offsets, logger)
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}
	messenger.set(bot)

	lifecycle := application.NewLifecycle(bot, cfg.Bot.AdminID, tr, logger)
	tracker.OnTransition(lifecycle.OnTransition)

	statusSrv := web.NewServer(store.Pinger, tracker, statsUC, cfg.Status.APIKey, logger)

	// ---- Run ----
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error {
		err := sched.NewMaintenanceWorker(cfg.Maintenance.Interval, maintenanceUC, logger).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error { return statusSrv.Start(cfg.Status.Port) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return statusSrv.Shutdown(shutdownCtx)
	})

	<-gctx.Done()
	logger.Info().Msg("shutdown requested")

	// running broadcasts stop between sends and report the rest as skipped
	cancelBroadcasts()
	pool.Stop()

	notifyCtx, cancelNotify := context.WithTimeout(context.Background(), 10*time.Second)
	if err := lifecycle.NotifyShutdown(notifyCtx); err != nil {
		logger.Warn().Err(err).Msg("shutdown notice not delivered")
	}
	cancelNotify()

	return g.Wait()
}
