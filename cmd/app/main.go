// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"custom-billing/internal/config"
	payAdapters "custom-billing/internal/infra/adapters/payment"
	"custom-billing/internal/infra/api"
	"custom-billing/internal/infra/api/apiv1"
	pg "custom-billing/internal/infra/db/postgres"
	"custom-billing/internal/infra/logging"
	"custom-billing/internal/infra/metrics"
	red "custom-billing/internal/infra/redis"
	"custom-billing/internal/infra/sched"
	"custom-billing/internal/infra/security"
	"custom-billing/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "human readable logs and insecure fallbacks")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal().Err(err).Str("config", *cfgPath).Msg("invalid configuration")
	}
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("security.encryption_key must be 32 bytes")
		}
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey, "payment_settings.access_token")
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)
	accountRepo := pg.NewAccountRepo(pool)
	aliasRepo := pg.NewAliasRepo(pool)
	historyRepo := pg.NewHistoryRepo(pool)
	settingsRepo := pg.NewSettingsRepo(pool, encSvc)

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, tm, logger)
	featureUC := usecase.NewFeatureUseCase(accountRepo, planRepo, cfg.Features, logger)
	paymentUC := usecase.NewPaymentUseCase(usecase.PaymentDeps{
		Plans:    planRepo,
		Accounts: accountRepo,
		Aliases:  aliasRepo,
		History:  historyRepo,
		Settings: settingsRepo,
		TM:       tm,
		QR:       payAdapters.NewVietQRBuilder(cfg.Payment.QRImageBase, cfg.Payment.QRTemplate),
		Limiter:  red.NewRateLimiter(redisClient),
		Locker:   red.NewLocker(redisClient),
	}, cfg.Payment, logger)

	// ---- HTTP ----
	env := "production"
	if cfg.Runtime.Dev {
		env = "development"
	}
	v1 := apiv1.NewServer(apiv1.Deps{
		Plans:    planUC,
		Accounts: accountUC,
		Payments: paymentUC,
		Features: featureUC,
	},
		api.NewTokenManager(cfg.Server.JWTSecret, 24*time.Hour),
		api.APIToken(cfg.Server.DashboardAPIKey, logger),
		apiv1.BuildInfo{Version: version, Env: env},
		logger,
	)
	srv := api.NewServer(cfg.Server, v1, map[string]api.HealthChecker{
		"postgres": pool.Ping,
		"redis":    redisClient.Ping,
	}, logger)

	// ---- Background ----
	sweeper := sched.NewAliasSweeper(cfg.Payment.SweepInterval, cfg.Payment.AliasTTL, aliasRepo, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		err := sweeper.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		pg.ReportPoolStats(gctx, pool, 15*time.Second)
		return nil
	})

	logger.Info().Str("version", version).Int("port", cfg.Server.Port).Msg("billing service started")
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("service stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}
