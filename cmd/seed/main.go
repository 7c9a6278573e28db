// File: cmd/seed/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"custom-billing/internal/config"
	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/infra/api"
	pg "custom-billing/internal/infra/db/postgres"
	"custom-billing/internal/infra/logging"
	red "custom-billing/internal/infra/redis"
	"custom-billing/internal/infra/security"
	"custom-billing/internal/usecase"
)

// Seeds a development database: the sample plan list, bank settings and one
// account with a console token to drive cmd/console against.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	reset := flag.Bool("reset", false, "truncate billing tables first")
	email := flag.String("account", "owner@example.com", "email of the demo account")
	bank := flag.String("bank", "970422", "receiving bank BIN")
	bankAccount := flag.String("bank-account", "0001234567890", "receiving account number")
	webhookKey := flag.String("webhook-key", "dev-webhook-key", "Apikey the bank sends with each webhook")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	if *reset {
		log.Println("[0/3] Wiping billing tables...")
		_, err = pool.Exec(ctx, `TRUNCATE accounts, system_custom_info, alies_payments_custom, payments_history_custom;`)
		if err != nil {
			log.Fatalf("truncate: %v", err)
		}
	}

	// 1. plans
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("[1/3] %d plans already present. No changes.\n", len(plans))
	} else {
		plans = samplePlans()
		if err := planUC.Replace(ctx, plans); err != nil {
			log.Fatalf("seed plans: %v", err)
		}
		fmt.Printf("[1/3] seeded %d plans\n", len(plans))
	}
	for _, p := range plans {
		fmt.Printf("  - %s (id=%s, days=%d, price=%.0f VND)\n", p.Name, p.ID, p.PlanExpiration, p.Price)
	}

	// 2. bank settings
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey, "payment_settings.access_token")
	if err != nil {
		log.Fatalf("encryption: %v", err)
	}
	settingsRepo := pg.NewSettingsRepo(pool, encSvc)
	if _, err := settingsRepo.Get(ctx, nil); errors.Is(err, domain.ErrNotFound) {
		ps := &model.PaymentSettings{AccessToken: *webhookKey, AccountName: "CUSTOM BILLING", AccountID: *bankAccount, BankID: *bank}
		if err := settingsRepo.Save(ctx, nil, ps); err != nil {
			log.Fatalf("save settings: %v", err)
		}
		fmt.Printf("[2/3] payment settings saved (bank=%s account=%s)\n", *bank, *bankAccount)
	} else if err != nil {
		log.Fatalf("read settings: %v", err)
	} else {
		fmt.Println("[2/3] payment settings already present. No changes.")
	}

	// 3. demo account
	id, err := ensureAccount(ctx, pool, *email)
	if err != nil {
		log.Fatalf("seed account: %v", err)
	}
	if cfg.Server.JWTSecret == "" {
		fmt.Printf("[3/3] account %s (%s); set server.jwt_secret to mint a console token\n", id, *email)
		return
	}
	tok, err := api.NewTokenManager(cfg.Server.JWTSecret, 30*24*time.Hour).Mint(id, *email)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Printf("[3/3] account %s (%s)\n\nconsole token:\n%s\n", id, *email, tok)
}

func ensureAccount(ctx context.Context, pool *pgxpool.Pool, email string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, `SELECT id FROM accounts WHERE email = $1;`, email).Scan(&id)
	if err == nil {
		return id, nil
	}
	id = uuid.NewString()
	_, err = pool.Exec(ctx, `INSERT INTO accounts (id, name, email, status) VALUES ($1, $2, $3, 'active');`, id, "Workspace Owner", email)
	return id, err
}

func samplePlans() []*model.Plan {
	return []*model.Plan{
		{
			ID: "starter", Name: "Starter", Description: "For individuals trying things out",
			Price: 199_000, PlanExpiration: 30,
			Features: model.PlanFeatures{Members: 1, Apps: 20, VectorSpace: 50, KnowledgeRateLimit: 20, AnnotationQuotaLimit: 500, DocumentsUploadQuota: 200},
		},
		{
			ID: "team", Name: "Team", Description: "For small teams shipping to production",
			Price: 990_000, PlanExpiration: 30,
			Features: model.PlanFeatures{Members: 5, Apps: 100, VectorSpace: 500, KnowledgeRateLimit: 100, AnnotationQuotaLimit: 5000, DocumentsUploadQuota: 1000},
		},
		{
			ID: "team-yearly", Name: "Team (yearly)", Description: "Team plan billed once a year",
			Price: 9_900_000, PlanExpiration: 365,
			Features: model.PlanFeatures{Members: 5, Apps: 100, VectorSpace: 500, KnowledgeRateLimit: 100, AnnotationQuotaLimit: 5000, DocumentsUploadQuota: 1000},
		},
	}
}
