// File: cmd/console/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"custom-billing/internal/application/appctx"
	"custom-billing/internal/application/checkout"
	"custom-billing/internal/application/pricing"
	"custom-billing/internal/config"
	"custom-billing/internal/domain"
	"custom-billing/internal/domain/ports/adapter"
	"custom-billing/internal/infra/adapters/console"
	"custom-billing/internal/infra/i18n"
	"custom-billing/internal/infra/logging"
)

const usage = `usage: console [-config config.yaml] [-dev] <command>

commands:
  plans          list custom plans
  buy <plan-id>  pay for a plan with a bank transfer QR code
  whoami         show the signed-in account and its limits`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "human readable logs")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ValidateConsole(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	tr, err := i18n.Load(cfg.Console.Language)
	if err != nil {
		logger.Warn().Err(err).Str("language", cfg.Console.Language).Msg("falling back to default language")
		tr, _ = i18n.Load(i18n.DefaultLanguage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := console.NewClient(cfg.Console, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("console client")
	}
	app := appctx.New(client, logger, cfg.Runtime.Dev)
	defer app.Close()
	if err := app.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load account")
	}

	switch cmd := flag.Arg(0); cmd {
	case "plans":
		printPlans(app, tr)
	case "whoami":
		printAccount(app)
	case "buy":
		if flag.NArg() < 2 {
			flag.Usage()
			os.Exit(2)
		}
		if err := buy(ctx, app, client, tr, cfg.Console, logger, flag.Arg(1)); err != nil {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func printPlans(app *appctx.Context, tr *i18n.Translator) {
	cards := pricing.Cards(app.CustomPlans(), app.UserProfile(), app.IsManager(), tr)
	if len(cards) == 0 {
		fmt.Println("no custom plans are configured")
		return
	}
	for _, c := range cards {
		fmt.Printf("%s  [%s]\n", c.Plan.Name, c.Plan.ID)
		fmt.Printf("  %s %s\n", c.PriceLabel(), c.PeriodLabel())
		if exp := c.ExpiresLabel(); exp != "" {
			fmt.Printf("  %s\n", exp)
		}
		for _, line := range c.FeatureLines() {
			fmt.Printf("  - %s\n", line)
		}
		fmt.Printf("  > %s\n\n", c.ButtonLabel(false))
	}
}

func printAccount(app *appctx.Context) {
	p := app.UserProfile()
	f := app.Features()
	plan := p.CustomPlanID
	if plan == "" {
		plan = "-"
	}
	fmt.Printf("%s <%s>\n", p.Name, p.Email)
	fmt.Printf("  account:   %s\n", p.ID)
	fmt.Printf("  workspace: %s (%s)\n", app.Workspace().Name, app.Workspace().Role)
	fmt.Printf("  plan:      %s\n", plan)
	fmt.Printf("  limits:    %d members, %d apps, %dMB vector space\n", f.Members, f.Apps, f.VectorSpace)
}

// buy runs one purchase session until it is paid, fails, or the user interrupts.
func buy(ctx context.Context, app *appctx.Context, api adapter.ConsoleAPI, tr *i18n.Translator, cfg config.ConsoleConfig, logger *zerolog.Logger, planID string) error {
	if !app.IsManager() {
		fmt.Fprintln(os.Stderr, "only workspace owners and admins can buy a plan")
		return domain.ErrForbidden
	}

	done := make(chan checkout.Event, 1)
	ctrl, err := checkout.NewController(checkout.Deps{
		Requests: api,
		Status:   api,
		Profile:  app,
		Reloader: app,
		Notifier: checkout.NotifierFunc(func(ev checkout.Event) {
			select {
			case done <- ev:
			default:
			}
		}),
	}, logger,
		checkout.WithPollInterval(cfg.PollInterval),
		checkout.WithCurrentPlan(app),
		checkout.WithTranslator(tr),
	)
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	if err := ctrl.StartPurchase(ctx, planID, app.UserProfile().ID); err != nil {
		if errors.Is(err, domain.ErrCurrentPlan) {
			fmt.Fprintln(os.Stderr, tr.T("billing.errors.current_plan"))
			return err
		}
		select {
		case ev := <-done:
			fmt.Fprintln(os.Stderr, ev.Message)
		default:
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}

	snap := ctrl.Snapshot()
	fmt.Println(tr.T("billing.labels.open_qr"))
	if qr, err := qrcode.New(snap.QRURL, qrcode.Medium); err == nil {
		fmt.Println(qr.ToSmallString(false))
	} else {
		logger.Warn().Err(err).Msg("render qr code")
	}
	fmt.Printf("%s\n%s\n\n", snap.QRURL, strings.Repeat("-", 40))
	fmt.Printf("transfer note: %s\n", snap.Token)
	fmt.Println(tr.T("billing.labels.check_now"))

	checks := make(chan struct{}, 1)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case checks <- struct{}{}:
			default:
			}
		}
	}()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			ctrl.Cancel()
			fmt.Println("\npayment window closed; the transfer can still be completed later")
			return ctx.Err()
		case <-checks:
			// A resolved session reports through done.
			if ctrl.PollOnce(ctx) {
				fmt.Println("not paid yet")
			}
		case ev := <-done:
			logger.Info().Str("kind", string(ev.Kind)).Dur("waited", time.Since(start)).Msg("checkout finished")
			if ev.Kind == checkout.EventSuccess {
				fmt.Println(ev.Message)
				fmt.Printf("plan: %s\n", snap.PlanID)
				return nil
			}
			fmt.Fprintln(os.Stderr, ev.Message)
			if ev.Err != nil {
				return ev.Err
			}
			return errors.New(ev.Message)
		}
	}
}
