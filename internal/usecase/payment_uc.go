package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"custom-billing/internal/config"
	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/adapter"
	"custom-billing/internal/domain/ports/repository"
	"custom-billing/internal/infra/logging"
	"custom-billing/internal/infra/metrics"
	red "custom-billing/internal/infra/redis"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase runs bank-transfer payments for custom plans: issuing a QR
// session, reporting on it, and reconciling the transfers the bank pushes back.
type PaymentUseCase interface {
	// RequestPayment opens a payment session for accountID, replacing any previous one.
	RequestPayment(ctx context.Context, accountID, planID string) (*PaymentRequest, error)
	// Status returns the open session of accountID or domain.ErrNotFound once it was reconciled.
	Status(ctx context.Context, accountID string) (*model.PaymentAlias, error)
	// AuthorizeWebhook fails with domain.ErrUnauthorized unless apiKey is the bank token.
	AuthorizeWebhook(ctx context.Context, apiKey string) error
	HandleWebhook(ctx context.Context, apiKey string, t *model.BankTransfer) (*WebhookResult, error)
	History(ctx context.Context) ([]*model.PaymentHistory, error)

	Settings(ctx context.Context) (*model.PaymentSettings, error)
	PublicSettings(ctx context.Context) (*model.PublicPaymentSettings, error)
	SaveSettings(ctx context.Context, s *model.PaymentSettings) error
}

// RateLimiter is the per-key counter guarding RequestPayment.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PaymentRequest is an issued payment session.
type PaymentRequest struct {
	Alias  string
	URL    string
	PlanID string
	Amount float64
}

type WebhookOutcome string

const (
	WebhookActivated    WebhookOutcome = "activated"
	WebhookUnmatched    WebhookOutcome = "unmatched"
	WebhookDuplicate    WebhookOutcome = "duplicate"
	WebhookAmountTooLow WebhookOutcome = "amount_too_low"
	WebhookPlanMissing  WebhookOutcome = "plan_missing"
)

// WebhookResult describes what a delivered transfer did. Every outcome is
// acknowledged to the bank; only WebhookActivated changed an account.
type WebhookResult struct {
	Outcome   WebhookOutcome
	AccountID string
	PlanID    string
	Alias     string
	ExpiresAt *time.Time
}

// PaymentDeps groups the ports the payment use case needs.
type PaymentDeps struct {
	Plans    repository.PlanRepository
	Accounts repository.AccountRepository
	Aliases  repository.PaymentAliasRepository
	History  repository.PaymentHistoryRepository
	Settings repository.PaymentSettingsRepository
	TM       repository.TransactionManager
	QR       adapter.QRCodeURLBuilder
	Limiter  RateLimiter
	Locker   red.Locker
}

type paymentUC struct {
	plans    repository.PlanRepository
	accounts repository.AccountRepository
	aliases  repository.PaymentAliasRepository
	history  repository.PaymentHistoryRepository
	settings repository.PaymentSettingsRepository
	tm       repository.TransactionManager
	qr       adapter.QRCodeURLBuilder
	limiter  RateLimiter
	locker   red.Locker

	cfg config.PaymentConfig
	now func() time.Time
	log *zerolog.Logger
}

func NewPaymentUseCase(deps PaymentDeps, cfg config.PaymentConfig, logger *zerolog.Logger) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	if cfg.MinAmountFactor <= 0 {
		cfg.MinAmountFactor = 1
	}
	return &paymentUC{
		plans:    deps.Plans,
		accounts: deps.Accounts,
		aliases:  deps.Aliases,
		history:  deps.History,
		settings: deps.Settings,
		tm:       deps.TM,
		qr:       deps.QR,
		limiter:  deps.Limiter,
		locker:   deps.Locker,
		cfg:      cfg,
		now:      time.Now,
		log:      &l,
	}
}

func (u *paymentUC) RequestPayment(ctx context.Context, accountID, planID string) (*PaymentRequest, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.RequestPayment")()

	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(planID) == "" {
		metrics.IncPayRequest("error")
		return nil, domain.ErrInvalidArgument
	}

	if u.limiter != nil && u.cfg.RequestLimit > 0 {
		ok, err := u.limiter.Allow(ctx, red.PayRequestKey(accountID), u.cfg.RequestLimit, u.cfg.RequestWindow)
		if err != nil {
			u.log.Warn().Err(err).Str("account_id", accountID).Msg("rate limiter unavailable")
		} else if !ok {
			metrics.IncPayRequest("rate_limited")
			return nil, domain.ErrRateLimited
		}
	}

	plans, err := u.plans.ListAll(ctx, nil)
	if err != nil {
		metrics.IncPayRequest("error")
		return nil, err
	}
	plan := model.FindPlan(plans, planID)
	if plan == nil {
		metrics.IncPayRequest("plan_not_found")
		return nil, fmt.Errorf("plan %s: %w", planID, domain.ErrNotFound)
	}
	if _, err := u.accounts.FindByID(ctx, nil, accountID); err != nil {
		metrics.IncPayRequest("error")
		return nil, err
	}
	ps, err := u.settings.Get(ctx, nil)
	if err != nil {
		metrics.IncPayRequest("error")
		return nil, fmt.Errorf("payment settings: %w", err)
	}

	alias := ulid.Make().String()
	url, err := u.qr.Build(ps, plan.Price, alias)
	if err != nil {
		metrics.IncPayRequest("error")
		return nil, err
	}

	rec := &model.PaymentAlias{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Alias:     alias,
		Value:     model.PaymentIntent{PlanID: plan.ID, Amount: plan.Price},
		CreatedAt: u.now(),
	}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.aliases.DeleteByAccount(ctx, tx, accountID); err != nil {
			return err
		}
		return u.aliases.Save(ctx, tx, rec)
	})
	if err != nil {
		metrics.IncPayRequest("error")
		u.log.Error().Err(err).Str("account_id", accountID).Msg("failed to store payment alias")
		return nil, err
	}

	metrics.IncPayRequest("created")
	u.log.Info().Str("account_id", accountID).Str("plan_id", plan.ID).Str("alias", alias).Msg("payment session opened")
	return &PaymentRequest{Alias: alias, URL: url, PlanID: plan.ID, Amount: plan.Price}, nil
}

func (u *paymentUC) Status(ctx context.Context, accountID string) (*model.PaymentAlias, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	a, err := u.aliases.FindByAccount(ctx, nil, accountID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncPayStatus("resolved")
		return nil, err
	case err != nil:
		metrics.IncPayStatus("error")
		return nil, err
	}
	metrics.IncPayStatus("pending")
	return a, nil
}

func (u *paymentUC) HandleWebhook(ctx context.Context, apiKey string, t *model.BankTransfer) (*WebhookResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.HandleWebhook")()

	if err := u.AuthorizeWebhook(ctx, apiKey); err != nil {
		return nil, err
	}
	if t == nil || strings.TrimSpace(t.TransactionID) == "" {
		return nil, fmt.Errorf("%w: transfer without transaction id", domain.ErrInvalidArgument)
	}
	log := u.log.With().Str("transaction_id", t.TransactionID).Logger()

	if u.locker != nil {
		key := red.WebhookLockKey(t.TransactionID)
		token, err := u.locker.TryLock(ctx, key, u.cfg.WebhookLockTTL)
		if errors.Is(err, domain.ErrLocked) {
			log.Info().Msg("transfer is being processed by another delivery")
			return &WebhookResult{Outcome: WebhookDuplicate}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("webhook lock: %w", err)
		}
		defer func() {
			if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn().Err(err).Msg("failed to release webhook lock")
			}
		}()
	}

	seen, err := u.history.ExistsByTransactionID(ctx, nil, t.TransactionID)
	if err != nil {
		return nil, err
	}
	if seen {
		return &WebhookResult{Outcome: WebhookDuplicate}, nil
	}

	alias, err := u.matchAlias(ctx, t.Description)
	if err != nil {
		return nil, err
	}
	if alias == nil {
		log.Warn().Str("description", t.Description).Msg("transfer does not reference an open payment")
		return u.recordOnly(ctx, t, nil, "", WebhookUnmatched)
	}

	plans, err := u.plans.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	plan := model.FindPlan(plans, alias.Value.PlanID)
	if plan == nil {
		log.Error().Str("plan_id", alias.Value.PlanID).Msg("paid plan no longer exists")
		return u.recordOnly(ctx, t, alias, alias.Value.PlanID, WebhookPlanMissing)
	}
	due := plan.Price * u.cfg.MinAmountFactor
	res := &WebhookResult{AccountID: alias.AccountID, PlanID: plan.ID, Alias: alias.Alias}
	var paid float64
	err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		// row lock serializes partial transfers of the same session
		if _, err := u.aliases.FindByAlias(ctx, tx, alias.Alias); err != nil {
			return err
		}
		prior, err := u.history.SumByAlias(ctx, tx, alias.Alias)
		if err != nil {
			return err
		}
		if err := u.history.Save(ctx, tx, historyOf(t, alias.AccountID, plan.ID, alias.Alias)); err != nil {
			return err
		}
		paid = prior + t.Amount
		if paid < due {
			res.Outcome = WebhookAmountTooLow
			return nil
		}

		acc, err := u.accounts.FindByID(ctx, tx, alias.AccountID)
		if err != nil {
			return err
		}
		acc.ActivatePlan(plan.ID, plan.PlanExpiration, u.now())
		if err := u.accounts.SetPlan(ctx, tx, acc.ID, plan.ID, *acc.PlanExpiration); err != nil {
			return err
		}
		res.Outcome = WebhookActivated
		res.ExpiresAt = acc.PlanExpiration
		return u.aliases.DeleteByAlias(ctx, tx, alias.Alias)
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return &WebhookResult{Outcome: WebhookDuplicate}, nil
	case errors.Is(err, domain.ErrNotFound) && res.Outcome == "":
		// session or account removed by a concurrent transfer or an operator
		log.Warn().Str("alias", alias.Alias).Msg("payment session closed before the transfer was applied")
		return u.recordOnly(ctx, t, nil, "", WebhookUnmatched)
	case err != nil:
		log.Error().Err(err).Str("account_id", alias.AccountID).Msg("failed to apply transfer")
		return nil, err
	}

	if res.Outcome == WebhookAmountTooLow {
		log.Warn().Float64("paid", paid).Float64("due", due).Str("alias", alias.Alias).Msg("session not fully paid yet")
		return res, nil
	}
	metrics.IncPlanActivated(plan.ID)
	metrics.AddPaymentRevenue("VND", paid)
	log.Info().Str("account_id", res.AccountID).Str("plan_id", plan.ID).Time("expires_at", *res.ExpiresAt).Msg("plan activated")
	return res, nil
}

func (u *paymentUC) AuthorizeWebhook(ctx context.Context, apiKey string) error {
	s, err := u.settings.Get(ctx, nil)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return err
	}
	if s.AccessToken == "" || subtle.ConstantTimeCompare([]byte(s.AccessToken), []byte(apiKey)) != 1 {
		return domain.ErrUnauthorized
	}
	return nil
}

// recordOnly stores the transfer without touching any account.
func (u *paymentUC) recordOnly(ctx context.Context, t *model.BankTransfer, alias *model.PaymentAlias, planID string, outcome WebhookOutcome) (*WebhookResult, error) {
	res := &WebhookResult{Outcome: outcome, PlanID: planID}
	if alias != nil {
		res.AccountID = alias.AccountID
		res.Alias = alias.Alias
	}
	err := u.history.Save(ctx, nil, historyOf(t, res.AccountID, planID, res.Alias))
	if errors.Is(err, domain.ErrAlreadyExists) {
		return &WebhookResult{Outcome: WebhookDuplicate}, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// matchAlias returns the open payment referenced by a transfer description, or nil.
func (u *paymentUC) matchAlias(ctx context.Context, description string) (*model.PaymentAlias, error) {
	a, err := u.aliases.FindByAnyAlias(ctx, nil, aliasCandidates(description))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// aliasCandidates lists every ULID-shaped substring of s, upper-cased. Banks
// strip or replace separators, so an alias may be glued to neighbouring text
// such as a numeric reference.
func aliasCandidates(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, run := range strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z')
	}) {
		for i := 0; i+ulid.EncodedSize <= len(run); i++ {
			c := run[i : i+ulid.EncodedSize]
			if seen[c] {
				continue
			}
			if _, err := ulid.ParseStrict(c); err != nil {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func historyOf(t *model.BankTransfer, accountID, planID, alias string) *model.PaymentHistory {
	return &model.PaymentHistory{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		PlanID:        planID,
		Type:          t.Type,
		TransactionID: t.TransactionID,
		Amount:        t.Amount,
		Description:   t.Description,
		Date:          t.Date,
		Bank:          t.Bank,
		Alias:         alias,
	}
}

func (u *paymentUC) History(ctx context.Context) ([]*model.PaymentHistory, error) {
	return u.history.List(ctx, nil)
}

func (u *paymentUC) Settings(ctx context.Context) (*model.PaymentSettings, error) {
	return u.settings.Get(ctx, nil)
}

func (u *paymentUC) PublicSettings(ctx context.Context) (*model.PublicPaymentSettings, error) {
	s, err := u.settings.Get(ctx, nil)
	if err != nil {
		return nil, err
	}
	pub := s.Public()
	return &pub, nil
}

func (u *paymentUC) SaveSettings(ctx context.Context, s *model.PaymentSettings) error {
	if s == nil || strings.TrimSpace(s.BankID) == "" || strings.TrimSpace(s.AccountID) == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.settings.Save(ctx, nil, s); err != nil {
		return err
	}
	u.log.Info().Str("bank_id", s.BankID).Msg("payment settings updated")
	return nil
}
