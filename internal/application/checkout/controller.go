// Package checkout drives one custom-plan purchase at a time: it requests a
// payment session, exposes the QR code to the presentation layer and polls
// the payment status until the payment is reconciled, rejected or cancelled.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/adapter"
	"custom-billing/internal/infra/i18n"
	"custom-billing/internal/infra/sched"
)

// DefaultPollInterval is the status polling period.
const DefaultPollInterval = 5 * time.Second

// State of the purchase lifecycle.
type State string

const (
	StateIdle            State = "IDLE"
	StateAwaitingPayment State = "AWAITING_PAYMENT"
	StateCompleted       State = "COMPLETED"
	StateFailed          State = "FAILED"
)

// EventKind classifies a user-facing notification.
type EventKind string

const (
	EventError   EventKind = "error"
	EventSuccess EventKind = "success"
)

// Event is delivered to the Notifier outside of the controller lock.
type Event struct {
	Kind    EventKind
	Message string
	Err     error
}

type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

// ProfileRefresher re-fetches the user profile after a plan change.
type ProfileRefresher interface {
	RefreshUserProfile(ctx context.Context) error
}

// Reloader rebuilds all application state after a plan change.
type Reloader interface {
	Reload(ctx context.Context) error
}

// CurrentPlanSource reports the plan the account is currently on.
type CurrentPlanSource interface {
	CurrentPlanID() string
}

type Translator interface {
	T(key string, args ...interface{}) string
}

// Deps are the collaborators of a Controller. Requests and Status are required.
type Deps struct {
	Requests adapter.PaymentRequestService
	Status   adapter.PaymentStatusService
	Profile  ProfileRefresher
	Reloader Reloader
	Notifier Notifier
}

// Snapshot is the view state consumed by the presentation layer.
type Snapshot struct {
	State     State
	PlanID    string
	AccountID string
	QRURL     string
	Token     string
	Open      bool
	Polling   bool
	Creating  bool
}

type session struct {
	planID    string
	accountID string
	qrURL     string
	token     string
	open      bool
}

// Controller owns a single purchase session and at most one poller.
type Controller struct {
	requests adapter.PaymentRequestService
	status   adapter.PaymentStatusService
	profile  ProfileRefresher
	reloader Reloader
	notifier Notifier
	current  CurrentPlanSource
	tr       Translator
	log      zerolog.Logger

	interval  time.Duration
	newTicker sched.TickerFactory

	mu       sync.Mutex
	state    State
	sess     session
	gen      uint64
	creating bool
	poller   *sched.Poller
	shutdown bool
}

type Option func(*Controller)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTickerFactory replaces the real-time ticker.
func WithTickerFactory(f sched.TickerFactory) Option {
	return func(c *Controller) {
		if f != nil {
			c.newTicker = f
		}
	}
}

func WithCurrentPlan(src CurrentPlanSource) Option {
	return func(c *Controller) { c.current = src }
}

func WithTranslator(tr Translator) Option {
	return func(c *Controller) {
		if tr != nil {
			c.tr = tr
		}
	}
}

// NewController wires a controller. A nil logger disables logging.
func NewController(deps Deps, logger *zerolog.Logger, opts ...Option) (*Controller, error) {
	if deps.Requests == nil || deps.Status == nil {
		return nil, fmt.Errorf("%w: payment request and status services are required", domain.ErrInvalidArgument)
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "checkout").Logger()
	}
	c := &Controller{
		requests:  deps.Requests,
		status:    deps.Status,
		profile:   deps.Profile,
		reloader:  deps.Reloader,
		notifier:  deps.Notifier,
		log:       log,
		interval:  DefaultPollInterval,
		newTicker: sched.NewRealTicker,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tr == nil {
		tr, err := i18n.Load(i18n.DefaultLanguage)
		if err != nil {
			c.log.Warn().Err(err).Msg("translations unavailable, notifications will show message keys")
		}
		c.tr = tr
	}
	return c, nil
}

// StartPurchase requests a payment session for planID and, when the server
// returns both a QR URL and a session token, opens the modal and begins
// polling. Failures produce exactly one error notification and leave the
// controller idle. Calls made while a request is in flight are ignored.
func (c *Controller) StartPurchase(ctx context.Context, planID, accountID string) error {
	if c.current != nil && planID != "" && c.current.CurrentPlanID() == planID {
		return domain.ErrCurrentPlan
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	if c.creating {
		c.mu.Unlock()
		c.log.Debug().Str("plan_id", planID).Msg("purchase request already in flight, ignoring")
		return domain.ErrPurchaseInFlight
	}
	c.stopPollingLocked()
	c.gen++
	gen := c.gen
	c.sess = session{planID: planID, accountID: accountID}
	c.state = StateIdle
	c.creating = true
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.requests.RequestPayment(ctx, planID, accountID)

	c.mu.Lock()
	c.creating = false
	if c.shutdown || gen != c.gen {
		c.mu.Unlock()
		return domain.ErrClosed
	}

	var failure error
	var msg string
	switch {
	case err != nil:
		failure = fmt.Errorf("%w: %w", domain.ErrRequestCreationFailed, err)
		msg = c.tr.T("billing.errors.request_failed")
	case resp == nil:
		failure = fmt.Errorf("%w: empty response", domain.ErrRequestCreationFailed)
		msg = c.tr.T("billing.errors.request_failed")
	case resp.Status != model.StatusSuccess:
		failure = fmt.Errorf("%w: %s", domain.ErrRequestCreationFailed, resp.Message)
		msg = c.tr.T("billing.errors.request_failed")
		if resp.Message != "" {
			msg = c.tr.T("billing.errors.request_failed_msg", resp.Message)
		}
	case resp.URL == "" || resp.Alias == "":
		failure = fmt.Errorf("%w: response is missing url or session token", domain.ErrRequestCreationFailed)
		msg = c.tr.T("billing.errors.request_failed")
	}
	if failure != nil {
		c.mu.Unlock()
		c.log.Error().Err(failure).Str("plan_id", planID).Str("account_id", accountID).
			Dur("elapsed", time.Since(start)).Msg("payment request failed")
		c.emit(Event{Kind: EventError, Message: msg, Err: failure})
		return failure
	}

	c.sess.qrURL = resp.URL
	c.sess.token = resp.Alias
	c.sess.open = true
	c.state = StateAwaitingPayment
	c.poller = sched.NewPoller(c.interval, func(ctx context.Context) bool {
		return c.tick(ctx, gen)
	}, c.newTicker)
	c.poller.Start(context.WithoutCancel(ctx))
	c.mu.Unlock()

	c.log.Info().Str("plan_id", planID).Str("account_id", accountID).Str("alias", resp.Alias).
		Dur("elapsed", time.Since(start)).Msg("payment session opened")
	return nil
}

// PollOnce runs one status check for the active session immediately. It
// reports whether polling should continue.
func (c *Controller) PollOnce(ctx context.Context) bool {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return c.tick(ctx, gen)
}

type outcome int

const (
	keepPolling outcome = iota
	stale
	resolved
	mismatched
	rejected
	transportFailed
)

func (c *Controller) tick(ctx context.Context, gen uint64) bool {
	c.mu.Lock()
	if !c.activeLocked(gen) {
		c.mu.Unlock()
		return false
	}
	accountID, token := c.sess.accountID, c.sess.token
	c.mu.Unlock()

	resp, err := c.status.PaymentStatus(ctx, accountID)

	c.mu.Lock()
	if !c.activeLocked(gen) {
		c.mu.Unlock()
		c.log.Debug().Str("account_id", accountID).Msg("discarding status result of a stale session")
		return false
	}

	result := classify(resp, err, token)
	var ev *Event
	switch result {
	case keepPolling:
		c.mu.Unlock()
		if resp == nil || resp.Alias == "" {
			c.log.Warn().Str("account_id", accountID).Interface("response", resp).Msg("unrecognized payment status response")
		}
		return true
	case resolved:
		c.state = StateCompleted
		c.sess.open = false
		c.sess.qrURL, c.sess.token = "", ""
		ev = &Event{Kind: EventSuccess, Message: c.tr.T("billing.success.paid")}
	case mismatched:
		c.state = StateFailed
		c.sess.open = false
		c.sess.qrURL, c.sess.token = "", ""
		ev = &Event{Kind: EventError, Message: c.tr.T("billing.errors.token_mismatch"),
			Err: fmt.Errorf("%w: got %q", domain.ErrTokenMismatch, resp.Alias)}
	case rejected:
		// The modal stays open so the user can read the QR details.
		c.state = StateFailed
		msg := c.tr.T("billing.errors.rejected_unknown")
		if resp.Message != "" {
			msg = c.tr.T("billing.errors.rejected", resp.Message)
		}
		ev = &Event{Kind: EventError, Message: msg, Err: fmt.Errorf("%w: %s", domain.ErrPaymentRejected, resp.Message)}
	case transportFailed:
		c.state = StateFailed
		ev = &Event{Kind: EventError, Message: c.tr.T("billing.errors.status_failed"),
			Err: fmt.Errorf("%w: %w", domain.ErrPollTransport, err)}
	}
	c.stopPollingLocked()
	c.mu.Unlock()

	if ev.Err != nil {
		c.log.Error().Err(ev.Err).Str("account_id", accountID).Msg("payment polling stopped")
	} else {
		c.log.Info().Str("account_id", accountID).Str("alias", token).Msg("payment reconciled")
	}
	c.emit(*ev)

	if result == resolved {
		c.afterPayment(ctx)
	}
	return false
}

func classify(resp *model.PayStatusResponse, err error, token string) outcome {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return resolved
	case err != nil:
		return transportFailed
	case resp == nil:
		return keepPolling
	case resp.Status != model.StatusSuccess:
		return rejected
	case resp.Alias == "":
		return keepPolling
	case resp.Alias == token:
		return keepPolling
	default:
		return mismatched
	}
}

func (c *Controller) afterPayment(ctx context.Context) {
	if c.profile != nil {
		if err := c.profile.RefreshUserProfile(ctx); err != nil {
			c.log.Warn().Err(err).Msg("failed to refresh user profile after payment")
		}
	}
	if c.reloader != nil {
		if err := c.reloader.Reload(ctx); err != nil {
			c.log.Warn().Err(err).Msg("failed to reload application state after payment")
		}
	}
}

// Close hides the modal and stops polling. The QR URL and token stay in
// memory until the next StartPurchase.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollingLocked()
	c.sess.open = false
	if c.state == StateAwaitingPayment {
		c.state = StateIdle
	}
}

// Cancel is Close under the name the purchase flow uses.
func (c *Controller) Cancel() { c.Close() }

// StopPolling cancels the active poller, if any. Safe to call repeatedly.
func (c *Controller) StopPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollingLocked()
}

// Shutdown tears the controller down. Results of in-flight calls are
// discarded and later purchases return domain.ErrClosed.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
	c.gen++
	c.stopPollingLocked()
	c.sess.open = false
}

// Snapshot returns a copy of the current view state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:     c.state,
		PlanID:    c.sess.planID,
		AccountID: c.sess.accountID,
		QRURL:     c.sess.qrURL,
		Token:     c.sess.token,
		Open:      c.sess.open,
		Polling:   c.poller != nil,
		Creating:  c.creating,
	}
}

func (c *Controller) activeLocked(gen uint64) bool {
	return !c.shutdown && gen == c.gen && c.poller != nil &&
		c.state == StateAwaitingPayment && c.sess.token != ""
}

func (c *Controller) stopPollingLocked() {
	if c.poller == nil {
		return
	}
	c.poller.Stop()
	c.poller = nil
}

func (c *Controller) emit(ev Event) {
	if c.notifier != nil {
		c.notifier.Notify(ev)
	}
}
