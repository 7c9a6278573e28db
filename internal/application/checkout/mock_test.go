package checkout_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"custom-billing/internal/application/checkout"
	"custom-billing/internal/domain/model"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockRequests struct {
	RequestPaymentFunc func(ctx context.Context, planID, accountID string) (*model.PayRequestResponse, error)
	calls              atomic.Int32
}

func (m *mockRequests) RequestPayment(ctx context.Context, planID, accountID string) (*model.PayRequestResponse, error) {
	m.calls.Add(1)
	return m.RequestPaymentFunc(ctx, planID, accountID)
}

type mockStatus struct {
	PaymentStatusFunc func(ctx context.Context, accountID string) (*model.PayStatusResponse, error)
	calls             atomic.Int32
}

func (m *mockStatus) PaymentStatus(ctx context.Context, accountID string) (*model.PayStatusResponse, error) {
	m.calls.Add(1)
	return m.PaymentStatusFunc(ctx, accountID)
}

// scriptedStatus returns the given results in order, repeating the last one.
func scriptedStatus(results ...statusResult) *mockStatus {
	var mu sync.Mutex
	i := 0
	return &mockStatus{PaymentStatusFunc: func(ctx context.Context, accountID string) (*model.PayStatusResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		r := results[i]
		if i < len(results)-1 {
			i++
		}
		return r.resp, r.err
	}}
}

type statusResult struct {
	resp *model.PayStatusResponse
	err  error
}

func ok(alias string) statusResult {
	return statusResult{resp: &model.PayStatusResponse{Status: model.StatusSuccess, Alias: alias}}
}

type recorder struct {
	mu     sync.Mutex
	events []checkout.Event
}

func (r *recorder) Notify(ev checkout.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []checkout.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]checkout.Event(nil), r.events...)
}

func (r *recorder) count(kind checkout.EventKind) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type counterRefresher struct{ n atomic.Int32 }

func (c *counterRefresher) RefreshUserProfile(ctx context.Context) error {
	c.n.Add(1)
	return nil
}

type counterReloader struct{ n atomic.Int32 }

func (c *counterReloader) Reload(ctx context.Context) error {
	c.n.Add(1)
	return nil
}

type fixedPlan string

func (f fixedPlan) CurrentPlanID() string { return string(f) }
