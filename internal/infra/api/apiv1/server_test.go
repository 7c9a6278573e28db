//go:build !integration

package apiv1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	apiv1 "custom-billing/internal/infra/api/apiv1"
	"custom-billing/internal/usecase"
)

//
// ---------------- use case mocks ----------------
//

type mockPlans struct {
	ListFunc    func(ctx context.Context) ([]*model.Plan, error)
	ReplaceFunc func(ctx context.Context, plans []*model.Plan) error
}

func (m *mockPlans) List(ctx context.Context) ([]*model.Plan, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*model.Plan{}, nil
}

func (m *mockPlans) Get(ctx context.Context, id string) (*model.Plan, error) {
	return nil, domain.ErrNotFound
}

func (m *mockPlans) Replace(ctx context.Context, plans []*model.Plan) error {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, plans)
	}
	return nil
}

type mockAccounts struct {
	byID map[string]*model.Account
}

func (m *mockAccounts) Get(ctx context.Context, id string) (*model.Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (m *mockAccounts) List(ctx context.Context) ([]*model.Account, error) {
	out := make([]*model.Account, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAccounts) BulkUpdate(ctx context.Context, updates []*model.AccountUpdate) error {
	return nil
}

func (m *mockAccounts) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type mockFeatures struct{}

func (mockFeatures) ForAccount(ctx context.Context, accountID string) (*model.FeatureLimits, error) {
	return &model.FeatureLimits{}, nil
}

type mockPayments struct {
	RequestPaymentFunc func(ctx context.Context, accountID, planID string) (*usecase.PaymentRequest, error)
	StatusFunc         func(ctx context.Context, accountID string) (*model.PaymentAlias, error)
	HandleWebhookFunc  func(ctx context.Context, apiKey string, t *model.BankTransfer) (*usecase.WebhookResult, error)
}

func (m *mockPayments) AuthorizeWebhook(ctx context.Context, apiKey string) error {
	if apiKey != "bank-key" {
		return domain.ErrUnauthorized
	}
	return nil
}

func (m *mockPayments) RequestPayment(ctx context.Context, accountID, planID string) (*usecase.PaymentRequest, error) {
	return m.RequestPaymentFunc(ctx, accountID, planID)
}

func (m *mockPayments) Status(ctx context.Context, accountID string) (*model.PaymentAlias, error) {
	return m.StatusFunc(ctx, accountID)
}

func (m *mockPayments) HandleWebhook(ctx context.Context, apiKey string, t *model.BankTransfer) (*usecase.WebhookResult, error) {
	return m.HandleWebhookFunc(ctx, apiKey, t)
}

func (m *mockPayments) History(ctx context.Context) ([]*model.PaymentHistory, error) {
	return []*model.PaymentHistory{}, nil
}

func (m *mockPayments) Settings(ctx context.Context) (*model.PaymentSettings, error) {
	return nil, domain.ErrNotFound
}

func (m *mockPayments) PublicSettings(ctx context.Context) (*model.PublicPaymentSettings, error) {
	return nil, domain.ErrNotFound
}

func (m *mockPayments) SaveSettings(ctx context.Context, s *model.PaymentSettings) error {
	return nil
}

// headerAuth treats the X-Account header as the authenticated account.
type headerAuth struct{}

func (headerAuth) Authenticate(r *http.Request) (string, error) {
	if id := r.Header.Get("X-Account"); id != "" {
		return id, nil
	}
	return "", domain.ErrUnauthorized
}

//
// ---------------- harness ----------------
//

type harness struct {
	router   http.Handler
	payments *mockPayments
	plans    *mockPlans
	accounts *mockAccounts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zerolog.New(io.Discard)
	exp := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	planID := "pro"

	h := &harness{
		payments: &mockPayments{},
		plans:    &mockPlans{},
		accounts: &mockAccounts{byID: map[string]*model.Account{
			"acc-1": {ID: "acc-1", Name: "Lan", Email: "lan@example.com", Status: "active", CustomPlanID: &planID, PlanExpiration: &exp},
		}},
	}
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("api-token") != "dash-key" {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	srv := apiv1.NewServer(apiv1.Deps{
		Plans:    h.plans,
		Accounts: h.accounts,
		Payments: h.payments,
		Features: mockFeatures{},
	}, headerAuth{}, guard, apiv1.BuildInfo{Version: "1.4.0", Env: "test"}, &logger)

	r := chi.NewRouter()
	apiv1.RegisterAPIV1(r, srv)
	h.router = r
	return h
}

func (h *harness) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

var asAcc1 = map[string]string{"X-Account": "acc-1"}

//
// ---------------- console routes ----------------
//

func TestConsole_RequiresAccount(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodGet, "/console/api/account/profile", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestPayRequest(t *testing.T) {
	t.Run("issues a session", func(t *testing.T) {
		h := newHarness(t)
		h.payments.RequestPaymentFunc = func(ctx context.Context, accountID, planID string) (*usecase.PaymentRequest, error) {
			if accountID != "acc-1" || planID != "pro" {
				t.Fatalf("unexpected args %s/%s", accountID, planID)
			}
			return &usecase.PaymentRequest{Alias: "01JABCDEFGHJKMNPQRSTVWXYZ0", URL: "https://qr.example/x.png", PlanID: planID}, nil
		}

		rr := h.do(http.MethodPost, "/console/api/custom/pay_request",
			map[string]string{"id_plan": "pro", "id_account": "acc-1"}, asAcc1)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		got := decode[model.PayRequestResponse](t, rr)
		if got.Status != "success" || got.Alias != "01JABCDEFGHJKMNPQRSTVWXYZ0" || got.URL == "" {
			t.Fatalf("unexpected body %+v", got)
		}
	})

	t.Run("rate limited -> 429", func(t *testing.T) {
		h := newHarness(t)
		h.payments.RequestPaymentFunc = func(ctx context.Context, accountID, planID string) (*usecase.PaymentRequest, error) {
			return nil, domain.ErrRateLimited
		}
		rr := h.do(http.MethodPost, "/console/api/custom/pay_request", map[string]string{"id_plan": "pro"}, asAcc1)
		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rr.Code)
		}
		if got := decode[map[string]string](t, rr); got["status"] != "error" {
			t.Fatalf("expected error status, got %+v", got)
		}
	})

	t.Run("unknown plan -> 404", func(t *testing.T) {
		h := newHarness(t)
		h.payments.RequestPaymentFunc = func(ctx context.Context, accountID, planID string) (*usecase.PaymentRequest, error) {
			return nil, domain.ErrNotFound
		}
		rr := h.do(http.MethodPost, "/console/api/custom/pay_request", map[string]string{"id_plan": "nope"}, asAcc1)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("other account -> 403", func(t *testing.T) {
		h := newHarness(t)
		h.payments.RequestPaymentFunc = func(ctx context.Context, accountID, planID string) (*usecase.PaymentRequest, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		}
		rr := h.do(http.MethodPost, "/console/api/custom/pay_request",
			map[string]string{"id_plan": "pro", "id_account": "acc-2"}, asAcc1)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("internal errors are masked", func(t *testing.T) {
		h := newHarness(t)
		h.payments.RequestPaymentFunc = func(ctx context.Context, accountID, planID string) (*usecase.PaymentRequest, error) {
			return nil, errors.New("pq: connection reset")
		}
		rr := h.do(http.MethodPost, "/console/api/custom/pay_request", map[string]string{"id_plan": "pro"}, asAcc1)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
		if bytes.Contains(rr.Body.Bytes(), []byte("pq:")) {
			t.Fatalf("internal error leaked: %s", rr.Body.String())
		}
	})
}

func TestPayStatus(t *testing.T) {
	h := newHarness(t)
	pending := true
	h.payments.StatusFunc = func(ctx context.Context, accountID string) (*model.PaymentAlias, error) {
		if pending {
			return &model.PaymentAlias{AccountID: accountID, Alias: "01JABCDEFGHJKMNPQRSTVWXYZ0"}, nil
		}
		return nil, domain.ErrNotFound
	}

	rr := h.do(http.MethodGet, "/console/api/custom/pay_status/acc-1", nil, asAcc1)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decode[model.PayStatusResponse](t, rr); got.Alias == "" {
		t.Fatalf("expected alias while pending, got %+v", got)
	}

	pending = false
	rr = h.do(http.MethodGet, "/console/api/custom/pay_status/acc-1", nil, asAcc1)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 once resolved, got %d", rr.Code)
	}

	rr = h.do(http.MethodGet, "/console/api/custom/pay_status/acc-2", nil, asAcc1)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another account, got %d", rr.Code)
	}
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodGet, "/console/api/account/profile", nil, asAcc1)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Version") != "1.4.0" || rr.Header().Get("X-Env") != "test" {
		t.Fatalf("missing build headers: %v", rr.Header())
	}
	p := decode[model.UserProfile](t, rr)
	if p.CustomPlanID != "pro" || p.PlanExpiration == nil || *p.PlanExpiration != "2026-11-01T00:00:00Z" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestPublicSettings_EmptyWhenUnset(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodGet, "/console/api/custom/payment_settings", nil, asAcc1)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestApps_EmptyPage(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodGet, "/console/api/apps?page=2&limit=10", nil, asAcc1)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	list := decode[model.AppList](t, rr)
	if len(list.Data) != 0 || list.Page != 2 || list.Limit != 10 {
		t.Fatalf("unexpected app page %+v", list)
	}

	// recommended apps are managed by the host app, not here
	rr = h.do(http.MethodGet, "/dashboard/explore/apps", nil, map[string]string{"api-token": "dash-key"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for explore, got %d", rr.Code)
	}
}

//
// ---------------- dashboard routes ----------------
//

func TestDashboard_Guarded(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/dashboard/plans", nil, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", rr.Code)
	}

	rr = h.do(http.MethodGet, "/dashboard/plans", nil, map[string]string{"api-token": "dash-key"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
}

func TestDashboard_ReplacePlansInvalid(t *testing.T) {
	h := newHarness(t)
	h.plans.ReplaceFunc = func(ctx context.Context, plans []*model.Plan) error {
		return domain.ErrInvalidArgument
	}
	rr := h.do(http.MethodPut, "/dashboard/plans", []map[string]any{{"id": ""}}, map[string]string{"api-token": "dash-key"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDashboard_DeleteAccount(t *testing.T) {
	h := newHarness(t)
	tok := map[string]string{"api-token": "dash-key"}

	if rr := h.do(http.MethodDelete, "/dashboard/accounts/acc-1", nil, tok); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := h.do(http.MethodDelete, "/dashboard/accounts/acc-1", nil, tok); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}
}

func TestWebhook(t *testing.T) {
	body := map[string]any{"data": []map[string]any{
		{"transactionID": "T1", "amount": 199000, "description": "CK 01JABCDEFGHJKMNPQRSTVWXYZ0"},
		{"transactionID": "T2", "amount": 5000, "description": "coffee"},
	}}

	t.Run("reports each outcome", func(t *testing.T) {
		h := newHarness(t)
		h.payments.HandleWebhookFunc = func(ctx context.Context, apiKey string, tr *model.BankTransfer) (*usecase.WebhookResult, error) {
			if apiKey != "bank-key" {
				t.Fatalf("expected bank-key, got %q", apiKey)
			}
			if tr.TransactionID == "T1" {
				return &usecase.WebhookResult{Outcome: usecase.WebhookActivated, AccountID: "acc-1"}, nil
			}
			return &usecase.WebhookResult{Outcome: usecase.WebhookUnmatched}, nil
		}

		rr := h.do(http.MethodPost, "/dashboard/payment/webhook", body, map[string]string{"Authorization": "Apikey bank-key"})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		got := decode[struct {
			Status  string `json:"status"`
			Results []struct {
				TransactionID string `json:"transactionID"`
				Outcome       string `json:"outcome"`
			} `json:"results"`
		}](t, rr)
		if len(got.Results) != 2 || got.Results[0].Outcome != "activated" || got.Results[1].Outcome != "unmatched" {
			t.Fatalf("unexpected results %+v", got)
		}
	})

	t.Run("bad key -> 401", func(t *testing.T) {
		h := newHarness(t)
		h.payments.HandleWebhookFunc = func(ctx context.Context, apiKey string, tr *model.BankTransfer) (*usecase.WebhookResult, error) {
			t.Fatal("transfers must not be handled without a valid key")
			return nil, nil
		}
		rr := h.do(http.MethodPost, "/dashboard/payment/webhook", body, map[string]string{"Apikey": "wrong"})
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("empty batch still checks the key", func(t *testing.T) {
		h := newHarness(t)
		empty := map[string]any{"data": []any{}}

		rr := h.do(http.MethodPost, "/dashboard/payment/webhook", empty, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without key, got %d", rr.Code)
		}
		rr = h.do(http.MethodPost, "/dashboard/payment/webhook", empty, map[string]string{"Apikey": "bank-key"})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 with key, got %d", rr.Code)
		}
	})

	t.Run("bad json -> 400", func(t *testing.T) {
		h := newHarness(t)
		req := httptest.NewRequest(http.MethodPost, "/dashboard/payment/webhook", bytes.NewBufferString("{"))
		rr := httptest.NewRecorder()
		h.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})
}
