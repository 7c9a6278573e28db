//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/adapter"
	"custom-billing/internal/domain/ports/repository"
	red "custom-billing/internal/infra/redis"
)

// =============================
// Repositories (in-memory)
// =============================

// ---- Plans ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans []*model.Plan

	ListAllFunc    func(ctx context.Context, tx repository.Tx) ([]*model.Plan, error)
	ReplaceAllFunc func(ctx context.Context, tx repository.Tx, plans []*model.Plan) error
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo(plans ...*model.Plan) *MockPlanRepo {
	return &MockPlanRepo{plans: plans}
}

func (r *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	if r.ListAllFunc != nil {
		return r.ListAllFunc(ctx, tx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Plan, len(r.plans))
	copy(out, r.plans)
	return out, nil
}

func (r *MockPlanRepo) ReplaceAll(ctx context.Context, tx repository.Tx, plans []*model.Plan) error {
	if r.ReplaceAllFunc != nil {
		return r.ReplaceAllFunc(ctx, tx, plans)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = plans
	return nil
}

// ---- Accounts ----

type MockAccountRepo struct {
	mu   sync.Mutex
	data map[string]*model.Account

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Account, error)
	UpdateFunc   func(ctx context.Context, tx repository.Tx, u *model.AccountUpdate) error
	SetPlanFunc  func(ctx context.Context, tx repository.Tx, id, planID string, expiresAt time.Time) error
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo(accounts ...*model.Account) *MockAccountRepo {
	r := &MockAccountRepo{data: map[string]*model.Account{}}
	for _, a := range accounts {
		r.data[a.ID] = a
	}
	return r
}

func (r *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MockAccountRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Account, 0, len(r.data))
	for _, a := range r.data {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockAccountRepo) Update(ctx context.Context, tx repository.Tx, u *model.AccountUpdate) error {
	if r.UpdateFunc != nil {
		return r.UpdateFunc(ctx, tx, u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = u.Status
	a.CustomPlanID = u.CustomPlanID
	a.PlanExpiration = u.PlanExpiration
	a.MonthBeforeBanned = u.MonthBeforeBanned
	a.MaxOfApps = u.MaxOfApps
	a.MaxVectorSpace = u.MaxVectorSpace
	a.MaxAnnotationQuotaLimit = u.MaxAnnotationQuotaLimit
	a.MaxDocumentsUploadQuota = u.MaxDocumentsUploadQuota
	return nil
}

func (r *MockAccountRepo) SetPlan(ctx context.Context, tx repository.Tx, id, planID string, expiresAt time.Time) error {
	if r.SetPlanFunc != nil {
		return r.SetPlanFunc(ctx, tx, id, planID, expiresAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p := planID
	a.CustomPlanID = &p
	a.PlanExpiration = &expiresAt
	return nil
}

func (r *MockAccountRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// ---- Payment aliases ----

type MockAliasRepo struct {
	mu      sync.Mutex
	byAlias map[string]*model.PaymentAlias

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.PaymentAlias) error
}

var _ repository.PaymentAliasRepository = (*MockAliasRepo)(nil)

func NewMockAliasRepo(aliases ...*model.PaymentAlias) *MockAliasRepo {
	r := &MockAliasRepo{byAlias: map[string]*model.PaymentAlias{}}
	for _, a := range aliases {
		r.byAlias[strings.ToUpper(a.Alias)] = a
	}
	return r
}

func (r *MockAliasRepo) Save(ctx context.Context, tx repository.Tx, a *model.PaymentAlias) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := strings.ToUpper(a.Alias)
	if _, ok := r.byAlias[k]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *a
	r.byAlias[k] = &cp
	return nil
}

func (r *MockAliasRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.PaymentAlias, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byAlias {
		if a.AccountID == accountID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAliasRepo) FindByAlias(ctx context.Context, tx repository.Tx, alias string) (*model.PaymentAlias, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byAlias[strings.ToUpper(alias)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MockAliasRepo) FindByAnyAlias(ctx context.Context, tx repository.Tx, candidates []string) (*model.PaymentAlias, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *model.PaymentAlias
	for _, c := range candidates {
		a, ok := r.byAlias[strings.ToUpper(c)]
		if ok && (found == nil || a.CreatedAt.Before(found.CreatedAt)) {
			found = a
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *MockAliasRepo) DeleteByAccount(ctx context.Context, tx repository.Tx, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, a := range r.byAlias {
		if a.AccountID == accountID {
			delete(r.byAlias, k)
		}
	}
	return nil
}

func (r *MockAliasRepo) DeleteByAlias(ctx context.Context, tx repository.Tx, alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := strings.ToUpper(alias)
	if _, ok := r.byAlias[k]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byAlias, k)
	return nil
}

func (r *MockAliasRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, a := range r.byAlias {
		if a.CreatedAt.Before(cutoff) {
			delete(r.byAlias, k)
			n++
		}
	}
	return n, nil
}

func (r *MockAliasRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byAlias)
}

// ---- Payment history ----

type MockHistoryRepo struct {
	mu   sync.Mutex
	rows []*model.PaymentHistory

	SaveFunc func(ctx context.Context, tx repository.Tx, h *model.PaymentHistory) error
}

var _ repository.PaymentHistoryRepository = (*MockHistoryRepo)(nil)

func NewMockHistoryRepo() *MockHistoryRepo { return &MockHistoryRepo{} }

func (r *MockHistoryRepo) Save(ctx context.Context, tx repository.Tx, h *model.PaymentHistory) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, h)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if h.TransactionID != "" && row.TransactionID == h.TransactionID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *h
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MockHistoryRepo) ExistsByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockHistoryRepo) SumByAlias(ctx context.Context, tx repository.Tx, alias string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, row := range r.rows {
		if row.Alias != "" && strings.EqualFold(row.Alias, alias) {
			sum += row.Amount
		}
	}
	return sum, nil
}

func (r *MockHistoryRepo) List(ctx context.Context, tx repository.Tx) ([]*model.PaymentHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.PaymentHistory, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

// ---- Payment settings ----

type MockSettingsRepo struct {
	mu sync.Mutex
	s  *model.PaymentSettings
}

var _ repository.PaymentSettingsRepository = (*MockSettingsRepo)(nil)

func NewMockSettingsRepo(s *model.PaymentSettings) *MockSettingsRepo { return &MockSettingsRepo{s: s} }

func (r *MockSettingsRepo) Get(ctx context.Context, tx repository.Tx) (*model.PaymentSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s == nil {
		return nil, domain.ErrNotFound
	}
	cp := *r.s
	return &cp, nil
}

func (r *MockSettingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.PaymentSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.s = &cp
	return nil
}

// ---- Tx manager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

type MockQRBuilder struct {
	BuildFunc func(settings *model.PaymentSettings, amount float64, alias string) (string, error)
}

var _ adapter.QRCodeURLBuilder = (*MockQRBuilder)(nil)

func (m *MockQRBuilder) Build(settings *model.PaymentSettings, amount float64, alias string) (string, error) {
	if m.BuildFunc != nil {
		return m.BuildFunc(settings, amount, alias)
	}
	return "https://qr.test/" + settings.BankID + "?addInfo=" + alias, nil
}

type MockLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Err    error
}

func NewMockLimiter() *MockLimiter { return &MockLimiter{counts: map[string]int{}} }

func (l *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l.Err != nil {
		return false, l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

// ---- In-memory Locker (implements redis.Locker port) ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ red.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLocked
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func strPtr(s string) *string { return &s }
