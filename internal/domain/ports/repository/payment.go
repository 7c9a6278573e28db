package repository

import (
	"context"
	"time"

	"custom-billing/internal/domain/model"
)

// -----------------------------
// Payment aliases
// -----------------------------

type PaymentAliasRepository interface {
	Save(ctx context.Context, tx Tx, a *model.PaymentAlias) error
	FindByAccount(ctx context.Context, tx Tx, accountID string) (*model.PaymentAlias, error)
	FindByAlias(ctx context.Context, tx Tx, alias string) (*model.PaymentAlias, error)
	// FindByAnyAlias returns the oldest session whose alias is one of candidates.
	FindByAnyAlias(ctx context.Context, tx Tx, candidates []string) (*model.PaymentAlias, error)
	DeleteByAccount(ctx context.Context, tx Tx, accountID string) error
	DeleteByAlias(ctx context.Context, tx Tx, alias string) error
	DeleteOlderThan(ctx context.Context, tx Tx, cutoff time.Time) (int, error)
}

// -----------------------------
// Payment history
// -----------------------------

type PaymentHistoryRepository interface {
	Save(ctx context.Context, tx Tx, h *model.PaymentHistory) error
	ExistsByTransactionID(ctx context.Context, tx Tx, transactionID string) (bool, error)
	// SumByAlias totals the transfers already recorded against a payment session.
	SumByAlias(ctx context.Context, tx Tx, alias string) (float64, error)
	List(ctx context.Context, tx Tx) ([]*model.PaymentHistory, error)
}

// -----------------------------
// Payment settings
// -----------------------------

type PaymentSettingsRepository interface {
	Get(ctx context.Context, tx Tx) (*model.PaymentSettings, error)
	Save(ctx context.Context, tx Tx, s *model.PaymentSettings) error
}
