package repository

import (
	"context"
	"time"

	"custom-billing/internal/domain/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	List(ctx context.Context, tx Tx) ([]*model.Account, error)
	Update(ctx context.Context, tx Tx, u *model.AccountUpdate) error
	SetPlan(ctx context.Context, tx Tx, id, planID string, expiresAt time.Time) error
	Delete(ctx context.Context, tx Tx, id string) error
}
