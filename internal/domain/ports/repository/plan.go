package repository

import (
	"context"

	"custom-billing/internal/domain/model"
)

// PlanRepository stores the custom plan list as a single document.
type PlanRepository interface {
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
	// ReplaceAll overwrites the whole plan list.
	ReplaceAll(ctx context.Context, tx Tx, plans []*model.Plan) error
}
