package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PlanRepo)(nil)

const planInfoName = "plan"

// PlanRepo keeps the plan list as one JSONB document in system_custom_info.
type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

// ListAll returns an empty list when no plans were ever saved.
func (r *PlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	var raw []byte
	if err := getCustomInfo(ctx, r.pool, tx, planInfoName, &raw); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []*model.Plan{}, nil
		}
		return nil, err
	}
	plans := []*model.Plan{}
	if len(raw) == 0 || string(raw) == "null" {
		return plans, nil
	}
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("%w: decode plans: %v", domain.ErrReadDatabaseRow, err)
	}
	return plans, nil
}

func (r *PlanRepo) ReplaceAll(ctx context.Context, tx repository.Tx, plans []*model.Plan) error {
	if plans == nil {
		plans = []*model.Plan{}
	}
	raw, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encode plans: %w", err)
	}
	return putCustomInfo(ctx, r.pool, tx, planInfoName, raw)
}

func getCustomInfo(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, name string, dst *[]byte) error {
	q := `SELECT value FROM system_custom_info WHERE name=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, pool, tx, q+";", name)
	if err != nil {
		return err
	}
	if err := row.Scan(dst); err != nil {
		return mapErr(err)
	}
	return nil
}

func putCustomInfo(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, name string, value []byte) error {
	const q = `
INSERT INTO system_custom_info (id, name, value)
VALUES (gen_random_uuid(), $1, $2::jsonb)
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value;`
	_, err := execSQL(ctx, pool, tx, q, name, string(value))
	return mapErr(err)
}
