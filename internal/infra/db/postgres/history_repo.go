package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
)

var _ repository.PaymentHistoryRepository = (*historyRepo)(nil)

// historyRepo stores each received transfer as a JSONB document. The
// transaction id is unique through an expression index.
type historyRepo struct{ pool *pgxpool.Pool }

func NewHistoryRepo(pool *pgxpool.Pool) *historyRepo {
	return &historyRepo{pool: pool}
}

func (r *historyRepo) Save(ctx context.Context, tx repository.Tx, h *model.PaymentHistory) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode payment history: %w", err)
	}
	const q = `INSERT INTO payments_history_custom (id, value) VALUES ($1, $2::jsonb);`
	_, err = execSQL(ctx, r.pool, tx, q, h.ID, string(raw))
	return mapErr(err)
}

func (r *historyRepo) ExistsByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM payments_history_custom WHERE value->>'transactionID' = $1);`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *historyRepo) SumByAlias(ctx context.Context, tx repository.Tx, alias string) (float64, error) {
	const q = `SELECT COALESCE(SUM((value->>'amount')::numeric), 0)::float8
FROM payments_history_custom WHERE upper(value->>'alies') = upper($1);`
	row, err := pickRow(ctx, r.pool, tx, q, alias)
	if err != nil {
		return 0, err
	}
	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *historyRepo) List(ctx context.Context, tx repository.Tx) ([]*model.PaymentHistory, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT id, value FROM payments_history_custom ORDER BY created_at DESC;`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []*model.PaymentHistory{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		h := &model.PaymentHistory{}
		if err := json.Unmarshal(raw, h); err != nil {
			return nil, fmt.Errorf("%w: decode payment history: %v", domain.ErrReadDatabaseRow, err)
		}
		h.ID = id
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
