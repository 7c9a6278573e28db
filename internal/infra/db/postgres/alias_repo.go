package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
)

var _ repository.PaymentAliasRepository = (*aliasRepo)(nil)

type aliasRepo struct{ pool *pgxpool.Pool }

func NewAliasRepo(pool *pgxpool.Pool) *aliasRepo {
	return &aliasRepo{pool: pool}
}

func scanAlias(row pgx.Row) (*model.PaymentAlias, error) {
	a := &model.PaymentAlias{}
	var raw []byte
	if err := row.Scan(&a.ID, &a.AccountID, &a.Alias, &raw, &a.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.Value); err != nil {
			return nil, fmt.Errorf("%w: decode alias value: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return a, nil
}

// Save fails with domain.ErrAlreadyExists when the alias is taken.
func (r *aliasRepo) Save(ctx context.Context, tx repository.Tx, a *model.PaymentAlias) error {
	raw, err := json.Marshal(a.Value)
	if err != nil {
		return fmt.Errorf("encode alias value: %w", err)
	}
	const q = `
INSERT INTO alies_payments_custom (id, id_account, alies, value, created_at)
VALUES ($1, $2, $3, $4::jsonb, $5);`
	_, err = execSQL(ctx, r.pool, tx, q, a.ID, a.AccountID, a.Alias, string(raw), a.CreatedAt)
	return mapErr(err)
}

// FindByAccount returns the newest alias of the account.
func (r *aliasRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.PaymentAlias, error) {
	const q = `SELECT id, id_account, alies, value, created_at FROM alies_payments_custom
WHERE id_account=$1 ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return nil, err
	}
	return scanAlias(row)
}

// FindByAlias matches case-insensitively; bank descriptions are often upper-cased.
func (r *aliasRepo) FindByAlias(ctx context.Context, tx repository.Tx, alias string) (*model.PaymentAlias, error) {
	q := `SELECT id, id_account, alies, value, created_at FROM alies_payments_custom WHERE upper(alies)=upper($1)`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", alias)
	if err != nil {
		return nil, err
	}
	return scanAlias(row)
}

// FindByAnyAlias checks every candidate in one round trip. candidates are
// expected upper-cased.
func (r *aliasRepo) FindByAnyAlias(ctx context.Context, tx repository.Tx, candidates []string) (*model.PaymentAlias, error) {
	if len(candidates) == 0 {
		return nil, domain.ErrNotFound
	}
	const q = `SELECT id, id_account, alies, value, created_at FROM alies_payments_custom
WHERE upper(alies) = ANY($1) ORDER BY created_at LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, candidates)
	if err != nil {
		return nil, err
	}
	return scanAlias(row)
}

func (r *aliasRepo) DeleteByAccount(ctx context.Context, tx repository.Tx, accountID string) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM alies_payments_custom WHERE id_account=$1;`, accountID)
	return mapErr(err)
}

func (r *aliasRepo) DeleteByAlias(ctx context.Context, tx repository.Tx, alias string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM alies_payments_custom WHERE upper(alies)=upper($1);`, alias)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *aliasRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM alies_payments_custom WHERE created_at < $1;`, cutoff)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(cmd.RowsAffected()), nil
}
