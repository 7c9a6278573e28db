package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountColumns = `id, name, email, status, id_custom_plan, plan_expiration, month_before_banned,
  max_of_apps, max_vector_space, max_annotation_quota_limit, max_documents_upload_quota,
  last_login_at, last_login_ip, last_active_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Status, &a.CustomPlanID, &a.PlanExpiration, &a.MonthBeforeBanned,
		&a.MaxOfApps, &a.MaxVectorSpace, &a.MaxAnnotationQuotaLimit, &a.MaxDocumentsUploadQuota,
		&a.LastLoginAt, &a.LastLoginIP, &a.LastActiveAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

func (r *accountRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Account, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC;`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []*model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *accountRepo) Update(ctx context.Context, tx repository.Tx, u *model.AccountUpdate) error {
	const q = `
UPDATE accounts
   SET status=$2, id_custom_plan=$3, plan_expiration=$4, month_before_banned=$5,
       max_of_apps=$6, max_vector_space=$7, max_annotation_quota_limit=$8, max_documents_upload_quota=$9,
       updated_at=NOW()
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Status, u.CustomPlanID, u.PlanExpiration, u.MonthBeforeBanned,
		u.MaxOfApps, u.MaxVectorSpace, u.MaxAnnotationQuotaLimit, u.MaxDocumentsUploadQuota)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SetPlan(ctx context.Context, tx repository.Tx, id, planID string, expiresAt time.Time) error {
	const q = `UPDATE accounts SET id_custom_plan=$2, plan_expiration=$3, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, planID, expiresAt)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM accounts WHERE id=$1;`, id)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
