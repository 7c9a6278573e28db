package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase is the operator view of console accounts.
type AccountUseCase interface {
	Get(ctx context.Context, id string) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	// BulkUpdate applies every update or none.
	BulkUpdate(ctx context.Context, updates []*model.AccountUpdate) error
	Delete(ctx context.Context, id string) error
}

type accountUC struct {
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, tm repository.TransactionManager, logger *zerolog.Logger) *accountUC {
	l := logger.With().Str("component", "AccountUC").Logger()
	return &accountUC{accounts: accounts, tm: tm, log: &l}
}

func (u *accountUC) Get(ctx context.Context, id string) (*model.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.accounts.FindByID(ctx, nil, id)
}

func (u *accountUC) List(ctx context.Context) ([]*model.Account, error) {
	return u.accounts.List(ctx, nil)
}

var accountStatuses = map[string]bool{"active": true, "pending": true, "uninitialized": true, "banned": true, "closed": true}

func (u *accountUC) BulkUpdate(ctx context.Context, updates []*model.AccountUpdate) error {
	for _, up := range updates {
		if up == nil || up.ID == "" {
			return domain.ErrInvalidArgument
		}
		if !accountStatuses[up.Status] {
			return fmt.Errorf("account %s: unknown status %q: %w", up.ID, up.Status, domain.ErrInvalidArgument)
		}
		if up.MonthBeforeBanned < 0 || up.MaxOfApps < 0 || up.MaxVectorSpace < 0 ||
			up.MaxAnnotationQuotaLimit < 0 || up.MaxDocumentsUploadQuota < 0 {
			return fmt.Errorf("account %s: negative limit: %w", up.ID, domain.ErrInvalidArgument)
		}
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, up := range updates {
			if err := u.accounts.Update(ctx, tx, up); err != nil {
				return fmt.Errorf("update account %s: %w", up.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		u.log.Error().Err(err).Int("count", len(updates)).Msg("bulk account update failed")
		return err
	}
	u.log.Info().Int("count", len(updates)).Msg("accounts updated")
	return nil
}

func (u *accountUC) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.accounts.Delete(ctx, nil, id); err != nil {
		return err
	}
	u.log.Info().Str("account_id", id).Msg("account deleted")
	return nil
}
