package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
	"custom-billing/internal/infra/security"
)

var _ repository.PaymentSettingsRepository = (*settingsRepo)(nil)

const settingsInfoName = "payment_setting"

// settingsRepo keeps payment settings in system_custom_info with the access
// token sealed by cipher.
type settingsRepo struct {
	pool   *pgxpool.Pool
	cipher security.Cipher
}

func NewSettingsRepo(pool *pgxpool.Pool, cipher security.Cipher) *settingsRepo {
	if cipher == nil {
		cipher = security.PlainCipher{}
	}
	return &settingsRepo{pool: pool, cipher: cipher}
}

// Get returns domain.ErrNotFound until settings are saved once.
func (r *settingsRepo) Get(ctx context.Context, tx repository.Tx) (*model.PaymentSettings, error) {
	var raw []byte
	if err := getCustomInfo(ctx, r.pool, tx, settingsInfoName, &raw); err != nil {
		return nil, err
	}
	s := &model.PaymentSettings{}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, domain.ErrNotFound
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("%w: decode payment settings: %v", domain.ErrReadDatabaseRow, err)
	}
	token, err := r.cipher.Decrypt(s.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	s.AccessToken = token
	return s, nil
}

func (r *settingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.PaymentSettings) error {
	sealed, err := r.cipher.Encrypt(s.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	stored := *s
	stored.AccessToken = sealed
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode payment settings: %w", err)
	}
	return putCustomInfo(ctx, r.pool, tx, settingsInfoName, raw)
}
