package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"custom-billing/internal/config"
	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ FeatureUseCase = (*featureUC)(nil)

// FeatureUseCase resolves the workspace limits of an account.
type FeatureUseCase interface {
	ForAccount(ctx context.Context, accountID string) (*model.FeatureLimits, error)
}

type featureUC struct {
	accounts repository.AccountRepository
	plans    repository.PlanRepository
	defaults config.FeatureDefaults
	now      func() time.Time
	log      *zerolog.Logger
}

func NewFeatureUseCase(accounts repository.AccountRepository, plans repository.PlanRepository, defaults config.FeatureDefaults, logger *zerolog.Logger) *featureUC {
	l := logger.With().Str("component", "FeatureUC").Logger()
	return &featureUC{accounts: accounts, plans: plans, defaults: defaults, now: time.Now, log: &l}
}

// ForAccount starts from the configured defaults. An unexpired custom plan
// replaces them, and per-account limits can only raise the result.
func (u *featureUC) ForAccount(ctx context.Context, accountID string) (*model.FeatureLimits, error) {
	acc, err := u.accounts.FindByID(ctx, nil, accountID)
	if err != nil {
		return nil, err
	}

	d := u.defaults
	out := &model.FeatureLimits{
		Members:              d.Members,
		Apps:                 d.Apps,
		VectorSpace:          d.VectorSpace,
		KnowledgeRateLimit:   d.KnowledgeRateLimit,
		AnnotationQuotaLimit: d.AnnotationQuotaLimit,
		DocumentsUploadQuota: d.DocumentsUploadQuota,
	}

	if acc.HasActivePlan(u.now()) {
		plans, err := u.plans.ListAll(ctx, nil)
		switch {
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			u.log.Warn().Err(err).Str("account_id", accountID).Msg("plan list unavailable, using defaults")
		case err == nil:
			if p := model.FindPlan(plans, *acc.CustomPlanID); p != nil {
				f := p.Features
				out.Members = f.Members
				out.Apps = f.Apps
				out.VectorSpace = f.VectorSpace
				out.KnowledgeRateLimit = f.KnowledgeRateLimit
				out.AnnotationQuotaLimit = f.AnnotationQuotaLimit
				out.DocumentsUploadQuota = f.DocumentsUploadQuota
				out.PlanID = p.ID
			}
		}
	}

	out.Apps = max(out.Apps, acc.MaxOfApps)
	out.VectorSpace = max(out.VectorSpace, acc.MaxVectorSpace)
	out.AnnotationQuotaLimit = max(out.AnnotationQuotaLimit, acc.MaxAnnotationQuotaLimit)
	out.DocumentsUploadQuota = max(out.DocumentsUploadQuota, acc.MaxDocumentsUploadQuota)
	return out, nil
}
