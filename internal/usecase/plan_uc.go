package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
	"custom-billing/internal/infra/logging"
	"custom-billing/internal/infra/metrics"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase manages the custom plan list.
type PlanUseCase interface {
	List(ctx context.Context) ([]*model.Plan, error)
	Get(ctx context.Context, id string) (*model.Plan, error)
	// Replace validates and stores the whole plan list.
	Replace(ctx context.Context, plans []*model.Plan) error
}

type planUC struct {
	plans repository.PlanRepository
	log   *zerolog.Logger
}

func NewPlanUseCase(plans repository.PlanRepository, logger *zerolog.Logger) *planUC {
	l := logger.With().Str("component", "PlanUC").Logger()
	return &planUC{plans: plans, log: &l}
}

func (u *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.List")()
	return u.plans.ListAll(ctx, nil)
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	plans, err := u.plans.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	p := model.FindPlan(plans, id)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (u *planUC) Replace(ctx context.Context, plans []*model.Plan) error {
	defer logging.TraceDuration(u.log, "PlanUC.Replace")()

	seen := make(map[string]struct{}, len(plans))
	for i, p := range plans {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("plan %d: %w", i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("plan %q listed twice: %w", p.ID, domain.ErrInvalidArgument)
		}
		seen[p.ID] = struct{}{}
	}
	if plans == nil {
		plans = []*model.Plan{}
	}
	if err := u.plans.ReplaceAll(ctx, nil, plans); err != nil {
		u.log.Error().Err(err).Msg("failed to store plans")
		return err
	}
	metrics.SetPlansConfigured(len(plans))
	u.log.Info().Int("count", len(plans)).Msg("plan list replaced")
	return nil
}
