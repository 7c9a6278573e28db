package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"custom-billing/internal/domain/ports/repository"
	"custom-billing/internal/infra/metrics"
)

// AliasSweeper periodically deletes payment aliases that were never paid.
// An alias older than ttl can no longer be reconciled by the webhook.
type AliasSweeper struct {
	interval  time.Duration
	ttl       time.Duration
	aliases   repository.PaymentAliasRepository
	newTicker TickerFactory
	now       func() time.Time
	log       *zerolog.Logger
}

func NewAliasSweeper(interval, ttl time.Duration, aliases repository.PaymentAliasRepository, logger *zerolog.Logger) *AliasSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	swLog := logger.With().Str("component", "AliasSweeper").Logger()
	return &AliasSweeper{
		interval:  interval,
		ttl:       ttl,
		aliases:   aliases,
		newTicker: NewRealTicker,
		now:       time.Now,
		log:       &swLog,
	}
}

// WithTicker replaces the ticker source.
func (w *AliasSweeper) WithTicker(f TickerFactory) *AliasSweeper {
	if f != nil {
		w.newTicker = f
	}
	return w
}

func (w *AliasSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("ttl", w.ttl).Msg("Starting alias sweeper")
	ticker := w.newTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping alias sweeper")
			return ctx.Err()
		case <-ticker.C():
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce deletes every alias created before now-ttl and returns how many were removed.
func (w *AliasSweeper) SweepOnce(ctx context.Context) int {
	n, err := w.aliases.DeleteOlderThan(ctx, nil, w.now().Add(-w.ttl))
	if err != nil {
		metrics.IncJobRun("alias_sweeper", "error")
		w.log.Error().Err(err).Msg("alias sweep failed")
		return 0
	}
	metrics.IncJobRun("alias_sweeper", "ok")
	if n > 0 {
		metrics.AddAliasesSwept(n)
		w.log.Info().Int("count", n).Msg("expired payment aliases removed")
	}
	return n
}
