// File: internal/infra/sched/renewal_worker.go
package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/infra/redis"
	"intelligrid-billing/internal/usecase"
)

const renewalLockKey = "jobs:renewal_sweep"

// RenewalWorker runs the daily subscription sweep: renewal reminder emails
// for subscriptions ending soon, then expiry of overdue ones. A redis lock
// elects a single leader per run so multiple replicas never double-send.
type RenewalWorker struct {
	uc           usecase.NotificationUseCase
	locker       redis.Locker
	interval     time.Duration
	initialDelay time.Duration
	log          zerolog.Logger
}

func NewRenewalWorker(uc usecase.NotificationUseCase, locker redis.Locker, interval, initialDelay time.Duration, logger *zerolog.Logger) *RenewalWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if initialDelay <= 0 {
		initialDelay = time.Minute
	}
	return &RenewalWorker{
		uc:           uc,
		locker:       locker,
		interval:     interval,
		initialDelay: initialDelay,
		log:          logger.With().Str("component", "renewal-worker").Logger(),
	}
}

func (w *RenewalWorker) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(w.initialDelay):
	}
	w.tick(ctx)

	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *RenewalWorker) tick(ctx context.Context) {
	// Lock TTL outlives any realistic sweep but is far below the interval,
	// so a crashed leader does not block the next run.
	token, err := w.locker.TryLock(ctx, renewalLockKey, 10*time.Minute)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Debug().Msg("another replica holds the renewal lock, skipping")
			return
		}
		w.log.Error().Err(err).Msg("renewal lock attempt failed")
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, renewalLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("renewal lock release failed")
		}
	}()

	now := time.Now()
	reminders, err := w.uc.SendRenewalReminders(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("renewal reminder sweep failed")
	}
	expired, err := w.uc.ExpireOverdue(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("subscription expiry sweep failed")
	}
	w.log.Info().Int("reminders", reminders).Int("expired", expired).Msg("renewal sweep done")
}
