// File: internal/infra/sched/outbox_worker.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
	"intelligrid-billing/internal/domain/ports/repository"
	"intelligrid-billing/internal/infra/mail"
	"intelligrid-billing/internal/infra/metrics"
)

const (
	outboxBatchSize   = 50
	outboxMaxAttempts = 5
)

// OutboxWorker drains the email outbox with at-least-once delivery. Failed
// sends are retried with exponential backoff until the attempt budget runs
// out, then dead-lettered for manual inspection.
type OutboxWorker struct {
	outbox   repository.OutboxRepository
	mailer   adapter.Mailer
	interval time.Duration
	log      zerolog.Logger
}

func NewOutboxWorker(outbox repository.OutboxRepository, mailer adapter.Mailer, interval time.Duration, logger *zerolog.Logger) *OutboxWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OutboxWorker{
		outbox:   outbox,
		mailer:   mailer,
		interval: interval,
		log:      logger.With().Str("component", "outbox-worker").Logger(),
	}
}

func (w *OutboxWorker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) drain(ctx context.Context) {
	due, err := w.outbox.ListDue(ctx, nil, time.Now(), outboxBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("outbox list due failed")
		return
	}
	for _, e := range due {
		w.deliver(ctx, e)
	}
}

func (w *OutboxWorker) deliver(ctx context.Context, e *model.OutboxEmail) {
	email, err := mail.Render(e)
	if err != nil {
		// Unrenderable rows will never succeed; dead-letter immediately.
		w.log.Error().Err(err).Str("email_id", e.ID).Msg("outbox render failed")
		w.fail(ctx, e, err.Error(), true)
		return
	}

	if err := w.mailer.Send(ctx, email); err != nil {
		dead := e.Attempts+1 >= outboxMaxAttempts
		w.log.Warn().Err(err).Str("email_id", e.ID).Int("attempts", e.Attempts+1).Bool("dead", dead).Msg("outbox send failed")
		w.fail(ctx, e, err.Error(), dead)
		return
	}

	if err := w.outbox.MarkSent(ctx, nil, e.ID, time.Now()); err != nil {
		// The email went out but the row stays due: the next drain re-sends.
		// Acceptable under at-least-once semantics.
		w.log.Error().Err(err).Str("email_id", e.ID).Msg("outbox mark sent failed")
		return
	}
	metrics.IncOutboxEmail(string(e.Kind), "sent")
}

func (w *OutboxWorker) fail(ctx context.Context, e *model.OutboxEmail, msg string, dead bool) {
	next := time.Now().Add(backoff(e.Attempts + 1))
	if err := w.outbox.MarkFailed(ctx, nil, e.ID, msg, next, dead); err != nil {
		w.log.Error().Err(err).Str("email_id", e.ID).Msg("outbox mark failed failed")
		return
	}
	status := "failed"
	if dead {
		status = "dead"
	}
	metrics.IncOutboxEmail(string(e.Kind), status)
}

// backoff doubles per attempt starting at one minute: 1m, 2m, 4m, 8m...
func backoff(attempt int) time.Duration {
	d := time.Minute
	for i := 1; i < attempt && d < time.Hour; i++ {
		d *= 2
	}
	return d
}
