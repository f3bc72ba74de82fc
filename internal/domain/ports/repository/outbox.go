package repository

import (
	"context"
	"time"

	"intelligrid-billing/internal/domain/model"
)

type OutboxRepository interface {
	Enqueue(ctx context.Context, tx Tx, e *model.OutboxEmail) error
	// ListDue returns pending/failed emails whose next attempt is due.
	ListDue(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.OutboxEmail, error)
	MarkSent(ctx context.Context, tx Tx, id string, at time.Time) error
	// MarkFailed records the error and schedules the next attempt, or
	// dead-letters the row when dead is true.
	MarkFailed(ctx context.Context, tx Tx, id, errMsg string, nextAttempt time.Time, dead bool) error
}
