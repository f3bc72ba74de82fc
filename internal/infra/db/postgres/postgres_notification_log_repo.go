package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct{ pool *pgxpool.Pool }

func NewPostgresNotificationLogRepo(pool *pgxpool.Pool) *notificationLogRepo {
	return &notificationLogRepo{pool: pool}
}

func (r *notificationLogRepo) Save(ctx context.Context, tx repository.Tx, userID, kind string, dueDate time.Time) error {
	// ON CONFLICT keeps the worker idempotent across overlapping runs.
	const q = `
INSERT INTO notification_logs (user_id, kind, due_date, sent_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (user_id, kind, due_date) DO NOTHING;`

	_, err := execSQL(ctx, r.pool, tx, q, userID, kind, dueDate)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *notificationLogRepo) Exists(ctx context.Context, tx repository.Tx, userID, kind string, dueDate time.Time) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM notification_logs WHERE user_id=$1 AND kind=$2 AND due_date=$3);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, kind, dueDate)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}
