package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/repository"
)

var _ repository.OutboxRepository = (*outboxRepo)(nil)

type outboxRepo struct{ pool *pgxpool.Pool }

func NewPostgresOutboxRepo(pool *pgxpool.Pool) *outboxRepo {
	return &outboxRepo{pool: pool}
}

func (r *outboxRepo) Enqueue(ctx context.Context, tx repository.Tx, e *model.OutboxEmail) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO email_outbox (id, recipient, kind, payload, status, attempts, next_attempt_at, last_error, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err = execSQL(ctx, r.pool, tx, q, e.ID, e.Recipient, e.Kind, payload, e.Status, e.Attempts, e.NextAttemptAt, e.LastError, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *outboxRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.OutboxEmail, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, recipient, kind, payload, status, attempts, next_attempt_at, last_error, created_at, sent_at
  FROM email_outbox
 WHERE status IN ('pending','failed') AND next_attempt_at <= $1
 ORDER BY next_attempt_at ASC
 LIMIT $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.OutboxEmail
	for rows.Next() {
		e := &model.OutboxEmail{}
		var payload []byte
		if err := rows.Scan(&e.ID, &e.Recipient, &e.Kind, &payload, &e.Status, &e.Attempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, domain.ErrReadDatabaseRow
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *outboxRepo) MarkSent(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE email_outbox SET status='sent', sent_at=$2, last_error='' WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *outboxRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errMsg string, nextAttempt time.Time, dead bool) error {
	status := model.EmailStatusFailed
	if dead {
		status = model.EmailStatusDead
	}
	const q = `UPDATE email_outbox SET status=$2, attempts=attempts+1, next_attempt_at=$3, last_error=$4 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, status, nextAttempt, errMsg)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
