package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/repository"
)

var _ repository.WebhookLogRepository = (*webhookLogRepo)(nil)

type webhookLogRepo struct{ pool *pgxpool.Pool }

func NewPostgresWebhookLogRepo(pool *pgxpool.Pool) *webhookLogRepo {
	return &webhookLogRepo{pool: pool}
}

func (r *webhookLogRepo) Save(ctx context.Context, tx repository.Tx, l *model.WebhookLog) error {
	headers, err := json.Marshal(l.Headers)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO webhook_logs (id, source, event_type, payload, headers, status, error, received_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err = execSQL(ctx, r.pool, tx, q, l.ID, l.Source, l.EventType, l.Payload, headers, l.Status, l.Error, l.ReceivedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookLogRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.WebhookStatus, errMsg string) error {
	const q = `UPDATE webhook_logs SET status=$2, error=$3, processed_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, status, errMsg)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
