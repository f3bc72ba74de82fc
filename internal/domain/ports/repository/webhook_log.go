package repository

import (
	"context"

	"intelligrid-billing/internal/domain/model"
)

type WebhookLogRepository interface {
	// Save persists the verbatim callback before any verification happens.
	Save(ctx context.Context, tx Tx, l *model.WebhookLog) error
	// SetStatus records the processing outcome; the payload never mutates.
	SetStatus(ctx context.Context, tx Tx, id string, status model.WebhookStatus, errMsg string) error
}
