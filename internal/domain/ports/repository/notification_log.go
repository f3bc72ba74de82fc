package repository

import (
	"context"
	"time"
)

// NotificationLogRepository deduplicates scheduled reminders: one row per
// (user, kind, due date) regardless of how many worker runs observe the user.
type NotificationLogRepository interface {
	Save(ctx context.Context, tx Tx, userID, kind string, dueDate time.Time) error
	Exists(ctx context.Context, tx Tx, userID, kind string, dueDate time.Time) (bool, error)
}
