// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/repository"
	"intelligrid-billing/internal/infra/metrics"
)

const kindRenewalReminder = "renewal_reminder"

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// SendRenewalReminders enqueues one reminder email per auto-renewing
	// subscription whose endDate falls exactly daysAhead calendar days out.
	// Returns how many reminders were enqueued.
	SendRenewalReminders(ctx context.Context, now time.Time) (int, error)
	// ExpireOverdue flips active subscriptions past their endDate to expired.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

type notificationUC struct {
	users     repository.UserRepository
	notifLog  repository.NotificationLogRepository
	outbox    repository.OutboxRepository
	daysAhead int
	log       *zerolog.Logger
}

func NewNotificationUseCase(
	users repository.UserRepository,
	notifLog repository.NotificationLogRepository,
	outbox repository.OutboxRepository,
	daysAhead int,
	logger *zerolog.Logger,
) *notificationUC {
	ucLog := logger.With().Str("component", "NotificationUC").Logger()
	if daysAhead <= 0 {
		daysAhead = 3
	}
	return &notificationUC{users: users, notifLog: notifLog, outbox: outbox, daysAhead: daysAhead, log: &ucLog}
}

func (n *notificationUC) SendRenewalReminders(ctx context.Context, now time.Time) (int, error) {
	// [start of day+N, end of day+N) in server-local time.
	day := now.AddDate(0, 0, n.daysAhead)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)

	users, err := n.users.ListRenewalsDue(ctx, nil, from, to)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		exists, err := n.notifLog.Exists(ctx, nil, u.ID, kindRenewalReminder, from)
		if err != nil {
			n.log.Error().Err(err).Str("user_id", u.ID).Msg("notification log lookup failed")
			continue
		}
		if exists {
			continue
		}
		e := &model.OutboxEmail{
			ID:        uuid.NewString(),
			Recipient: u.Email,
			Kind:      model.EmailKindRenewalReminder,
			Payload: map[string]string{
				"name":     u.Name,
				"tier":     string(u.Subscription.Tier),
				"end_date": u.Subscription.EndDate.Format("2006-01-02"),
			},
			Status:        model.EmailStatusPending,
			NextAttemptAt: now,
			CreatedAt:     now,
		}
		if err := n.outbox.Enqueue(ctx, nil, e); err != nil {
			n.log.Error().Err(err).Str("user_id", u.ID).Msg("failed to enqueue renewal reminder")
			continue
		}
		if err := n.notifLog.Save(ctx, nil, u.ID, kindRenewalReminder, from); err != nil {
			n.log.Error().Err(err).Str("user_id", u.ID).Msg("failed to record renewal reminder")
			continue
		}
		sent++
	}
	if sent > 0 {
		metrics.AddRenewalReminders(sent)
	}
	return sent, nil
}

func (n *notificationUC) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	count, err := n.users.ExpireOverdue(ctx, nil, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.AddSubscriptionsExpired(count)
	}
	return count, nil
}
