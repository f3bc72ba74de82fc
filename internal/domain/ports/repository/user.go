package repository

import (
	"context"
	"time"

	"intelligrid-billing/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)

	// UpdateSubscription overwrites the embedded entitlement snapshot.
	UpdateSubscription(ctx context.Context, tx Tx, userID string, sub model.Subscription) error

	// ListRenewalsDue returns users whose subscription is active with
	// autoRenew set and endDate in [from, to).
	ListRenewalsDue(ctx context.Context, tx Tx, from, to time.Time) ([]*model.User, error)

	// ExpireOverdue marks active subscriptions whose endDate passed as
	// expired; returns how many rows changed.
	ExpireOverdue(ctx context.Context, tx Tx, now time.Time) (int, error)
}
