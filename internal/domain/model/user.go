package model

import (
	"time"

	"intelligrid-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription is the denormalized entitlement snapshot embedded on the user.
// It is overwritten, never merged, whenever a payment completes; it is the
// only state consulted to gate premium features.
type Subscription struct {
	Tier      Tier
	Status    SubscriptionStatus
	StartDate time.Time
	EndDate   time.Time
	AutoRenew bool
}

type User struct {
	ID           string // UUID
	Email        string
	Name         string
	Subscription Subscription
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a user with the default free entitlement.
func NewUser(id, email, name string) (*User, error) {
	if id == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:    id,
		Email: email,
		Name:  name,
		Subscription: Subscription{
			Tier:      TierFree,
			Status:    SubscriptionStatusActive,
			StartDate: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ActivatedSubscription computes the entitlement written after a completed
// payment. The term is reset from `now`, not extended: reactivating an
// already-active subscription discards any remaining time.
func ActivatedSubscription(tier Tier, duration Duration, now time.Time) Subscription {
	var end time.Time
	switch duration {
	case DurationYearly:
		end = now.AddDate(1, 0, 0)
	default:
		end = now.AddDate(0, 1, 0)
	}
	return Subscription{
		Tier:      tier,
		Status:    SubscriptionStatusActive,
		StartDate: now,
		EndDate:   end,
		AutoRenew: true,
	}
}
