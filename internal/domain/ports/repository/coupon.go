package repository

import (
	"context"

	"intelligrid-billing/internal/domain/model"
)

type CouponRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Coupon) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Coupon, error)

	// IncrementUsage bumps used_count only while it is below the global
	// limit. Returns false when the cap is already reached.
	IncrementUsage(ctx context.Context, tx Tx, code string) (bool, error)

	// Redemptions back the per-user usage cap.
	SaveRedemption(ctx context.Context, tx Tx, code, userID, orderID string) error
	CountRedemptionsByUser(ctx context.Context, tx Tx, code, userID string) (int, error)
}
