package repository

import (
	"context"
	"time"

	"intelligrid-billing/internal/domain/model"
)

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	FindByProviderOrderID(ctx context.Context, tx Tx, gateway model.Gateway, providerOrderID string) (*model.Order, error)

	// MarkPaidIfPending is the single idempotent "mark order paid" operation:
	// a conditional update applied only while status is 'pending'. Returns
	// false (and no error) when the order already reached a terminal status,
	// which lets the direct-capture and webhook paths race safely.
	MarkPaidIfPending(ctx context.Context, tx Tx, id string, details model.PaymentDetails, paidAt time.Time) (bool, error)

	// UpdateStatusIfPending moves a pending order to a terminal non-paid
	// status (failed/cancelled). Same conditional semantics as MarkPaidIfPending.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.OrderStatus) (bool, error)

	// MarkRefunded flips a completed order to refunded.
	MarkRefunded(ctx context.Context, tx Tx, id string) (bool, error)

	// MarkCancelled cancels a pending or completed order (subscription
	// cancelled at the provider).
	MarkCancelled(ctx context.Context, tx Tx, id string) (bool, error)

	// ApplyDiscount writes the coupon code plus recomputed discount/total.
	ApplyDiscount(ctx context.Context, tx Tx, id, couponCode string, discount, total int64) error

	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Order, error)
}
