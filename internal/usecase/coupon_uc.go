// File: internal/usecase/coupon_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ CouponUseCase = (*couponUC)(nil)

type CouponUseCase interface {
	// Apply validates a coupon against its window and usage caps, writes
	// the discount onto the order, and records the redemption.
	Apply(ctx context.Context, userID, orderID, code string) (*model.Order, error)
}

type couponUC struct {
	orders  repository.OrderRepository
	coupons repository.CouponRepository
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewCouponUseCase(orders repository.OrderRepository, coupons repository.CouponRepository, tm repository.TransactionManager, logger *zerolog.Logger) *couponUC {
	ucLog := logger.With().Str("component", "CouponUC").Logger()
	return &couponUC{orders: orders, coupons: coupons, tm: tm, log: &ucLog}
}

func (u *couponUC) Apply(ctx context.Context, userID, orderID, code string) (*model.Order, error) {
	order, err := u.orders.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if order.Terminal() {
		return nil, domain.ErrOrderNotPending
	}
	if order.CouponCode != nil {
		return nil, domain.ErrAlreadyExists
	}

	coupon, err := u.coupons.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}
	now := time.Now()
	if err := coupon.Validate(now); err != nil {
		return nil, err
	}
	if coupon.PerUserLimit > 0 {
		n, err := u.coupons.CountRedemptionsByUser(ctx, nil, coupon.Code, userID)
		if err != nil {
			return nil, err
		}
		if n >= coupon.PerUserLimit {
			return nil, domain.ErrCouponLimitReached
		}
	}

	discount := coupon.DiscountFor(order.Amount.Subtotal)
	total := order.Amount.Subtotal - discount

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.coupons.IncrementUsage(ctx, tx, coupon.Code)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrCouponLimitReached
		}
		if err := u.coupons.SaveRedemption(ctx, tx, coupon.Code, userID, order.ID); err != nil {
			return err
		}
		return u.orders.ApplyDiscount(ctx, tx, order.ID, coupon.Code, discount, total)
	})
	if err != nil {
		return nil, err
	}

	order.CouponCode = &coupon.Code
	order.Amount.Discount = discount
	order.Amount.Total = total
	order.UpdatedAt = now
	u.log.Info().Str("order_id", order.ID).Str("coupon", coupon.Code).Int64("discount", discount).Msg("coupon applied")
	return order, nil
}
