//go:build !integration

// File: internal/usecase/coupon_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
)

type couponUCDeps struct {
	orders  *memOrderRepo
	coupons *memCouponRepo
	uc      CouponUseCase
	payment PaymentUseCase
}

func newCouponUCDeps(t *testing.T) *couponUCDeps {
	t.Helper()
	d := &couponUCDeps{
		orders:  newMemOrderRepo(),
		coupons: newMemCouponRepo(),
	}
	users := newMemUserRepo()
	seedUser(t, users, "user-1")
	seedUser(t, users, "user-2")
	gateways := map[model.Gateway]adapter.PaymentGateway{
		model.GatewayPayPal: &mockGateway{name: model.GatewayPayPal},
	}
	d.payment = NewPaymentUseCase(d.orders, users, newMemOutboxRepo(), gateways, &memTxManager{}, "https://app.example.com", newTestLogger())
	d.uc = NewCouponUseCase(d.orders, d.coupons, &memTxManager{}, newTestLogger())
	return d
}

func seedCoupon(t *testing.T, repo *memCouponRepo, c model.Coupon) {
	t.Helper()
	now := time.Now()
	if c.ValidFrom.IsZero() {
		c.ValidFrom = now.Add(-time.Hour)
	}
	if c.ValidUntil.IsZero() {
		c.ValidUntil = now.Add(24 * time.Hour)
	}
	c.Active = true
	if err := repo.Save(context.Background(), nil, &c); err != nil {
		t.Fatalf("save coupon: %v", err)
	}
}

func (d *couponUCDeps) newOrder(t *testing.T, userID string) *model.Order {
	t.Helper()
	order, _, err := d.payment.CreateOrder(context.Background(), userID, "pro_monthly", model.GatewayPayPal)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestCouponUC_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("applies a percentage discount with cap", func(t *testing.T) {
		d := newCouponUCDeps(t)
		// 50% of 999 is 499 (rounded down), capped at 300.
		seedCoupon(t, d.coupons, model.Coupon{Code: "HALF", Type: model.CouponTypePercentage, Value: 50, MaxDiscount: 300})
		order := d.newOrder(t, "user-1")

		got, err := d.uc.Apply(ctx, "user-1", order.ID, "HALF")
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if got.Amount.Discount != 300 || got.Amount.Total != 699 {
			t.Fatalf("discount/total = %d/%d, want 300/699", got.Amount.Discount, got.Amount.Total)
		}
		saved, _ := d.orders.FindByID(ctx, nil, order.ID)
		if saved.CouponCode == nil || *saved.CouponCode != "HALF" {
			t.Fatalf("coupon code not persisted: %v", saved.CouponCode)
		}
	})

	t.Run("clamps a fixed discount to the subtotal", func(t *testing.T) {
		d := newCouponUCDeps(t)
		seedCoupon(t, d.coupons, model.Coupon{Code: "BIG", Type: model.CouponTypeFixed, Value: 5000})
		order := d.newOrder(t, "user-1")

		got, err := d.uc.Apply(ctx, "user-1", order.ID, "BIG")
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if got.Amount.Total != 0 || got.Amount.Discount != 999 {
			t.Fatalf("discount/total = %d/%d, want 999/0", got.Amount.Discount, got.Amount.Total)
		}
	})

	t.Run("rejects another user's order", func(t *testing.T) {
		d := newCouponUCDeps(t)
		seedCoupon(t, d.coupons, model.Coupon{Code: "X", Type: model.CouponTypeFixed, Value: 100})
		order := d.newOrder(t, "user-1")

		_, err := d.uc.Apply(ctx, "user-2", order.ID, "X")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("rejects a second coupon on the same order", func(t *testing.T) {
		d := newCouponUCDeps(t)
		seedCoupon(t, d.coupons, model.Coupon{Code: "A", Type: model.CouponTypeFixed, Value: 100})
		seedCoupon(t, d.coupons, model.Coupon{Code: "B", Type: model.CouponTypeFixed, Value: 100})
		order := d.newOrder(t, "user-1")

		if _, err := d.uc.Apply(ctx, "user-1", order.ID, "A"); err != nil {
			t.Fatalf("first apply: %v", err)
		}
		_, err := d.uc.Apply(ctx, "user-1", order.ID, "B")
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("err = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("rejects expired and unknown coupons", func(t *testing.T) {
		d := newCouponUCDeps(t)
		past := time.Now().Add(-time.Hour)
		seedCoupon(t, d.coupons, model.Coupon{Code: "OLD", Type: model.CouponTypeFixed, Value: 100, ValidFrom: past.Add(-time.Hour), ValidUntil: past})
		order := d.newOrder(t, "user-1")

		if _, err := d.uc.Apply(ctx, "user-1", order.ID, "OLD"); !errors.Is(err, domain.ErrCouponExpired) {
			t.Fatalf("err = %v, want ErrCouponExpired", err)
		}
		if _, err := d.uc.Apply(ctx, "user-1", order.ID, "MISSING"); !errors.Is(err, domain.ErrCouponNotFound) {
			t.Fatalf("err = %v, want ErrCouponNotFound", err)
		}
	})

	t.Run("enforces the per-user redemption cap", func(t *testing.T) {
		d := newCouponUCDeps(t)
		seedCoupon(t, d.coupons, model.Coupon{Code: "ONCE", Type: model.CouponTypeFixed, Value: 100, PerUserLimit: 1})

		first := d.newOrder(t, "user-1")
		if _, err := d.uc.Apply(ctx, "user-1", first.ID, "ONCE"); err != nil {
			t.Fatalf("first apply: %v", err)
		}
		second := d.newOrder(t, "user-1")
		if _, err := d.uc.Apply(ctx, "user-1", second.ID, "ONCE"); !errors.Is(err, domain.ErrCouponLimitReached) {
			t.Fatalf("err = %v, want ErrCouponLimitReached", err)
		}
		// A different user is unaffected.
		third := d.newOrder(t, "user-2")
		if _, err := d.uc.Apply(ctx, "user-2", third.ID, "ONCE"); err != nil {
			t.Fatalf("other user apply: %v", err)
		}
	})

	t.Run("enforces the global usage cap", func(t *testing.T) {
		d := newCouponUCDeps(t)
		seedCoupon(t, d.coupons, model.Coupon{Code: "CAP", Type: model.CouponTypeFixed, Value: 100, UsageLimit: 1})

		first := d.newOrder(t, "user-1")
		if _, err := d.uc.Apply(ctx, "user-1", first.ID, "CAP"); err != nil {
			t.Fatalf("first apply: %v", err)
		}
		second := d.newOrder(t, "user-2")
		if _, err := d.uc.Apply(ctx, "user-2", second.ID, "CAP"); !errors.Is(err, domain.ErrCouponLimitReached) {
			t.Fatalf("err = %v, want ErrCouponLimitReached", err)
		}
	})

	t.Run("rejects coupons on completed orders", func(t *testing.T) {
		d := newCouponUCDeps(t)
		seedCoupon(t, d.coupons, model.Coupon{Code: "LATE", Type: model.CouponTypeFixed, Value: 100})
		order := d.newOrder(t, "user-1")
		if _, err := d.payment.CompleteOrder(ctx, order.ID, model.PaymentDetails{TransactionID: "t"}); err != nil {
			t.Fatalf("complete: %v", err)
		}

		_, err := d.uc.Apply(ctx, "user-1", order.ID, "LATE")
		if !errors.Is(err, domain.ErrOrderNotPending) {
			t.Fatalf("err = %v, want ErrOrderNotPending", err)
		}
	})
}
