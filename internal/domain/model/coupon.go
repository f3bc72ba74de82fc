package model

import (
	"time"

	"intelligrid-billing/internal/domain"
)

type CouponType string

const (
	CouponTypeFixed      CouponType = "fixed"
	CouponTypePercentage CouponType = "percentage"
)

type Coupon struct {
	Code         string
	Type         CouponType
	Value        int64 // minor units for fixed, percent (0-100) for percentage
	MaxDiscount  int64 // cap for percentage coupons; 0 = uncapped
	ValidFrom    time.Time
	ValidUntil   time.Time
	UsageLimit   int // global cap across all users; 0 = unlimited
	PerUserLimit int // redemptions allowed per user; 0 = unlimited
	UsedCount    int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the active flag and date window. Inactive coupons are
// indistinguishable from missing ones to the caller.
func (c *Coupon) Validate(now time.Time) error {
	if !c.Active {
		return domain.ErrCouponNotFound
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return domain.ErrCouponExpired
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return domain.ErrCouponLimitReached
	}
	return nil
}

// DiscountFor computes the discount for a subtotal in minor units.
// Percentage discounts never exceed MaxDiscount when it is set, and no
// discount exceeds the subtotal itself.
func (c *Coupon) DiscountFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var d int64
	switch c.Type {
	case CouponTypePercentage:
		d = subtotal * c.Value / 100
		if c.MaxDiscount > 0 && d > c.MaxDiscount {
			d = c.MaxDiscount
		}
	default:
		d = c.Value
	}
	if d > subtotal {
		d = subtotal
	}
	return d
}
