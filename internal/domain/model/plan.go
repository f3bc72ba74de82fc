package model

import (
	"strings"

	"intelligrid-billing/internal/domain"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

type Duration string

const (
	DurationMonthly Duration = "monthly"
	DurationYearly  Duration = "yearly"
)

// Price is a plan price in the minor units of its currency.
type Price struct {
	Currency string
	Amount   int64
}

type planKey struct {
	tier     Tier
	duration Duration
}

// Static price table. PayPal charges in USD, Cashfree in INR.
var priceTable = map[Gateway]map[planKey]Price{
	GatewayPayPal: {
		{TierPro, DurationMonthly}: {Currency: "USD", Amount: 999},   // $9.99
		{TierPro, DurationYearly}:  {Currency: "USD", Amount: 9900},  // $99.00
	},
	GatewayCashfree: {
		{TierPro, DurationMonthly}: {Currency: "INR", Amount: 79900},  // Rs.799
		{TierPro, DurationYearly}:  {Currency: "INR", Amount: 799900}, // Rs.7999
	},
}

// PriceFor looks up the static price table. Unknown (tier, duration) pairs,
// including anything on the free tier, fail with ErrInvalidPlan.
func PriceFor(g Gateway, t Tier, d Duration) (Price, error) {
	table, ok := priceTable[g]
	if !ok {
		return Price{}, domain.ErrInvalidPlan
	}
	p, ok := table[planKey{t, d}]
	if !ok {
		return Price{}, domain.ErrInvalidPlan
	}
	return p, nil
}

// ParsePlan maps a client plan string such as "pro_monthly" to its dimensions.
func ParsePlan(plan string) (Tier, Duration, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(plan)), "_", 2)
	if len(parts) != 2 {
		return "", "", domain.ErrInvalidPlan
	}
	tier := Tier(parts[0])
	duration := Duration(parts[1])
	switch tier {
	case TierFree, TierPro:
	default:
		return "", "", domain.ErrInvalidPlan
	}
	switch duration {
	case DurationMonthly, DurationYearly:
	default:
		return "", "", domain.ErrInvalidPlan
	}
	return tier, duration, nil
}
