package model

import (
	"time"

	"intelligrid-billing/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // created locally; awaiting gateway approval
	OrderStatusCompleted OrderStatus = "completed" // captured/verified at provider
	OrderStatusFailed    OrderStatus = "failed"    // gateway reported failure
	OrderStatusRefunded  OrderStatus = "refunded"  // provider refunded a completed order
	OrderStatusCancelled OrderStatus = "cancelled" // subscription cancelled at provider
)

type Gateway string

const (
	GatewayPayPal   Gateway = "paypal"
	GatewayCashfree Gateway = "cashfree"
)

// Amount holds monetary fields in minor units (cents/paise) to avoid float errors.
type Amount struct {
	Currency string // "USD" for PayPal, "INR" for Cashfree
	Subtotal int64
	Discount int64
	Total    int64
}

// PaymentDetails is populated only after capture/verification.
type PaymentDetails struct {
	TransactionID string // provider transaction/capture id
	PayerID       string
	Method        string
}

// Order records one subscription purchase attempt.
// The (gateway, tier, duration) tuple never changes after creation; only
// status, payment details and discount/total mutate, and only through the
// payment/webhook use cases.
type Order struct {
	ID               string // ULID, sortable by creation time
	UserID           string
	Tier             Tier
	Duration         Duration
	Amount           Amount
	Gateway          Gateway
	ProviderOrderID  string // assigned by the gateway at create time
	PaymentSessionID string // cashfree only
	Payment          PaymentDetails
	Status           OrderStatus
	CouponCode       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PaidAt           *time.Time
}

// NewOrder builds a pending order priced from the static plan table.
func NewOrder(id, userID string, tier Tier, duration Duration, gateway Gateway) (*Order, error) {
	if id == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	price, err := PriceFor(gateway, tier, duration)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Order{
		ID:       id,
		UserID:   userID,
		Tier:     tier,
		Duration: duration,
		Amount: Amount{
			Currency: price.Currency,
			Subtotal: price.Amount,
			Total:    price.Amount,
		},
		Gateway:   gateway,
		Status:    OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Terminal reports whether the order reached a final status.
func (o *Order) Terminal() bool {
	return o.Status != OrderStatusPending
}
