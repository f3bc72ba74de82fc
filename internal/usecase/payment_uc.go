// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
	"intelligrid-billing/internal/domain/ports/repository"
	"intelligrid-billing/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// CreateOrder prices a plan from the static table, persists a pending
	// order, and asks the chosen gateway for an approval target.
	CreateOrder(ctx context.Context, userID, plan string, gateway model.Gateway) (*model.Order, *adapter.CreateOrderResult, error)
	// Confirm captures/verifies a payment given provider-specific proof and
	// finalizes the order through the idempotent mark-paid path.
	Confirm(ctx context.Context, gateway model.Gateway, proof adapter.ConfirmProof) (*model.Order, error)
	// CompleteOrder is the single idempotent "mark order paid" operation,
	// callable from direct capture, webhook delivery, or the reconciler.
	// Returns true when this call applied the transition.
	CompleteOrder(ctx context.Context, orderID string, details model.PaymentDetails) (bool, error)
	// FailOrder moves a pending order to failed.
	FailOrder(ctx context.Context, orderID string) error
	// RefundOrder moves a completed order to refunded.
	RefundOrder(ctx context.Context, orderID string) error
	// CancelOrder cancels a pending or completed order and drops the
	// owner's auto-renew flag.
	CancelOrder(ctx context.Context, orderID string) error
	// ListStalePending feeds the reconciler.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error)
}

type paymentUC struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	outbox   repository.OutboxRepository
	gateways map[model.Gateway]adapter.PaymentGateway
	tm       repository.TransactionManager
	baseURL  string
	entropy  ulid.MonotonicReader
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	orders repository.OrderRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	gateways map[model.Gateway]adapter.PaymentGateway,
	tm repository.TransactionManager,
	returnBaseURL string,
	logger *zerolog.Logger,
) *paymentUC {
	ucLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		orders:   orders,
		users:    users,
		outbox:   outbox,
		gateways: gateways,
		tm:       tm,
		baseURL:  returnBaseURL,
		// CreateOrder runs from concurrent handlers; the locked reader
		// serializes entropy reads.
		entropy: &ulid.LockedMonotonicReader{
			MonotonicReader: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		},
		log: &ucLog,
	}
}

func (u *paymentUC) CreateOrder(ctx context.Context, userID, plan string, gateway model.Gateway) (*model.Order, *adapter.CreateOrderResult, error) {
	tier, duration, err := model.ParsePlan(plan)
	if err != nil {
		return nil, nil, err
	}
	gw, ok := u.gateways[gateway]
	if !ok {
		return nil, nil, domain.ErrInvalidArgument
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), u.entropy).String()
	order, err := model.NewOrder(id, userID, tier, duration, gateway)
	if err != nil {
		return nil, nil, err
	}
	if err := u.orders.Save(ctx, nil, order); err != nil {
		return nil, nil, err
	}
	metrics.IncOrder(string(gateway), "created")

	returnURL := u.baseURL + "/payment/success"
	cancelURL := u.baseURL + "/payment/cancelled"
	res, err := gw.CreateOrder(ctx, order, returnURL, cancelURL)
	if err != nil {
		// The pending order stays behind; the reconciler fails it once stale.
		u.log.Error().Err(err).Str("order_id", order.ID).Msg("gateway create order failed")
		return nil, nil, err
	}

	order.ProviderOrderID = res.ProviderOrderID
	order.PaymentSessionID = res.PaymentSessionID
	order.UpdatedAt = time.Now()
	if err := u.orders.Save(ctx, nil, order); err != nil {
		return nil, nil, err
	}
	return order, res, nil
}

func (u *paymentUC) Confirm(ctx context.Context, gateway model.Gateway, proof adapter.ConfirmProof) (*model.Order, error) {
	gw, ok := u.gateways[gateway]
	if !ok {
		return nil, domain.ErrInvalidArgument
	}

	var (
		order *model.Order
		err   error
	)
	switch gateway {
	case model.GatewayPayPal:
		order, err = u.orders.FindByProviderOrderID(ctx, nil, gateway, proof.PaymentID)
	default:
		order, err = u.orders.FindByID(ctx, nil, proof.OrderID)
	}
	if err != nil {
		return nil, err
	}
	if order.Gateway != gateway {
		return nil, domain.ErrNotFound
	}
	if order.Terminal() {
		// Already finalized (webhook may have won the race); nothing to do.
		return order, nil
	}

	proof.OrderID = order.ID
	if proof.PaymentID == "" {
		proof.PaymentID = order.ProviderOrderID
	}
	res, err := gw.Confirm(ctx, proof)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !res.Paid {
		if _, err := u.orders.UpdateStatusIfPending(ctx, nil, order.ID, model.OrderStatusFailed); err != nil {
			return nil, err
		}
		metrics.IncOrder(string(gateway), string(model.OrderStatusFailed))
		order.Status = model.OrderStatusFailed
		order.UpdatedAt = now
		return order, nil
	}

	details := model.PaymentDetails{
		TransactionID: res.TransactionID,
		PayerID:       proof.PayerID,
		Method:        res.Method,
	}
	if _, err := u.CompleteOrder(ctx, order.ID, details); err != nil {
		return nil, err
	}
	order.Status = model.OrderStatusCompleted
	order.Payment = details
	order.PaidAt = &now
	order.UpdatedAt = now
	return order, nil
}

// CompleteOrder finalizes an order exactly once. The conditional repo update
// is the idempotency guard: losers of the capture-vs-webhook race see
// applied=false and skip activation and emails.
func (u *paymentUC) CompleteOrder(ctx context.Context, orderID string, details model.PaymentDetails) (bool, error) {
	var applied bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		order, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		now := time.Now()
		applied, err = u.orders.MarkPaidIfPending(ctx, tx, orderID, details, now)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}

		user, err := u.users.FindByID(ctx, tx, order.UserID)
		if err != nil {
			return err
		}
		sub := model.ActivatedSubscription(order.Tier, order.Duration, now)
		if err := u.users.UpdateSubscription(ctx, tx, user.ID, sub); err != nil {
			return err
		}

		vars := map[string]string{
			"name":           user.Name,
			"tier":           string(order.Tier),
			"duration":       string(order.Duration),
			"currency":       order.Amount.Currency,
			"amount":         fmt.Sprintf("%d.%02d", order.Amount.Total/100, order.Amount.Total%100),
			"order_id":       order.ID,
			"transaction_id": details.TransactionID,
			"end_date":       sub.EndDate.Format("2006-01-02"),
		}
		for _, kind := range []model.EmailKind{model.EmailKindSubscriptionConfirmation, model.EmailKindPaymentReceipt} {
			e := &model.OutboxEmail{
				ID:            uuid.NewString(),
				Recipient:     user.Email,
				Kind:          kind,
				Payload:       vars,
				Status:        model.EmailStatusPending,
				NextAttemptAt: now,
				CreatedAt:     now,
			}
			if err := u.outbox.Enqueue(ctx, tx, e); err != nil {
				return err
			}
		}

		metrics.IncOrder(string(order.Gateway), string(model.OrderStatusCompleted))
		metrics.AddRevenue(order.Amount.Currency, order.Amount.Total)
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (u *paymentUC) FailOrder(ctx context.Context, orderID string) error {
	applied, err := u.orders.UpdateStatusIfPending(ctx, nil, orderID, model.OrderStatusFailed)
	if err != nil {
		return err
	}
	if applied {
		u.log.Info().Str("order_id", orderID).Msg("order failed")
	}
	return nil
}

func (u *paymentUC) RefundOrder(ctx context.Context, orderID string) error {
	order, err := u.orders.FindByID(ctx, nil, orderID)
	if err != nil {
		return err
	}
	applied, err := u.orders.MarkRefunded(ctx, nil, orderID)
	if err != nil {
		return err
	}
	if applied {
		metrics.IncOrder(string(order.Gateway), string(model.OrderStatusRefunded))
		u.log.Info().Str("order_id", orderID).Str("gateway", string(order.Gateway)).Msg("order refunded")
	}
	return nil
}

func (u *paymentUC) CancelOrder(ctx context.Context, orderID string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		order, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		applied, err := u.orders.MarkCancelled(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
		user, err := u.users.FindByID(ctx, tx, order.UserID)
		if err != nil {
			return err
		}
		sub := user.Subscription
		sub.Status = model.SubscriptionStatusCancelled
		sub.AutoRenew = false
		return u.users.UpdateSubscription(ctx, tx, user.ID, sub)
	})
}

func (u *paymentUC) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error) {
	return u.orders.ListPendingOlderThan(ctx, nil, olderThan, limit)
}
