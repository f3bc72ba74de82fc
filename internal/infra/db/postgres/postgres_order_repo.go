package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewPostgresOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, user_id, tier, duration, currency, subtotal, discount, total, gateway, provider_order_id, payment_session_id, transaction_id, payer_id, method, status, coupon_code, created_at, updated_at, paid_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (
  id, user_id, tier, duration, currency, subtotal, discount, total, gateway, provider_order_id, payment_session_id, transaction_id, payer_id, method, status, coupon_code, created_at, updated_at, paid_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
) ON CONFLICT (id) DO UPDATE SET
  provider_order_id=$10, payment_session_id=$11, transaction_id=$12, payer_id=$13, method=$14, status=$15, coupon_code=$16, discount=$7, total=$8, updated_at=$18, paid_at=$19;`

	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.UserID, o.Tier, o.Duration, o.Amount.Currency, o.Amount.Subtotal, o.Amount.Discount, o.Amount.Total,
		o.Gateway, nullIfEmpty(o.ProviderOrderID), nullIfEmpty(o.PaymentSessionID),
		nullIfEmpty(o.Payment.TransactionID), nullIfEmpty(o.Payment.PayerID), nullIfEmpty(o.Payment.Method),
		o.Status, o.CouponCode, o.CreatedAt, o.UpdatedAt, o.PaidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindByProviderOrderID(ctx context.Context, tx repository.Tx, gateway model.Gateway, providerOrderID string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE gateway=$1 AND provider_order_id=$2 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, gateway, providerOrderID)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

// MarkPaidIfPending is the idempotency guard for the capture-vs-webhook race:
// the transition applies only while status is still 'pending'.
func (r *orderRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, details model.PaymentDetails, paidAt time.Time) (bool, error) {
	const q = `
UPDATE orders
   SET status='completed',
       transaction_id=$2,
       payer_id=$3,
       method=$4,
       paid_at=$5,
       updated_at=NOW()
 WHERE id=$1
   AND status='pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, details.TransactionID, nullIfEmpty(details.PayerID), nullIfEmpty(details.Method), paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus) (bool, error) {
	const q = `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkRefunded(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE orders SET status='refunded', updated_at=NOW() WHERE id=$1 AND status='completed';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkCancelled(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE orders SET status='cancelled', updated_at=NOW() WHERE id=$1 AND status IN ('pending','completed');`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) ApplyDiscount(ctx context.Context, tx repository.Tx, id, couponCode string, discount, total int64) error {
	const q = `UPDATE orders SET coupon_code=$2, discount=$3, total=$4, updated_at=NOW() WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, couponCode, discount, total)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrOrderNotPending
	}
	return nil
}

func (r *orderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var providerOrderID, paymentSessionID, transactionID, payerID, method *string
	if err := row.Scan(
		&o.ID, &o.UserID, &o.Tier, &o.Duration,
		&o.Amount.Currency, &o.Amount.Subtotal, &o.Amount.Discount, &o.Amount.Total,
		&o.Gateway, &providerOrderID, &paymentSessionID,
		&transactionID, &payerID, &method,
		&o.Status, &o.CouponCode, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	o.ProviderOrderID = deref(providerOrderID)
	o.PaymentSessionID = deref(paymentSessionID)
	o.Payment.TransactionID = deref(transactionID)
	o.Payment.PayerID = deref(payerID)
	o.Payment.Method = deref(method)
	return o, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
