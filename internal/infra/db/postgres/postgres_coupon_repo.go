package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/repository"
)

var _ repository.CouponRepository = (*couponRepo)(nil)

type couponRepo struct{ pool *pgxpool.Pool }

func NewPostgresCouponRepo(pool *pgxpool.Pool) *couponRepo {
	return &couponRepo{pool: pool}
}

func (r *couponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
INSERT INTO coupons (
  code, type, value, max_discount, valid_from, valid_until, usage_limit, per_user_limit, used_count, active, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (code) DO UPDATE SET
  type=$2, value=$3, max_discount=$4, valid_from=$5, valid_until=$6, usage_limit=$7, per_user_limit=$8, active=$10, updated_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q,
		c.Code, c.Type, c.Value, c.MaxDiscount, c.ValidFrom, c.ValidUntil,
		c.UsageLimit, c.PerUserLimit, c.UsedCount, c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *couponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	q := `SELECT code, type, value, max_discount, valid_from, valid_until, usage_limit, per_user_limit, used_count, active, created_at, updated_at FROM coupons WHERE code=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}

	c := &model.Coupon{}
	if err := row.Scan(&c.Code, &c.Type, &c.Value, &c.MaxDiscount, &c.ValidFrom, &c.ValidUntil,
		&c.UsageLimit, &c.PerUserLimit, &c.UsedCount, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

// IncrementUsage enforces the global cap atomically: the bump applies only
// while used_count is still under usage_limit (or the limit is 0, unlimited).
func (r *couponRepo) IncrementUsage(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `
UPDATE coupons
   SET used_count = used_count + 1, updated_at = NOW()
 WHERE code = $1
   AND active = TRUE
   AND (usage_limit = 0 OR used_count < usage_limit);`

	cmd, err := execSQL(ctx, r.pool, tx, q, code)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *couponRepo) SaveRedemption(ctx context.Context, tx repository.Tx, code, userID, orderID string) error {
	const q = `INSERT INTO coupon_redemptions (coupon_code, user_id, order_id, redeemed_at) VALUES ($1,$2,$3,NOW());`
	_, err := execSQL(ctx, r.pool, tx, q, code, userID, orderID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *couponRepo) CountRedemptionsByUser(ctx context.Context, tx repository.Tx, code, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_code=$1 AND user_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, code, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
