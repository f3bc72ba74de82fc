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

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewPostgresUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, email, name, sub_tier, sub_status, sub_start_date, sub_end_date, sub_auto_renew, created_at, updated_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, email, name, sub_tier, sub_status, sub_start_date, sub_end_date, sub_auto_renew, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  email=$2, name=$3, sub_tier=$4, sub_status=$5, sub_start_date=$6, sub_end_date=$7, sub_auto_renew=$8, updated_at=$10;`

	var endDate *time.Time
	if !u.Subscription.EndDate.IsZero() {
		endDate = &u.Subscription.EndDate
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.Email, u.Name,
		u.Subscription.Tier, u.Subscription.Status, u.Subscription.StartDate, endDate, u.Subscription.AutoRenew,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) UpdateSubscription(ctx context.Context, tx repository.Tx, userID string, sub model.Subscription) error {
	const q = `
UPDATE users
   SET sub_tier=$2, sub_status=$3, sub_start_date=$4, sub_end_date=$5, sub_auto_renew=$6, updated_at=NOW()
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, sub.Tier, sub.Status, sub.StartDate, sub.EndDate, sub.AutoRenew)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepo) ListRenewalsDue(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users
 WHERE sub_status='active' AND sub_auto_renew=TRUE
   AND sub_end_date >= $1 AND sub_end_date < $2
 ORDER BY sub_end_date ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, from, to)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *userRepo) ExpireOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE users SET sub_status='expired', updated_at=NOW() WHERE sub_status='active' AND sub_end_date IS NOT NULL AND sub_end_date < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var endDate *time.Time
	if err := row.Scan(
		&u.ID, &u.Email, &u.Name,
		&u.Subscription.Tier, &u.Subscription.Status, &u.Subscription.StartDate, &endDate, &u.Subscription.AutoRenew,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if endDate != nil {
		u.Subscription.EndDate = *endDate
	}
	return u, nil
}
