package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidPlan        = errors.New("unknown tier/duration combination")
	ErrGateway            = errors.New("payment gateway call failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponExpired      = errors.New("coupon expired or not yet valid")
	ErrCouponLimitReached = errors.New("coupon usage limit reached")
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrRateLimited        = errors.New("too many requests")

	// Infra-layer errors surfaced through repositories
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrLockNotAcquired    = errors.New("could not acquire lock")
)
