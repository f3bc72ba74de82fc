// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
	"intelligrid-billing/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memTxManager runs the callback inline; tests exercise transactional logic,
// not transaction mechanics.
type memTxManager struct {
	failWith error
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.failWith != nil {
		return m.failWith
	}
	return fn(ctx, nil)
}

// memOrderRepo is a small in-memory implementation used by unit tests.
type memOrderRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Order
	saveErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{store: make(map[string]*model.Order)}
}

func (m *memOrderRepo) Save(ctx context.Context, _ repository.Tx, o *model.Order) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.store[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) FindByProviderOrderID(ctx context.Context, _ repository.Tx, gateway model.Gateway, providerOrderID string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.store {
		if o.Gateway == gateway && o.ProviderOrderID == providerOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrderRepo) MarkPaidIfPending(ctx context.Context, _ repository.Tx, id string, details model.PaymentDetails, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusCompleted
	o.Payment = details
	o.PaidAt = &paidAt
	o.UpdatedAt = paidAt
	return true, nil
}

func (m *memOrderRepo) UpdateStatusIfPending(ctx context.Context, _ repository.Tx, id string, status model.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *memOrderRepo) MarkRefunded(ctx context.Context, _ repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusCompleted {
		return false, nil
	}
	o.Status = model.OrderStatusRefunded
	return true, nil
}

func (m *memOrderRepo) MarkCancelled(ctx context.Context, _ repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending && o.Status != model.OrderStatusCompleted {
		return false, nil
	}
	o.Status = model.OrderStatusCancelled
	return true, nil
}

func (m *memOrderRepo) ApplyDiscount(ctx context.Context, _ repository.Tx, id, couponCode string, discount, total int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		return domain.ErrOrderNotPending
	}
	o.CouponCode = &couponCode
	o.Amount.Discount = discount
	o.Amount.Total = total
	return nil
}

func (m *memOrderRepo) ListPendingOlderThan(ctx context.Context, _ repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Order
	for _, o := range m.store {
		if o.Status == model.OrderStatusPending && o.CreatedAt.Before(olderThan) {
			cp := *o
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type memUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, _ repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) UpdateSubscription(ctx context.Context, _ repository.Tx, userID string, sub model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Subscription = sub
	u.UpdatedAt = time.Now()
	return nil
}

func (m *memUserRepo) ListRenewalsDue(ctx context.Context, _ repository.Tx, from, to time.Time) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for _, u := range m.store {
		s := u.Subscription
		if s.Status == model.SubscriptionStatusActive && s.AutoRenew &&
			!s.EndDate.Before(from) && s.EndDate.Before(to) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memUserRepo) ExpireOverdue(ctx context.Context, _ repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.store {
		s := &u.Subscription
		if s.Status == model.SubscriptionStatusActive && !s.EndDate.IsZero() && s.EndDate.Before(now) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

type memCouponRepo struct {
	mu          sync.RWMutex
	store       map[string]*model.Coupon
	redemptions map[string][]string // code -> userIDs
}

func newMemCouponRepo() *memCouponRepo {
	return &memCouponRepo{store: make(map[string]*model.Coupon), redemptions: make(map[string][]string)}
}

func (m *memCouponRepo) Save(ctx context.Context, _ repository.Tx, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.Code] = &cp
	return nil
}

func (m *memCouponRepo) FindByCode(ctx context.Context, _ repository.Tx, code string) (*model.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCouponRepo) IncrementUsage(ctx context.Context, _ repository.Tx, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[code]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return false, nil
	}
	c.UsedCount++
	return true, nil
}

func (m *memCouponRepo) SaveRedemption(ctx context.Context, _ repository.Tx, code, userID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redemptions[code] = append(m.redemptions[code], userID)
	return nil
}

func (m *memCouponRepo) CountRedemptionsByUser(ctx context.Context, _ repository.Tx, code, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, id := range m.redemptions[code] {
		if id == userID {
			n++
		}
	}
	return n, nil
}

type memWebhookLogRepo struct {
	mu    sync.RWMutex
	store map[string]*model.WebhookLog
}

func newMemWebhookLogRepo() *memWebhookLogRepo {
	return &memWebhookLogRepo{store: make(map[string]*model.WebhookLog)}
}

func (m *memWebhookLogRepo) Save(ctx context.Context, _ repository.Tx, l *model.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.store[l.ID] = &cp
	return nil
}

func (m *memWebhookLogRepo) SetStatus(ctx context.Context, _ repository.Tx, id string, status model.WebhookStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Status = status
	l.Error = errMsg
	return nil
}

func (m *memWebhookLogRepo) single() *model.WebhookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.store {
		return l
	}
	return nil
}

type memOutboxRepo struct {
	mu    sync.RWMutex
	store map[string]*model.OutboxEmail
}

func newMemOutboxRepo() *memOutboxRepo {
	return &memOutboxRepo{store: make(map[string]*model.OutboxEmail)}
}

func (m *memOutboxRepo) Enqueue(ctx context.Context, _ repository.Tx, e *model.OutboxEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *memOutboxRepo) ListDue(ctx context.Context, _ repository.Tx, now time.Time, limit int) ([]*model.OutboxEmail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.OutboxEmail
	for _, e := range m.store {
		if (e.Status == model.EmailStatusPending || e.Status == model.EmailStatusFailed) && !e.NextAttemptAt.After(now) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOutboxRepo) MarkSent(ctx context.Context, _ repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = model.EmailStatusSent
	e.SentAt = &at
	return nil
}

func (m *memOutboxRepo) MarkFailed(ctx context.Context, _ repository.Tx, id, errMsg string, nextAttempt time.Time, dead bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = model.EmailStatusFailed
	if dead {
		e.Status = model.EmailStatusDead
	}
	e.Attempts++
	e.NextAttemptAt = nextAttempt
	e.LastError = errMsg
	return nil
}

func (m *memOutboxRepo) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

type memNotifLogRepo struct {
	mu    sync.Mutex
	store map[string]bool
}

func newMemNotifLogRepo() *memNotifLogRepo {
	return &memNotifLogRepo{store: make(map[string]bool)}
}

func notifKey(userID, kind string, due time.Time) string {
	return userID + "|" + kind + "|" + due.Format(time.RFC3339)
}

func (m *memNotifLogRepo) Save(ctx context.Context, _ repository.Tx, userID, kind string, dueDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[notifKey(userID, kind, dueDate)] = true
	return nil
}

func (m *memNotifLogRepo) Exists(ctx context.Context, _ repository.Tx, userID, kind string, dueDate time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[notifKey(userID, kind, dueDate)], nil
}

// mockGateway uses func fields so each test overrides just what it needs.
type mockGateway struct {
	name             model.Gateway
	CreateOrderFunc  func(ctx context.Context, o *model.Order, returnURL, cancelURL string) (*adapter.CreateOrderResult, error)
	ConfirmFunc      func(ctx context.Context, proof adapter.ConfirmProof) (*adapter.ConfirmResult, error)
	VerifyWebhookErr error
}

func (g *mockGateway) Name() model.Gateway { return g.name }

func (g *mockGateway) CreateOrder(ctx context.Context, o *model.Order, returnURL, cancelURL string) (*adapter.CreateOrderResult, error) {
	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, o, returnURL, cancelURL)
	}
	return &adapter.CreateOrderResult{ProviderOrderID: "prov-" + o.ID, ApprovalURL: "https://pay.example/" + o.ID}, nil
}

func (g *mockGateway) Confirm(ctx context.Context, proof adapter.ConfirmProof) (*adapter.ConfirmResult, error) {
	if g.ConfirmFunc != nil {
		return g.ConfirmFunc(ctx, proof)
	}
	return &adapter.ConfirmResult{Paid: true, TransactionID: "txn-1", Method: "test"}, nil
}

func (g *mockGateway) VerifyWebhook(ctx context.Context, header http.Header, body []byte) error {
	return g.VerifyWebhookErr
}
