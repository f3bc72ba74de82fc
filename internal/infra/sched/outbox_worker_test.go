//go:build !integration

// File: internal/infra/sched/outbox_worker_test.go
package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
	"intelligrid-billing/internal/domain/ports/repository"
)

type fakeOutboxRepo struct {
	mu    sync.Mutex
	store map[string]*model.OutboxEmail
}

func newFakeOutboxRepo(emails ...*model.OutboxEmail) *fakeOutboxRepo {
	r := &fakeOutboxRepo{store: make(map[string]*model.OutboxEmail)}
	for _, e := range emails {
		cp := *e
		r.store[e.ID] = &cp
	}
	return r
}

func (r *fakeOutboxRepo) Enqueue(ctx context.Context, _ repository.Tx, e *model.OutboxEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.store[e.ID] = &cp
	return nil
}

func (r *fakeOutboxRepo) ListDue(ctx context.Context, _ repository.Tx, now time.Time, limit int) ([]*model.OutboxEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OutboxEmail
	for _, e := range r.store {
		if (e.Status == model.EmailStatusPending || e.Status == model.EmailStatusFailed) && !e.NextAttemptAt.After(now) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkSent(ctx context.Context, _ repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = model.EmailStatusSent
	e.SentAt = &at
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, _ repository.Tx, id, errMsg string, nextAttempt time.Time, dead bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.store[id]
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

func (r *fakeOutboxRepo) get(id string) *model.OutboxEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.store[id]
	return &cp
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []adapter.Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, e adapter.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, e)
	return nil
}

func dueEmail(id string) *model.OutboxEmail {
	return &model.OutboxEmail{
		ID:        id,
		Recipient: "alice@example.com",
		Kind:      model.EmailKindRenewalReminder,
		Payload:   map[string]string{"name": "Alice", "tier": "pro", "end_date": "2026-10-01"},
		Status:    model.EmailStatusPending,
	}
}

func TestOutboxWorker_Drain(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("sends due emails and marks them sent", func(t *testing.T) {
		repo := newFakeOutboxRepo(dueEmail("e-1"), dueEmail("e-2"))
		mailer := &fakeMailer{}
		w := NewOutboxWorker(repo, mailer, time.Second, &logger)

		w.drain(ctx)

		if len(mailer.sent) != 2 {
			t.Fatalf("sent %d emails, want 2", len(mailer.sent))
		}
		if got := repo.get("e-1"); got.Status != model.EmailStatusSent || got.SentAt == nil {
			t.Fatalf("e-1 = %+v, want sent", got)
		}
	})

	t.Run("retries failures with backoff", func(t *testing.T) {
		repo := newFakeOutboxRepo(dueEmail("e-1"))
		mailer := &fakeMailer{err: errors.New("smtp down")}
		w := NewOutboxWorker(repo, mailer, time.Second, &logger)

		w.drain(ctx)

		got := repo.get("e-1")
		if got.Status != model.EmailStatusFailed || got.Attempts != 1 {
			t.Fatalf("e-1 = %+v, want failed with one attempt", got)
		}
		if !got.NextAttemptAt.After(time.Now()) {
			t.Fatal("next attempt must be in the future")
		}
		if got.LastError != "smtp down" {
			t.Fatalf("last error = %q", got.LastError)
		}
	})

	t.Run("dead-letters after the attempt budget", func(t *testing.T) {
		e := dueEmail("e-1")
		e.Attempts = outboxMaxAttempts - 1
		repo := newFakeOutboxRepo(e)
		mailer := &fakeMailer{err: errors.New("smtp down")}
		w := NewOutboxWorker(repo, mailer, time.Second, &logger)

		w.drain(ctx)

		if got := repo.get("e-1"); got.Status != model.EmailStatusDead {
			t.Fatalf("status = %s, want dead", got.Status)
		}
	})

	t.Run("dead-letters unrenderable rows immediately", func(t *testing.T) {
		e := dueEmail("e-1")
		e.Kind = "mystery"
		repo := newFakeOutboxRepo(e)
		mailer := &fakeMailer{}
		w := NewOutboxWorker(repo, mailer, time.Second, &logger)

		w.drain(ctx)

		if got := repo.get("e-1"); got.Status != model.EmailStatusDead {
			t.Fatalf("status = %s, want dead", got.Status)
		}
		if len(mailer.sent) != 0 {
			t.Fatal("nothing should have been sent")
		}
	})
}

func TestBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
	}
	for _, c := range cases {
		if got := backoff(c.attempt); got != c.want {
			t.Errorf("backoff(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}
