package model

import "time"

type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed" // retryable; NextAttemptAt set
	EmailStatusDead    EmailStatus = "dead"   // attempts exhausted
)

type EmailKind string

const (
	EmailKindSubscriptionConfirmation EmailKind = "subscription_confirmation"
	EmailKindPaymentReceipt           EmailKind = "payment_receipt"
	EmailKindRenewalReminder          EmailKind = "renewal_reminder"
)

// OutboxEmail is one queued notification. Emails are never sent inline with
// a request; they are enqueued in the same transaction as the state change
// that caused them and drained by the outbox worker with at-least-once
// delivery semantics.
type OutboxEmail struct {
	ID            string // UUID
	Recipient     string
	Kind          EmailKind
	Payload       map[string]string // template variables, serialized as JSONB
	Status        EmailStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	SentAt        *time.Time
}
