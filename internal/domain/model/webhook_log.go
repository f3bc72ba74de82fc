package model

import "time"

type WebhookStatus string

const (
	WebhookStatusReceived  WebhookStatus = "received"  // persisted, not yet dispatched
	WebhookStatusProcessed WebhookStatus = "processed" // dispatched (or deliberately ignored)
	WebhookStatusRejected  WebhookStatus = "rejected"  // signature verification failed
	WebhookStatusFailed    WebhookStatus = "failed"    // business logic error after verification
)

// WebhookLog is the append-only audit record of one inbound gateway callback.
// It is written before signature verification so a row exists even for
// rejected calls; only Status/Error mutate afterwards.
type WebhookLog struct {
	ID          string // UUID
	Source      Gateway
	EventType   string
	Payload     []byte            // raw request body, verbatim
	Headers     map[string]string // raw request headers
	Status      WebhookStatus
	Error       string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}
