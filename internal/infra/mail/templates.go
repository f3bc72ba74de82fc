// File: internal/infra/mail/templates.go
package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
)

// Render turns a queued outbox row into a sendable email. Payload keys are
// the template variables stored by the enqueuing use case.
func Render(e *model.OutboxEmail) (adapter.Email, error) {
	spec, ok := templates[e.Kind]
	if !ok {
		return adapter.Email{}, fmt.Errorf("%w: unknown email kind %q", domain.ErrInvalidArgument, e.Kind)
	}

	var buf bytes.Buffer
	if err := spec.body.Execute(&buf, e.Payload); err != nil {
		return adapter.Email{}, fmt.Errorf("render %s: %w", e.Kind, err)
	}
	return adapter.Email{To: e.Recipient, Subject: spec.subject, HTML: buf.String()}, nil
}

type templateSpec struct {
	subject string
	body    *template.Template
}

var templates = map[model.EmailKind]templateSpec{
	model.EmailKindSubscriptionConfirmation: {
		subject: "Your subscription is active",
		body: template.Must(template.New("subscription_confirmation").Parse(`
<p>Hi {{.name}},</p>
<p>Your <strong>{{.tier}}</strong> plan ({{.duration}}) is now active.</p>
<p>It runs until <strong>{{.end_date}}</strong>.</p>
<p>Thanks for subscribing!</p>`)),
	},
	model.EmailKindPaymentReceipt: {
		subject: "Payment receipt",
		body: template.Must(template.New("payment_receipt").Parse(`
<p>Hi {{.name}},</p>
<p>We received your payment of <strong>{{.amount}} {{.currency}}</strong>.</p>
<p>Order: {{.order_id}}<br>Transaction: {{.transaction_id}}</p>`)),
	},
	model.EmailKindRenewalReminder: {
		subject: "Your subscription renews soon",
		body: template.Must(template.New("renewal_reminder").Parse(`
<p>Hi {{.name}},</p>
<p>Your <strong>{{.tier}}</strong> plan renews on <strong>{{.end_date}}</strong>.</p>
<p>No action is needed if you want to keep it running.</p>`)),
	},
}
