//go:build !integration

package mail

import (
	"strings"
	"testing"

	"intelligrid-billing/internal/domain/model"
)

func TestRender(t *testing.T) {
	e := &model.OutboxEmail{
		ID:        "e-1",
		Recipient: "alice@example.com",
		Kind:      model.EmailKindPaymentReceipt,
		Payload: map[string]string{
			"name":           "Alice",
			"amount":         "9.99",
			"currency":       "USD",
			"order_id":       "order-1",
			"transaction_id": "cap-1",
		},
	}

	email, err := Render(e)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if email.To != "alice@example.com" {
		t.Errorf("to = %q", email.To)
	}
	if email.Subject != "Payment receipt" {
		t.Errorf("subject = %q", email.Subject)
	}
	for _, want := range []string{"Alice", "9.99 USD", "order-1", "cap-1"} {
		if !strings.Contains(email.HTML, want) {
			t.Errorf("html missing %q:\n%s", want, email.HTML)
		}
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	e := &model.OutboxEmail{
		Recipient: "a@example.com",
		Kind:      model.EmailKindRenewalReminder,
		Payload:   map[string]string{"name": "<script>alert(1)</script>", "tier": "pro", "end_date": "2026-10-01"},
	}
	email, err := Render(e)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(email.HTML, "<script>") {
		t.Fatal("payload was not escaped")
	}
}

func TestRenderUnknownKind(t *testing.T) {
	e := &model.OutboxEmail{Recipient: "a@example.com", Kind: "mystery"}
	if _, err := Render(e); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
