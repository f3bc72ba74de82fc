package adapter

import (
	"context"
	"net/http"

	"intelligrid-billing/internal/domain/model"
)

// CreateOrderResult is what the client needs to continue the flow at the
// provider: a redirect/approval target plus provider-side identifiers.
type CreateOrderResult struct {
	ProviderOrderID  string
	ApprovalURL      string
	PaymentSessionID string // cashfree only
}

// ConfirmProof carries the provider-specific evidence used to capture or
// verify a payment. PayPal sends (PaymentID, PayerID) on the return
// redirect; Cashfree is polled by the order id used at create time.
type ConfirmProof struct {
	PaymentID string
	PayerID   string
	OrderID   string
}

// ConfirmResult reports the provider's verdict. Paid=false with a nil error
// means the gateway answered but the payment did not go through; transport
// and auth failures come back as errors wrapped in domain.ErrGateway.
type ConfirmResult struct {
	Paid          bool
	TransactionID string
	Method        string
}

// PaymentGateway is the port for payment providers. Adapters hold no state
// beyond credentials and an HTTP client; all persistence happens in the
// payment use case.
type PaymentGateway interface {
	Name() model.Gateway
	CreateOrder(ctx context.Context, o *model.Order, returnURL, cancelURL string) (*CreateOrderResult, error)
	Confirm(ctx context.Context, proof ConfirmProof) (*ConfirmResult, error)

	// VerifyWebhook cryptographically validates an inbound callback.
	// Returns domain.ErrUnauthorized on signature mismatch.
	VerifyWebhook(ctx context.Context, header http.Header, body []byte) error
}
