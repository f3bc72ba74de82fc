// File: internal/infra/gateway/cashfree.go
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/config"
	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
)

const (
	cashfreeSandboxBaseURL = "https://sandbox.cashfree.com/pg"
	cashfreeLiveBaseURL    = "https://api.cashfree.com/pg"
	cashfreeAPIVersion     = "2023-08-01"

	cashfreeSandboxCheckout = "https://payments-test.cashfree.com/order/#"
	cashfreeLiveCheckout    = "https://payments.cashfree.com/order/#"
)

var _ adapter.PaymentGateway = (*CashfreeGateway)(nil)

// CashfreeGateway drives the Cashfree PG REST API. Unlike PayPal there is no
// OAuth dance: every request is authenticated with the client id/secret
// header pair.
type CashfreeGateway struct {
	clientID     string
	clientSecret string
	baseURL      string
	checkoutURL  string
	httpClient   *http.Client
	log          zerolog.Logger
}

func NewCashfreeGateway(cfg *config.CashfreeConfig, logger zerolog.Logger) *CashfreeGateway {
	base, checkout := cashfreeLiveBaseURL, cashfreeLiveCheckout
	if cfg.Sandbox {
		base, checkout = cashfreeSandboxBaseURL, cashfreeSandboxCheckout
	}
	return &CashfreeGateway{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      base,
		checkoutURL:  checkout,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          logger.With().Str("component", "cashfree-gateway").Logger(),
	}
}

func (g *CashfreeGateway) Name() model.Gateway { return model.GatewayCashfree }

func (g *CashfreeGateway) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", domain.ErrGateway, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrGateway, err)
	}
	req.Header.Set("x-client-id", g.clientID)
	req.Header.Set("x-client-secret", g.clientSecret)
	req.Header.Set("x-api-version", cashfreeAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrGateway, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s status %d: %s", domain.ErrGateway, method, path, resp.StatusCode, b)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrGateway, err)
		}
	}
	return nil
}

type cashfreeCustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

type cashfreeCreateOrderRequest struct {
	OrderID         string                  `json:"order_id"`
	OrderAmount     string                  `json:"order_amount"`
	OrderCurrency   string                  `json:"order_currency"`
	CustomerDetails cashfreeCustomerDetails `json:"customer_details"`
	OrderMeta       struct {
		ReturnURL string `json:"return_url,omitempty"`
	} `json:"order_meta"`
	OrderNote string `json:"order_note,omitempty"`
}

type cashfreeCreateOrderResponse struct {
	OrderID          string `json:"order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CreateOrder registers the order at Cashfree under our own ULID, so webhook
// events and status polls key directly on the local order id. The approval
// URL points at Cashfree's hosted checkout for the returned payment session.
func (g *CashfreeGateway) CreateOrder(ctx context.Context, o *model.Order, returnURL, cancelURL string) (*adapter.CreateOrderResult, error) {
	req := cashfreeCreateOrderRequest{
		OrderID:       o.ID,
		OrderAmount:   formatMinorUnits(o.Amount.Total),
		OrderCurrency: o.Amount.Currency,
		CustomerDetails: cashfreeCustomerDetails{
			CustomerID: o.UserID,
		},
		OrderNote: fmt.Sprintf("%s %s subscription", o.Tier, o.Duration),
	}
	req.OrderMeta.ReturnURL = returnURL

	var resp cashfreeCreateOrderResponse
	if err := g.doJSON(ctx, http.MethodPost, "/orders", req, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentSessionID == "" {
		return nil, fmt.Errorf("%w: create order returned no payment session", domain.ErrGateway)
	}

	g.log.Debug().Str("order_id", o.ID).Str("order_status", resp.OrderStatus).Msg("cashfree order created")
	return &adapter.CreateOrderResult{
		ProviderOrderID:  resp.OrderID,
		ApprovalURL:      g.checkoutURL + resp.PaymentSessionID,
		PaymentSessionID: resp.PaymentSessionID,
	}, nil
}

type cashfreeOrderResponse struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"` // ACTIVE | PAID | EXPIRED | TERMINATED
}

type cashfreePayment struct {
	CFPaymentID   json.Number `json:"cf_payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PaymentGroup  string      `json:"payment_group"` // upi, net_banking, credit_card, ...
}

// Confirm polls the order status at Cashfree and, when paid, resolves the
// successful payment for its transaction id and method. proof.OrderID is the
// same local id used at create time.
func (g *CashfreeGateway) Confirm(ctx context.Context, proof adapter.ConfirmProof) (*adapter.ConfirmResult, error) {
	if proof.OrderID == "" {
		return nil, domain.ErrInvalidArgument
	}
	escaped := url.PathEscape(proof.OrderID)

	var ord cashfreeOrderResponse
	if err := g.doJSON(ctx, http.MethodGet, "/orders/"+escaped, nil, &ord); err != nil {
		return nil, err
	}
	if ord.OrderStatus != "PAID" {
		g.log.Warn().Str("order_id", proof.OrderID).Str("order_status", ord.OrderStatus).Msg("cashfree order not paid")
		return &adapter.ConfirmResult{Paid: false}, nil
	}

	var payments []cashfreePayment
	if err := g.doJSON(ctx, http.MethodGet, "/orders/"+escaped+"/payments", nil, &payments); err != nil {
		return nil, err
	}
	res := &adapter.ConfirmResult{Paid: true, Method: "cashfree"}
	for _, p := range payments {
		if p.PaymentStatus == "SUCCESS" {
			res.TransactionID = p.CFPaymentID.String()
			if p.PaymentGroup != "" {
				res.Method = p.PaymentGroup
			}
			break
		}
	}
	return res, nil
}

// VerifyWebhook checks the HMAC-SHA256 signature Cashfree computes over
// timestamp+rawBody with the client secret. Comparison is constant-time.
func (g *CashfreeGateway) VerifyWebhook(_ context.Context, header http.Header, body []byte) error {
	ts := header.Get("x-webhook-timestamp")
	sig := header.Get("x-webhook-signature")
	if ts == "" || sig == "" {
		return fmt.Errorf("%w: missing cashfree webhook headers", domain.ErrUnauthorized)
	}

	mac := hmac.New(sha256.New, []byte(g.clientSecret))
	mac.Write([]byte(ts))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("%w: cashfree signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}
