// File: internal/infra/gateway/paypal.go
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/config"
	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
)

const (
	paypalSandboxBaseURL = "https://api-m.sandbox.paypal.com"
	paypalLiveBaseURL    = "https://api-m.paypal.com"
)

var _ adapter.PaymentGateway = (*PayPalGateway)(nil)

// PayPalGateway drives the PayPal Orders v2 REST API. Access tokens are
// fetched with the client-credentials grant and cached until shortly before
// expiry; a single in-flight refresh is guarded by tokenMu.
type PayPalGateway struct {
	clientID     string
	clientSecret string
	webhookID    string
	baseURL      string
	httpClient   *http.Client
	log          zerolog.Logger

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalGateway(cfg *config.PayPalConfig, logger zerolog.Logger) *PayPalGateway {
	base := paypalLiveBaseURL
	if cfg.Sandbox {
		base = paypalSandboxBaseURL
	}
	return &PayPalGateway{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		webhookID:    cfg.WebhookID,
		baseURL:      base,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          logger.With().Str("component", "paypal-gateway").Logger(),
	}
}

func (g *PayPalGateway) Name() model.Gateway { return model.GatewayPayPal }

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// token returns a cached OAuth access token, refreshing when within a minute
// of expiry.
func (g *PayPalGateway) token(ctx context.Context) (string, error) {
	g.tokenMu.Lock()
	defer g.tokenMu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry.Add(-time.Minute)) {
		return g.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", domain.ErrGateway, err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(g.clientID + ":" + g.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: token request status %d: %s", domain.ErrGateway, resp.StatusCode, body)
	}

	var tok paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrGateway, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrGateway)
	}

	g.accessToken = tok.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return g.accessToken, nil
}

// doJSON sends an authorized JSON request and decodes the response into out
// when the status is 2xx. Non-2xx responses are reported as gateway errors
// with a truncated body for diagnosis.
func (g *PayPalGateway) doJSON(ctx context.Context, method, path string, in, out any) error {
	tok, err := g.token(ctx)
	if err != nil {
		return err
	}

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
	req.Header.Set("Authorization", "Bearer "+tok)
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

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	CustomID    string       `json:"custom_id,omitempty"`
	InvoiceID   string       `json:"invoice_id,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalCreateOrderRequest struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext struct {
		ReturnURL string `json:"return_url"`
		CancelURL string `json:"cancel_url"`
	} `json:"application_context"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrderResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

// CreateOrder registers a CAPTURE-intent order at PayPal. The local order id
// travels as custom_id so webhook events can be traced back without a lookup
// by provider id.
func (g *PayPalGateway) CreateOrder(ctx context.Context, o *model.Order, returnURL, cancelURL string) (*adapter.CreateOrderResult, error) {
	req := paypalCreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			CustomID:    o.ID,
			InvoiceID:   o.ID,
			Description: fmt.Sprintf("%s %s subscription", o.Tier, o.Duration),
			Amount: paypalAmount{
				CurrencyCode: o.Amount.Currency,
				Value:        formatMinorUnits(o.Amount.Total),
			},
		}},
	}
	req.ApplicationContext.ReturnURL = returnURL
	req.ApplicationContext.CancelURL = cancelURL

	var resp paypalOrderResponse
	if err := g.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: create order returned no id", domain.ErrGateway)
	}

	approval := ""
	for _, l := range resp.Links {
		if l.Rel == "approve" {
			approval = l.Href
			break
		}
	}
	if approval == "" {
		return nil, fmt.Errorf("%w: create order returned no approval link", domain.ErrGateway)
	}

	g.log.Debug().Str("provider_order_id", resp.ID).Str("order_id", o.ID).Msg("paypal order created")
	return &adapter.CreateOrderResult{ProviderOrderID: resp.ID, ApprovalURL: approval}, nil
}

type paypalCaptureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// Confirm captures the approved PayPal order named by proof.PaymentID.
// A non-COMPLETED capture status is a clean "not paid", not an error.
func (g *PayPalGateway) Confirm(ctx context.Context, proof adapter.ConfirmProof) (*adapter.ConfirmResult, error) {
	if proof.PaymentID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var resp paypalCaptureResponse
	path := "/v2/checkout/orders/" + url.PathEscape(proof.PaymentID) + "/capture"
	if err := g.doJSON(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "COMPLETED" {
		g.log.Warn().Str("provider_order_id", proof.PaymentID).Str("status", resp.Status).Msg("paypal capture not completed")
		return &adapter.ConfirmResult{Paid: false}, nil
	}

	captureID := resp.ID
	for _, pu := range resp.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.Status == "COMPLETED" {
				captureID = c.ID
			}
		}
	}
	return &adapter.ConfirmResult{Paid: true, TransactionID: captureID, Method: "paypal"}, nil
}

type paypalVerifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type paypalVerifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhook asks PayPal's verify-webhook-signature endpoint to validate
// the transmission headers against the configured webhook id. Missing headers
// or a non-SUCCESS verdict reject the event.
func (g *PayPalGateway) VerifyWebhook(ctx context.Context, header http.Header, body []byte) error {
	req := paypalVerifyRequest{
		AuthAlgo:         header.Get("Paypal-Auth-Algo"),
		CertURL:          header.Get("Paypal-Cert-Url"),
		TransmissionID:   header.Get("Paypal-Transmission-Id"),
		TransmissionSig:  header.Get("Paypal-Transmission-Sig"),
		TransmissionTime: header.Get("Paypal-Transmission-Time"),
		WebhookID:        g.webhookID,
		WebhookEvent:     json.RawMessage(body),
	}
	if req.TransmissionID == "" || req.TransmissionSig == "" || req.TransmissionTime == "" {
		return fmt.Errorf("%w: missing paypal transmission headers", domain.ErrUnauthorized)
	}

	var resp paypalVerifyResponse
	if err := g.doJSON(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", req, &resp); err != nil {
		return err
	}
	if resp.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("%w: paypal verification status %q", domain.ErrUnauthorized, resp.VerificationStatus)
	}
	return nil
}

// formatMinorUnits renders cents/paise as a two-decimal string ("999" -> "9.99").
func formatMinorUnits(v int64) string {
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}
