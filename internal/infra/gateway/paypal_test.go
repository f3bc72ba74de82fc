//go:build !integration

// File: internal/infra/gateway/paypal_test.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/config"
	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
)

func newTestPayPal(t *testing.T, handler http.Handler) *PayPalGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewPayPalGateway(&config.PayPalConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		WebhookID:    "wh-1",
		Sandbox:      true,
	}, zerolog.Nop())
	g.baseURL = srv.URL
	return g
}

func paypalTokenHandler(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "csecret" {
			t.Errorf("bad basic auth: %q/%q", user, pass)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
}

func TestPayPalGateway_CreateOrder(t *testing.T) {
	mux := http.NewServeMux()
	paypalTokenHandler(t, mux)
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("auth header = %q", got)
		}
		var req paypalCreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Intent != "CAPTURE" {
			t.Errorf("intent = %q", req.Intent)
		}
		pu := req.PurchaseUnits[0]
		if pu.CustomID != "order-1" || pu.Amount.Value != "9.99" || pu.Amount.CurrencyCode != "USD" {
			t.Errorf("purchase unit = %+v", pu)
		}
		_ = json.NewEncoder(w).Encode(paypalOrderResponse{
			ID: "PP-1",
			Links: []paypalLink{
				{Rel: "self", Href: "https://example.com/self"},
				{Rel: "approve", Href: "https://example.com/approve"},
			},
		})
	})

	g := newTestPayPal(t, mux)
	order, err := model.NewOrder("order-1", "user-1", model.TierPro, model.DurationMonthly, model.GatewayPayPal)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}

	res, err := g.CreateOrder(context.Background(), order, "https://app/return", "https://app/cancel")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if res.ProviderOrderID != "PP-1" || res.ApprovalURL != "https://example.com/approve" {
		t.Fatalf("result = %+v", res)
	}
}

func TestPayPalGateway_Confirm(t *testing.T) {
	t.Run("completed capture", func(t *testing.T) {
		mux := http.NewServeMux()
		paypalTokenHandler(t, mux)
		mux.HandleFunc("/v2/checkout/orders/PP-1/capture", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{
				"id": "PP-1",
				"status": "COMPLETED",
				"purchase_units": [{"payments": {"captures": [{"id": "CAP-1", "status": "COMPLETED"}]}}]
			}`))
		})

		g := newTestPayPal(t, mux)
		res, err := g.Confirm(context.Background(), adapter.ConfirmProof{PaymentID: "PP-1"})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if !res.Paid || res.TransactionID != "CAP-1" {
			t.Fatalf("result = %+v", res)
		}
	})

	t.Run("non-completed status is not paid", func(t *testing.T) {
		mux := http.NewServeMux()
		paypalTokenHandler(t, mux)
		mux.HandleFunc("/v2/checkout/orders/PP-1/capture", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(paypalCaptureResponse{ID: "PP-1", Status: "DECLINED"})
		})

		g := newTestPayPal(t, mux)
		res, err := g.Confirm(context.Background(), adapter.ConfirmProof{PaymentID: "PP-1"})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if res.Paid {
			t.Fatal("declined capture reported as paid")
		}
	})

	t.Run("gateway 5xx surfaces ErrGateway", func(t *testing.T) {
		mux := http.NewServeMux()
		paypalTokenHandler(t, mux)
		mux.HandleFunc("/v2/checkout/orders/PP-1/capture", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		g := newTestPayPal(t, mux)
		_, err := g.Confirm(context.Background(), adapter.ConfirmProof{PaymentID: "PP-1"})
		if !errors.Is(err, domain.ErrGateway) {
			t.Fatalf("err = %v, want ErrGateway", err)
		}
	})
}

func TestPayPalGateway_VerifyWebhook(t *testing.T) {
	header := http.Header{}
	header.Set("Paypal-Auth-Algo", "SHA256withRSA")
	header.Set("Paypal-Cert-Url", "https://api.paypal.com/cert")
	header.Set("Paypal-Transmission-Id", "tid-1")
	header.Set("Paypal-Transmission-Sig", "sig-1")
	header.Set("Paypal-Transmission-Time", "2026-01-01T00:00:00Z")
	body := []byte(`{"event_type":"PAYMENT.CAPTURE.COMPLETED"}`)

	run := func(t *testing.T, status string) error {
		mux := http.NewServeMux()
		paypalTokenHandler(t, mux)
		mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
			var req paypalVerifyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode verify request: %v", err)
			}
			if req.WebhookID != "wh-1" || req.TransmissionID != "tid-1" {
				t.Errorf("verify request = %+v", req)
			}
			_ = json.NewEncoder(w).Encode(paypalVerifyResponse{VerificationStatus: status})
		})
		g := newTestPayPal(t, mux)
		return g.VerifyWebhook(context.Background(), header, body)
	}

	if err := run(t, "SUCCESS"); err != nil {
		t.Fatalf("verified webhook rejected: %v", err)
	}
	if err := run(t, "FAILURE"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}

	g := newTestPayPal(t, http.NewServeMux())
	if err := g.VerifyWebhook(context.Background(), http.Header{}, body); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("missing headers err = %v, want ErrUnauthorized", err)
	}
}

func TestFormatMinorUnits(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{999, "9.99"},
		{9900, "99.00"},
		{5, "0.05"},
		{100, "1.00"},
		{799900, "7999.00"},
	}
	for _, c := range cases {
		if got := formatMinorUnits(c.in); got != c.want {
			t.Errorf("formatMinorUnits(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
