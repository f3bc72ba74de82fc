// File: internal/infra/mail/resend.go
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/config"
	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/ports/adapter"
)

const resendBaseURL = "https://api.resend.com"

var _ adapter.Mailer = (*ResendMailer)(nil)

// ResendMailer delivers transactional email through the Resend HTTP API.
type ResendMailer struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewResendMailer(cfg *config.EmailConfig, logger zerolog.Logger) *ResendMailer {
	return &ResendMailer{
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		baseURL:    resendBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With().Str("component", "resend-mailer").Logger(),
	}
}

type resendSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

func (m *ResendMailer) Send(ctx context.Context, e adapter.Email) error {
	if e.To == "" {
		return domain.ErrInvalidArgument
	}

	b, err := json.Marshal(resendSendRequest{
		From:    m.from,
		To:      []string{e.To},
		Subject: e.Subject,
		HTML:    e.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("send email status %d: %s", resp.StatusCode, body)
	}

	var out resendSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.ID != "" {
		m.log.Debug().Str("message_id", out.ID).Str("to", e.To).Msg("email delivered")
	}
	return nil
}
