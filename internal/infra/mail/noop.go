package mail

import (
	"context"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*NoopMailer)(nil)

// NoopMailer logs instead of sending. Used in dev when no email API key is
// configured so the outbox still drains.
type NoopMailer struct {
	log zerolog.Logger
}

func NewNoopMailer(logger zerolog.Logger) *NoopMailer {
	return &NoopMailer{log: logger.With().Str("component", "noop-mailer").Logger()}
}

func (m *NoopMailer) Send(_ context.Context, e adapter.Email) error {
	m.log.Info().Str("to", e.To).Str("subject", e.Subject).Msg("email suppressed (noop mailer)")
	return nil
}
