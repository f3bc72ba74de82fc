// File: internal/infra/api/webhook_handlers.go
package api

import (
	"errors"
	"io"
	"net/http"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
)

// webhookBodyLimit caps raw webhook payloads; real gateway events are a few KB.
const webhookBodyLimit = 1 << 20

func (s *Server) handleWebhook(source model.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The raw body must survive untouched for signature verification.
		body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
		if err != nil {
			writeError(w, domain.ErrInvalidArgument)
			return
		}

		if err := s.webhooks.Process(r.Context(), source, r.Header, body); err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				writeError(w, domain.ErrUnauthorized)
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}
}
