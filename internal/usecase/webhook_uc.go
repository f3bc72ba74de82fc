// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
	"intelligrid-billing/internal/domain/ports/repository"
	"intelligrid-billing/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// Process handles one inbound gateway callback. The callback is logged
	// verbatim before verification; domain.ErrUnauthorized means the
	// signature check failed and the provider should see a 401. Business
	// failures after verification return nil so the provider is not asked
	// to retry events we cannot use.
	Process(ctx context.Context, source model.Gateway, header http.Header, body []byte) error
}

type webhookUC struct {
	logs     repository.WebhookLogRepository
	payments PaymentUseCase
	gateways map[model.Gateway]adapter.PaymentGateway
	log      *zerolog.Logger
}

func NewWebhookUseCase(
	logs repository.WebhookLogRepository,
	payments PaymentUseCase,
	gateways map[model.Gateway]adapter.PaymentGateway,
	logger *zerolog.Logger,
) *webhookUC {
	ucLog := logger.With().Str("component", "WebhookUC").Logger()
	return &webhookUC{logs: logs, payments: payments, gateways: gateways, log: &ucLog}
}

func (u *webhookUC) Process(ctx context.Context, source model.Gateway, header http.Header, body []byte) error {
	eventType := parseEventType(source, body)
	entry := &model.WebhookLog{
		ID:         uuid.NewString(),
		Source:     source,
		EventType:  eventType,
		Payload:    body,
		Headers:    flattenHeader(header),
		Status:     model.WebhookStatusReceived,
		ReceivedAt: time.Now(),
	}
	// Persist before verification so rejected calls still leave a trail.
	if err := u.logs.Save(ctx, nil, entry); err != nil {
		return err
	}

	gw, ok := u.gateways[source]
	if !ok {
		u.setStatus(ctx, entry.ID, model.WebhookStatusRejected, "unknown source")
		metrics.IncWebhookEvent(string(source), "rejected")
		return domain.ErrUnauthorized
	}
	if err := gw.VerifyWebhook(ctx, header, body); err != nil {
		u.setStatus(ctx, entry.ID, model.WebhookStatusRejected, err.Error())
		metrics.IncWebhookEvent(string(source), "rejected")
		return domain.ErrUnauthorized
	}

	if err := u.dispatch(ctx, source, eventType, body); err != nil {
		u.log.Error().Err(err).Str("source", string(source)).Str("event", eventType).Msg("webhook dispatch failed")
		u.setStatus(ctx, entry.ID, model.WebhookStatusFailed, err.Error())
		metrics.IncWebhookEvent(string(source), "failed")
		// Acknowledge anyway; most providers retry indefinitely otherwise.
		return nil
	}
	u.setStatus(ctx, entry.ID, model.WebhookStatusProcessed, "")
	metrics.IncWebhookEvent(string(source), "processed")
	return nil
}

func (u *webhookUC) dispatch(ctx context.Context, source model.Gateway, eventType string, body []byte) error {
	switch source {
	case model.GatewayPayPal:
		return u.dispatchPayPal(ctx, eventType, body)
	case model.GatewayCashfree:
		return u.dispatchCashfree(ctx, eventType, body)
	}
	return domain.ErrInvalidArgument
}

type paypalEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID        string `json:"id"`
		CustomID  string `json:"custom_id"`
		InvoiceID string `json:"invoice_id"`
	} `json:"resource"`
}

func (u *webhookUC) dispatchPayPal(ctx context.Context, eventType string, body []byte) error {
	var ev paypalEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	orderID := ev.Resource.CustomID
	if orderID == "" {
		orderID = ev.Resource.InvoiceID
	}

	switch eventType {
	case "PAYMENT.SALE.COMPLETED", "PAYMENT.CAPTURE.COMPLETED":
		if orderID == "" {
			return domain.ErrInvalidArgument
		}
		_, err := u.payments.CompleteOrder(ctx, orderID, model.PaymentDetails{
			TransactionID: ev.Resource.ID,
			Method:        "paypal",
		})
		return err
	case "PAYMENT.SALE.REFUNDED", "PAYMENT.CAPTURE.REFUNDED":
		if orderID == "" {
			return domain.ErrInvalidArgument
		}
		return u.payments.RefundOrder(ctx, orderID)
	case "BILLING.SUBSCRIPTION.CANCELLED":
		if orderID == "" {
			return domain.ErrInvalidArgument
		}
		return u.payments.CancelOrder(ctx, orderID)
	default:
		u.log.Debug().Str("event", eventType).Msg("unhandled paypal event, acknowledged")
		return nil
	}
}

type cashfreeEvent struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			CfPaymentID  json.Number `json:"cf_payment_id"`
			PaymentGroup string      `json:"payment_group"`
		} `json:"payment"`
	} `json:"data"`
}

func (u *webhookUC) dispatchCashfree(ctx context.Context, eventType string, body []byte) error {
	var ev cashfreeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	orderID := ev.Data.Order.OrderID

	switch eventType {
	case "PAYMENT_SUCCESS_WEBHOOK":
		if orderID == "" {
			return domain.ErrInvalidArgument
		}
		_, err := u.payments.CompleteOrder(ctx, orderID, model.PaymentDetails{
			TransactionID: ev.Data.Payment.CfPaymentID.String(),
			Method:        ev.Data.Payment.PaymentGroup,
		})
		return err
	case "PAYMENT_FAILED_WEBHOOK", "PAYMENT_USER_DROPPED_WEBHOOK":
		if orderID == "" {
			return domain.ErrInvalidArgument
		}
		return u.payments.FailOrder(ctx, orderID)
	default:
		u.log.Debug().Str("event", eventType).Msg("unhandled cashfree event, acknowledged")
		return nil
	}
}

func (u *webhookUC) setStatus(ctx context.Context, id string, status model.WebhookStatus, errMsg string) {
	if err := u.logs.SetStatus(ctx, nil, id, status, errMsg); err != nil {
		u.log.Error().Err(err).Str("webhook_log_id", id).Msg("failed to update webhook log status")
	}
}

func parseEventType(source model.Gateway, body []byte) string {
	switch source {
	case model.GatewayPayPal:
		var ev struct {
			EventType string `json:"event_type"`
		}
		_ = json.Unmarshal(body, &ev)
		return ev.EventType
	case model.GatewayCashfree:
		var ev struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(body, &ev)
		return ev.Type
	}
	return ""
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
