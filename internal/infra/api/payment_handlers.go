// File: internal/infra/api/payment_handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"intelligrid-billing/internal/domain"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
)

type orderView struct {
	OrderID       string     `json:"orderId"`
	Status        string     `json:"status"`
	Plan          string     `json:"plan"`
	Gateway       string     `json:"gateway"`
	Currency      string     `json:"currency"`
	Subtotal      int64      `json:"subtotal"`
	Discount      int64      `json:"discount"`
	Total         int64      `json:"total"`
	CouponCode    string     `json:"couponCode,omitempty"`
	TransactionID string     `json:"transactionId,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toOrderView(o *model.Order) orderView {
	v := orderView{
		OrderID:       o.ID,
		Status:        string(o.Status),
		Plan:          string(o.Tier) + "_" + string(o.Duration),
		Gateway:       string(o.Gateway),
		Currency:      o.Amount.Currency,
		Subtotal:      o.Amount.Subtotal,
		Discount:      o.Amount.Discount,
		Total:         o.Amount.Total,
		TransactionID: o.Payment.TransactionID,
		PaidAt:        o.PaidAt,
		CreatedAt:     o.CreatedAt,
	}
	if o.CouponCode != nil {
		v.CouponCode = *o.CouponCode
	}
	return v
}

type createOrderRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) handlePayPalCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, res, err := s.payments.CreateOrder(r.Context(), UserIDFrom(r.Context()), req.Plan, model.GatewayPayPal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"orderId":     order.ID,
		"approvalUrl": res.ApprovalURL,
	})
}

func (s *Server) handleCashfreeCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, res, err := s.payments.CreateOrder(r.Context(), UserIDFrom(r.Context()), req.Plan, model.GatewayCashfree)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"orderId":          order.ID,
		"paymentSessionId": res.PaymentSessionID,
		"paymentLink":      res.ApprovalURL,
	})
}

type paypalCaptureRequest struct {
	PaymentID string `json:"paymentId"`
	PayerID   string `json:"payerId"`
}

func (s *Server) handlePayPalCapture(w http.ResponseWriter, r *http.Request) {
	var req paypalCaptureRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PaymentID == "" {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	order, err := s.payments.Confirm(r.Context(), model.GatewayPayPal, adapter.ConfirmProof{
		PaymentID: req.PaymentID,
		PayerID:   req.PayerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if order.UserID != UserIDFrom(r.Context()) {
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

type cashfreeVerifyRequest struct {
	OrderID string `json:"orderId"`
}

func (s *Server) handleCashfreeVerify(w http.ResponseWriter, r *http.Request) {
	var req cashfreeVerifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.OrderID == "" {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	order, err := s.payments.Confirm(r.Context(), model.GatewayCashfree, adapter.ConfirmProof{
		OrderID: req.OrderID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if order.UserID != UserIDFrom(r.Context()) {
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

type applyCouponRequest struct {
	OrderID string `json:"orderId"`
	Code    string `json:"code"`
}

func (s *Server) handleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.OrderID == "" || req.Code == "" {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	order, err := s.coupons.Apply(r.Context(), UserIDFrom(r.Context()), req.OrderID, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	order, err := s.orders.FindByID(r.Context(), nil, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if order.UserID != UserIDFrom(r.Context()) {
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}
