// File: internal/infra/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"intelligrid-billing/internal/config"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/repository"
	infredis "intelligrid-billing/internal/infra/redis"
	"intelligrid-billing/internal/usecase"
)

// Pinger reports dependency liveness for the health endpoint.
type Pinger func(ctx context.Context) error

// Server owns the HTTP surface: authenticated payment endpoints, the
// unauthenticated webhook sinks, and the health/metrics plumbing.
type Server struct {
	httpServer *http.Server
	payments   usecase.PaymentUseCase
	coupons    usecase.CouponUseCase
	webhooks   usecase.WebhookUseCase
	orders     repository.OrderRepository
	pingers    map[string]Pinger
	log        zerolog.Logger
}

func NewServer(
	cfg *config.ServerConfig,
	payments usecase.PaymentUseCase,
	coupons usecase.CouponUseCase,
	webhooks usecase.WebhookUseCase,
	orders repository.OrderRepository,
	limiter *infredis.RateLimiter,
	pingers map[string]Pinger,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		payments: payments,
		coupons:  coupons,
		webhooks: webhooks,
		orders:   orders,
		pingers:  pingers,
		log:      logger.With().Str("component", "http-server").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(requestLogger(&s.log))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/payment/webhooks", func(r chi.Router) {
		r.Post("/paypal", s.handleWebhook(model.GatewayPayPal))
		r.Post("/cashfree", s.handleWebhook(model.GatewayCashfree))
	})

	r.Route("/api/v1/payment", func(r chi.Router) {
		r.Use(sessionAuth(cfg.JWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(orderCreateLimit(limiter, 10, time.Minute))
			r.Post("/paypal/create-order", s.handlePayPalCreateOrder)
			r.Post("/cashfree/create-order", s.handleCashfreeCreateOrder)
		})

		r.Post("/paypal/capture", s.handlePayPalCapture)
		r.Post("/cashfree/verify", s.handleCashfreeVerify)
		r.Post("/coupons/apply", s.handleApplyCoupon)
		r.Get("/orders/{orderID}", s.handleGetOrder)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.pingers))
	for name, ping := range s.pingers {
		if err := ping(ctx); err != nil {
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}
	writeJSON(w, status, map[string]any{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
