package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cromashop/croma/internal/config"
	"github.com/cromashop/croma/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.MetricsContext)

	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// Stripe calls this directly; it stays outside the CORS-guarded API.
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.CORS)
	api.HandleFunc("/checkout", h.Checkout).Methods("POST", "OPTIONS").Name("api.checkout")
	api.HandleFunc("/checkout/resume", h.ResumeCheckout).Methods("POST", "OPTIONS").Name("api.checkout.resume")
	api.HandleFunc("/verify-session", h.VerifySession).Methods("GET", "OPTIONS").Name("api.verify_session")
	api.HandleFunc("/orders/cancel", h.CancelOrder).Methods("POST", "OPTIONS").Name("api.orders.cancel")
	api.HandleFunc("/orders/returnable-items", h.ReturnableItems).Methods("GET", "OPTIONS").Name("api.orders.returnable_items")
	api.HandleFunc("/returns", h.CreateReturn).Methods("POST", "OPTIONS").Name("api.returns")
	api.HandleFunc("/auth/claim-orders", h.ClaimOrders).Methods("POST", "OPTIONS").Name("api.auth.claim_orders")
	api.HandleFunc("/coupons/validate", h.ValidateCoupon).Methods("POST", "OPTIONS").Name("api.coupons.validate")
	api.HandleFunc("/newsletter", h.Subscribe).Methods("POST", "OPTIONS").Name("api.newsletter")

	api.HandleFunc("/admin/orders/status", h.AdminUpdateOrderStatus).Methods("POST", "OPTIONS").Name("api.admin.orders.status")
	api.HandleFunc("/admin/returns/status", h.AdminUpdateReturnStatus).Methods("POST", "OPTIONS").Name("api.admin.returns.status")
	api.HandleFunc("/admin/marketing", h.AdminSendMarketing).Methods("POST", "OPTIONS").Name("api.admin.marketing")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	return r
}
