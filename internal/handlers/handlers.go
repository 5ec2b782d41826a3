package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cromashop/croma/internal/auth"
	"github.com/cromashop/croma/internal/cache"
	"github.com/cromashop/croma/internal/config"
	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/logging"
	"github.com/cromashop/croma/internal/services"
)

const maxBodyBytes = 1 << 20 // 1 MB

// Handlers provides the storefront JSON API.
type Handlers struct {
	config           *config.Config
	db               *pgxpool.Pool
	cacheProvider    cache.Provider
	verifier         *auth.Verifier
	stripeRouter     *StripeEventRouter
	checkoutService  *services.CheckoutService
	reconcileService *services.ReconcileService
	orderActions     *services.OrderActionsService
	returnService    *services.ReturnService
	couponService    *services.CouponService
	marketingService *services.MarketingService
	logger           *slog.Logger
}

type Dependencies struct {
	Config           *config.Config
	DB               *pgxpool.Pool
	CacheProvider    cache.Provider
	Verifier         *auth.Verifier
	StripeRouter     *StripeEventRouter
	CheckoutService  *services.CheckoutService
	ReconcileService *services.ReconcileService
	OrderActions     *services.OrderActionsService
	ReturnService    *services.ReturnService
	CouponService    *services.CouponService
	MarketingService *services.MarketingService
	Logger           *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("handlers dependencies: verifier is required")
	}
	if deps.StripeRouter == nil {
		return nil, fmt.Errorf("handlers dependencies: stripeRouter is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.ReconcileService == nil {
		return nil, fmt.Errorf("handlers dependencies: reconcileService is required")
	}
	if deps.OrderActions == nil {
		return nil, fmt.Errorf("handlers dependencies: orderActions is required")
	}
	if deps.ReturnService == nil {
		return nil, fmt.Errorf("handlers dependencies: returnService is required")
	}
	if deps.CouponService == nil {
		return nil, fmt.Errorf("handlers dependencies: couponService is required")
	}
	if deps.MarketingService == nil {
		return nil, fmt.Errorf("handlers dependencies: marketingService is required")
	}

	return &Handlers{
		config:           deps.Config,
		db:               deps.DB,
		cacheProvider:    deps.CacheProvider,
		verifier:         deps.Verifier,
		stripeRouter:     deps.StripeRouter,
		checkoutService:  deps.CheckoutService,
		reconcileService: deps.ReconcileService,
		orderActions:     deps.OrderActions,
		returnService:    deps.ReturnService,
		couponService:    deps.CouponService,
		marketingService: deps.MarketingService,
		logger:           logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

// identityFromRequest verifies the caller's session token if one is present.
// Endpoints that allow guests get a nil identity for anonymous requests; a
// present-but-invalid token is always an error.
func (h *Handlers) identityFromRequest(r *http.Request) (*auth.Identity, error) {
	identity, err := h.verifier.FromRequest(r)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			return nil, nil
		}
		return nil, err
	}
	return identity, nil
}

// requireIdentity is identityFromRequest for endpoints that refuse guests.
func (h *Handlers) requireIdentity(r *http.Request) (*auth.Identity, error) {
	identity, err := h.identityFromRequest(r)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, services.ErrUnauthorized
	}
	return identity, nil
}

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP status codes. Anything not
// recognized is a 500 with a generic body; the detail stays in the logs.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, services.ErrUnauthorized):
		h.writeError(w, r, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, services.ErrForbidden):
		h.writeError(w, r, http.StatusForbidden, "Not allowed")
	case errors.Is(err, db.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, db.ErrInsufficientStock),
		errors.Is(err, db.ErrItemAlreadyClaimed),
		errors.Is(err, services.ErrOrderNotCancellable),
		errors.Is(err, services.ErrOrderNotResumable),
		errors.Is(err, services.ErrOrderNotReturnable):
		h.writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidAddress),
		errors.Is(err, services.ErrUnknownProduct),
		errors.Is(err, services.ErrPriceMismatch),
		errors.Is(err, services.ErrInvalidReturnItems),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidEmail):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.loggerFromContext(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
		h.writeError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// eurosToCents converts a JSON decimal euro amount to internal cents.
func eurosToCents(euros float64) int64 {
	return int64(math.Round(euros * 100))
}

// centsToEuros converts internal cents to the decimal euro amount the
// storefront JSON speaks.
func centsToEuros(cents int64) float64 {
	return float64(cents) / 100
}
