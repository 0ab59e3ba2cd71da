package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/storefront/cart-service/internal/checkout"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type Checkout interface {
	PlaceOrder(ctx context.Context, sessionID, idempotencyKey string) (*checkout.Order, error)
}

type CheckoutHandler struct {
	checkout Checkout
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(c Checkout, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: c,
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := r.Header.Get(IdempotencyKeyHeader)
	if len(key) > 128 {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key must be at most 128 characters")
		return
	}

	order, err := h.checkout.PlaceOrder(ctx, SessionID(ctx), key)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, h.logger, http.StatusBadRequest, "empty_cart", err.Error())
		return
	case errors.Is(err, checkout.ErrPublishFailed):
		resp := ErrorResponse{Error: "order could not be placed, try again", Code: "checkout_failed"}
		if order != nil {
			resp.Details = order.Number + " " + order.Status.String()
		}
		respondJSON(w, h.logger, http.StatusBadGateway, resp)
		return
	case err != nil:
		h.logger.Error("checkout failed", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, order)
}
