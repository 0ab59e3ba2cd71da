package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/fjod/storefront/cart-service/internal/catalog"
	"github.com/fjod/storefront/cart-service/internal/domain"
	"github.com/fjod/storefront/cart-service/internal/service"
	"github.com/fjod/storefront/pkg/logger"
)

const MaxQuantity = 99

type Carts interface {
	GetCart(ctx context.Context, sessionID string) domain.Summary
	AddItem(ctx context.Context, sessionID, sku string) (domain.Summary, error)
	UpdateQuantity(ctx context.Context, sessionID, sku string, quantity int) domain.Summary
	RemoveItem(ctx context.Context, sessionID, sku string) domain.Summary
	ClearCart(ctx context.Context, sessionID string) domain.Summary
}

type CartHandler struct {
	carts   Carts
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(carts Carts, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	SKU string `json:"sku"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	summary := h.carts.GetCart(r.Context(), SessionID(r.Context()))
	respondJSON(w, h.logger, http.StatusOK, summary)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SKU == "" {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_sku", "sku is required")
		return
	}

	summary, err := h.carts.AddItem(ctx, SessionID(ctx), req.SKU)
	if err != nil {
		h.addItemError(w, r, req.SKU, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, summary)
}

func (h *CartHandler) addItemError(w http.ResponseWriter, r *http.Request, sku string, err error) {
	switch {
	case errors.Is(err, catalog.ErrVariantNotFound):
		respondError(w, h.logger, http.StatusNotFound, "variant_not_found", "no variant with sku "+sku)
	case errors.Is(err, service.ErrOutOfStock):
		respondError(w, h.logger, http.StatusConflict, "out_of_stock", sku+" is out of stock")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, h.logger, http.StatusServiceUnavailable, "catalog_unavailable", "catalog is unavailable, try again later")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, h.logger, http.StatusGatewayTimeout, "timeout", "catalog did not answer in time")
	default:
		logger.WithContext(r.Context(), h.logger).Error("catalog lookup failed", zap.String("sku", sku), zap.Error(err))
		respondError(w, h.logger, http.StatusBadGateway, "catalog_error", "failed to look up variant")
	}
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}
	if *req.Quantity > MaxQuantity {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	summary := h.carts.UpdateQuantity(r.Context(), SessionID(r.Context()), sku, *req.Quantity)
	respondJSON(w, h.logger, http.StatusOK, summary)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	summary := h.carts.RemoveItem(r.Context(), SessionID(r.Context()), chi.URLParam(r, "sku"))
	respondJSON(w, h.logger, http.StatusOK, summary)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	summary := h.carts.ClearCart(r.Context(), SessionID(r.Context()))
	respondJSON(w, h.logger, http.StatusOK, summary)
}
