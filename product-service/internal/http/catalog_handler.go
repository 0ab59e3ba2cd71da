package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fjod/storefront/pkg/logger"
	"github.com/fjod/storefront/product-service/internal/domain"
	"github.com/fjod/storefront/product-service/internal/repository"
	"github.com/fjod/storefront/product-service/internal/variant"
)

// Catalog is the read side of the catalog repository.
type Catalog interface {
	ListGroups(ctx context.Context) ([]domain.ProductGroup, error)
	GetGroup(ctx context.Context, slug string) (*domain.ProductGroup, error)
	GetVariant(ctx context.Context, sku string) (*domain.VariantRef, error)
}

type CatalogHandler struct {
	catalog Catalog
	timeout time.Duration
	logger  *zap.Logger
}

func NewCatalogHandler(catalog Catalog, timeout time.Duration, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
	}
}

type GroupSummaryDTO struct {
	Name         string        `json:"name"`
	GroupSlug    string        `json:"group_slug"`
	Price        string        `json:"price"`
	VariantCount int           `json:"variant_count"`
	Facets       domain.Facets `json:"facets"`
}

type GroupResponseDTO struct {
	Group domain.ProductGroup `json:"group"`
	View  variant.View        `json:"view"`
}

// SelectionRequestDTO carries the current selection and at most one
// dimension change. With neither Color nor Size set the selection is only
// re-resolved.
type SelectionRequestDTO struct {
	Selection variant.Selection `json:"selection"`
	Color     *string           `json:"color,omitempty"`
	Size      *string           `json:"size,omitempty"`
}

func (h *CatalogHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	groups, err := h.catalog.ListGroups(ctx)
	if err != nil {
		h.internalError(ctx, w, "failed to list product groups", err)
		return
	}

	out := make([]GroupSummaryDTO, len(groups))
	for i, g := range groups {
		out[i] = GroupSummaryDTO{
			Name:         g.Name,
			GroupSlug:    g.GroupSlug,
			Price:        variant.FromPrice(g),
			VariantCount: len(g.Variants),
			Facets:       g.Facets,
		}
	}

	respondJSON(w, h.logger, http.StatusOK, out)
}

// GetGroup returns the group and the view seeded from the optional ?sku=.
func (h *CatalogHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	group, ok := h.loadGroup(ctx, w, chi.URLParam(r, "slug"))
	if !ok {
		return
	}

	sel := variant.Initialize(*group, r.URL.Query().Get("sku"))
	respondJSON(w, h.logger, http.StatusOK, GroupResponseDTO{
		Group: *group,
		View:  variant.Describe(*group, sel),
	})
}

func (h *CatalogHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Color != nil && req.Size != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_selection", "change either color or size, not both")
		return
	}

	group, ok := h.loadGroup(ctx, w, chi.URLParam(r, "slug"))
	if !ok {
		return
	}

	sel := req.Selection
	switch {
	case req.Color != nil:
		sel = variant.SetColor(*group, sel, *req.Color)
	case req.Size != nil:
		sel = variant.SetSize(*group, sel, *req.Size)
	}

	respondJSON(w, h.logger, http.StatusOK, variant.Describe(*group, sel))
}

func (h *CatalogHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ref, err := h.catalog.GetVariant(ctx, chi.URLParam(r, "sku"))
	if errors.Is(err, repository.ErrVariantNotFound) {
		respondError(w, h.logger, http.StatusNotFound, "not_found", "variant not found")
		return
	}
	if err != nil {
		h.internalError(ctx, w, "failed to get variant", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, ref)
}

func (h *CatalogHandler) loadGroup(ctx context.Context, w http.ResponseWriter, slug string) (*domain.ProductGroup, bool) {
	group, err := h.catalog.GetGroup(ctx, slug)
	if errors.Is(err, repository.ErrGroupNotFound) {
		respondError(w, h.logger, http.StatusNotFound, "not_found", "product group not found")
		return nil, false
	}
	if err != nil {
		h.internalError(ctx, w, "failed to get product group", err)
		return nil, false
	}
	return group, true
}

func (h *CatalogHandler) internalError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	logger.WithContext(ctx, h.logger).Error(msg, zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		respondError(w, h.logger, http.StatusGatewayTimeout, "timeout", msg)
		return
	}
	respondError(w, h.logger, http.StatusInternalServerError, "internal_error", msg)
}
