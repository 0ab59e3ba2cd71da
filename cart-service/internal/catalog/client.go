// Package catalog looks up variants on product-service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/storefront/cart-service/internal/domain"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/fjod/storefront/pkg/middleware"
)

var ErrVariantNotFound = errors.New("variant not found in catalog")

// errCallerGone marks lookups abandoned by the caller. The catalog may be
// healthy, so they never count against the breaker.
var errCallerGone = errors.New("catalog lookup abandoned by caller")

// Variant is what the cart needs to know about a SKU.
type Variant struct {
	Details domain.ItemDetails
	InStock bool
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[Variant]
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[Variant](circuitbreaker.DefaultConfig("product-service"), logger, ErrVariantNotFound, errCallerGone),
		logger:  logger,
	}
}

type variantResponse struct {
	GroupSlug string `json:"group_slug"`
	GroupName string `json:"group_name"`
	Variant   struct {
		SKU     string  `json:"sku"`
		Color   *string `json:"color"`
		Size    *string `json:"size"`
		Price   float64 `json:"price"`
		InStock bool    `json:"in_stock"`
		Images  []struct {
			URL     string `json:"url"`
			Primary bool   `json:"primary"`
		} `json:"images"`
	} `json:"variant"`
}

// LookupVariant fetches sku from the catalog. It returns ErrVariantNotFound
// for unknown SKUs and gobreaker.ErrOpenState while the catalog is considered
// down.
func (c *Client) LookupVariant(ctx context.Context, sku string) (Variant, error) {
	return c.breaker.Execute(func() (Variant, error) {
		v, err := c.fetch(ctx, sku)
		if err != nil && ctx.Err() != nil {
			return v, fmt.Errorf("%w: %w", errCallerGone, ctx.Err())
		}
		return v, err
	})
}

func (c *Client) fetch(ctx context.Context, sku string) (Variant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/variants/"+url.PathEscape(sku), nil)
	if err != nil {
		return Variant{}, fmt.Errorf("failed to build catalog request: %w", err)
	}
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Variant{}, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Variant{}, ErrVariantNotFound
	case resp.StatusCode != http.StatusOK:
		return Variant{}, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var body variantResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Variant{}, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return toVariant(body), nil
}

func toVariant(body variantResponse) Variant {
	v := body.Variant
	details := domain.ItemDetails{
		SKU:       v.SKU,
		Name:      body.GroupName,
		Price:     v.Price,
		GroupSlug: body.GroupSlug,
	}
	if v.Color != nil {
		details.Color = *v.Color
	}
	if v.Size != nil {
		details.Size = *v.Size
	}
	for i, img := range v.Images {
		if img.Primary || i == 0 {
			details.Image = img.URL
		}
		if img.Primary {
			break
		}
	}
	return Variant{Details: details, InStock: v.InStock}
}
