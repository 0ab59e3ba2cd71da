package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/storefront/pkg/logger"
)

// NewProxy forwards requests to target unchanged apart from the host and
// the X-Forwarded-* headers.
func NewProxy(name string, target *url.URL, log *zap.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.WithContext(r.Context(), log).Warn("upstream request failed",
				zap.String("upstream", name),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			if errors.Is(err, context.DeadlineExceeded) {
				respondError(w, log, http.StatusGatewayTimeout, "timeout", name+" did not answer in time")
				return
			}
			respondError(w, log, http.StatusBadGateway, "upstream_unavailable", name+" is unavailable")
		},
	}
}
