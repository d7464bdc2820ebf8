package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kudorimaru/bcart-review-app/pkg/logger"
)

// ShopIDExtractor pulls the tenant identifier out of a request, or returns "".
type ShopIDExtractor func(r *http.Request) string

// ShopIDFromQuery reads the shop ID from a query parameter. Values using the
// REST filter form ("eq.<id>") are unwrapped.
func ShopIDFromQuery(param string) ShopIDExtractor {
	return func(r *http.Request) string {
		v := r.URL.Query().Get(param)
		return strings.TrimPrefix(v, "eq.")
	}
}

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, shop_id, trace_id, and span_id, then stores it in
// context via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// Mount it after RequestLogging (which sets correlation_id) and Tracing
// (which sets the OpenTelemetry span context).
func RequestLogger(base *slog.Logger, shopID ShopIDExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if shopID != nil {
				if id := shopID(r); id != "" {
					ctx = logger.WithShopID(ctx, id)
				}
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
