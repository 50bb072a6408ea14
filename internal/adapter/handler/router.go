package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/stock-lookup/internal/metrics"
)

// Route is one entry of the HTTP route table. Public routes are served to
// any origin and are never cacheable.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	Public  bool
}

// Routes returns the route table served by this handler. The
// /product-stock-data paths keep existing spreadsheet clients working.
func (h *HTTPHandler) Routes() []Route {
	var routes []Route
	for _, prefix := range []string{"/lookup", "/product-stock-data"} {
		routes = append(routes,
			Route{Method: http.MethodPost, Pattern: prefix + "/batch", Handler: h.LookupBatch, Public: true},
			Route{Method: http.MethodGet, Pattern: prefix + "/{sku}", Handler: h.LookupBySKU, Public: true},
			Route{Method: http.MethodGet, Pattern: prefix + "/", Handler: h.LookupBySKU, Public: true},
		)
	}

	return append(routes,
		Route{Method: http.MethodGet, Pattern: "/health", Handler: h.HealthCheck},
		Route{Method: http.MethodGet, Pattern: "/ready", Handler: h.ReadyCheck},
		Route{Method: http.MethodGet, Pattern: "/metrics", Handler: metrics.Handler().ServeHTTP},
	)
}

type RouterOptions struct {
	RequestTimeout time.Duration
}

// NewRouter mounts routes on a fresh chi router wrapped in the standard
// middleware chain.
func NewRouter(routes []Route, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(metrics.Middleware)
	if opts.RequestTimeout > 0 {
		r.Use(Timeout(opts.RequestTimeout))
	}

	preflight := make(map[string]bool)
	for _, route := range routes {
		if !route.Public {
			r.Method(route.Method, route.Pattern, route.Handler)
			continue
		}

		r.With(PublicAccess).Method(route.Method, route.Pattern, route.Handler)
		if !preflight[route.Pattern] {
			preflight[route.Pattern] = true
			r.With(PublicAccess).Options(route.Pattern, noContent)
		}
	}

	return r
}

func noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
