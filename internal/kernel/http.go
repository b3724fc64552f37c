// Package kernel builds the storefront's http.Handler: the global
// middleware stack, the operational endpoints and the API routes.
package kernel

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/reqid"
	"github.com/shashiranjanraj/storefront/pkg/response"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

// Options configures the kernel.
type Options struct {
	// Counter backs the per-IP rate limit. Nil disables it.
	Counter   cache.Counter
	RateLimit int

	CORSOrigins []string

	// Health is probed by GET /health.
	Health func(ctx context.Context) error

	// StaticDir, when set, is served under /storage/.
	StaticDir string
}

// NewHTTPKernel returns a router with the global stack applied and every
// register callback mounted.
func NewHTTPKernel(opts Options, register ...func(*router.Router)) *router.Router {
	r := router.New()

	// Outermost first: metrics see the full latency, recovery catches
	// everything below it, the request id exists before anything logs.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(opts.CORSOrigins)))
	if opts.Counter != nil && opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.Counter, opts.RateLimit, time.Minute))
	}

	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/health", "health", healthHandler(opts.Health))
	if opts.StaticDir != "" {
		r.Mount("/storage", http.StripPrefix("/storage", http.FileServer(http.Dir(opts.StaticDir))))
	}

	for _, fn := range register {
		fn(r)
	}
	return r
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				response.Write(w, http.StatusServiceUnavailable, response.Envelope{
					Status:  http.StatusServiceUnavailable,
					Message: "database unavailable",
				})
				return
			}
		}
		response.Success(w, map[string]string{"database": "up"})
	}
}
