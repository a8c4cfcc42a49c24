package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	activityhttp "github.com/invoiceflow/invoiceflow/internal/activity/http"
	"github.com/invoiceflow/invoiceflow/internal/auth"
	"github.com/invoiceflow/invoiceflow/internal/observability"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
	"github.com/invoiceflow/invoiceflow/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	AuthMiddleware  *auth.Middleware
	UsersHandler    *users.Handler
	ActivityHandler *activityhttp.Handler
	Pool            *pgxpool.Pool
	Redis           *redis.Client
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with InvoiceFlow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/api/health", healthHandler(params))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/auth", func(ar chi.Router) {
		params.AuthHandler.MountRoutes(ar, params.AuthMiddleware)
	})

	r.Route("/api/users", func(ur chi.Router) {
		ur.Use(params.AuthMiddleware.RequireAuth)
		params.UsersHandler.MountRoutes(ur)
	})

	r.Route("/api/activity", func(lr chi.Router) {
		lr.Use(params.AuthMiddleware.RequireAuth)
		params.ActivityHandler.MountRoutes(lr)
	})

	return r
}

// healthHandler probes the backing services and reports per-component status.
func healthHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var mu sync.Mutex
		status := http.StatusOK
		checks := map[string]string{}
		record := func(name string, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[name] = "down"
				status = http.StatusServiceUnavailable
				return
			}
			checks[name] = "ok"
		}

		g, gctx := errgroup.WithContext(ctx)
		if params.Pool != nil {
			g.Go(func() error {
				record("postgres", params.Pool.Ping(gctx))
				return nil
			})
		}
		if params.Redis != nil {
			g.Go(func() error {
				record("redis", params.Redis.Ping(gctx).Err())
				return nil
			})
		}
		_ = g.Wait()

		if status != http.StatusOK {
			httpx.RespondError(w, params.Logger, shared.ErrServiceUnavailable.WithDetails(checks))
			return
		}
		httpx.Success(w, "healthy", map[string]any{
			"status": "healthy",
			"checks": checks,
		})
	}
}
