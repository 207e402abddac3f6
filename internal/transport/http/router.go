// Package httptransport assembles the public HTTP surface: shared middleware,
// the authenticated /v1 API, operator routes and the health and metrics probes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"emailscore/internal/platform/metrics"
	"emailscore/pkg/platform/httputil"
	adminmw "emailscore/pkg/platform/middleware/admin"
	authmw "emailscore/pkg/platform/middleware/auth"
	request "emailscore/pkg/platform/middleware/request"
	"emailscore/pkg/platform/middleware/requesttime"
)

// Registrar mounts a feature's routes on a sub-router.
type Registrar interface {
	Register(r chi.Router)
}

// AdminRegistrar mounts operator-only routes.
type AdminRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Tokens     authmw.TokenValidator
	APIKeys    authmw.APIKeyAuthenticator
	AdminToken string

	API    []Registrar
	Admin  []AdminRegistrar
	Health map[string]HealthCheck
}

const healthTimeout = 2 * time.Second

// NewRouter wires every route behind the shared middleware stack.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Logger(d.Logger))
	r.Use(request.Recover(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(d.Metrics.Middleware)

	r.Get("/healthz", healthHandler(d.Health, d.Logger))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Tokens, d.APIKeys, d.Logger))
		for _, reg := range d.API {
			reg.Register(r)
		}
	})

	if len(d.Admin) > 0 {
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(d.AdminToken, d.Logger))
			for _, reg := range d.Admin {
				reg.RegisterAdmin(r)
			}
		})
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"check", name,
					"request_id", request.GetRequestID(ctx),
					"error", err,
				)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
