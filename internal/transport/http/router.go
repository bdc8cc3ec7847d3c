// Package httptransport assembles the public HTTP surface. It is a thin
// layer: handlers delegate to domain services so transport concerns remain
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"greenhop/internal/platform/health"
	"greenhop/internal/platform/middleware"
	tokenhandler "greenhop/internal/token"
	triphandler "greenhop/internal/trip/handler"
	"greenhop/internal/wallet"
)

// Deps are the handlers the router mounts.
type Deps struct {
	Trips  *triphandler.Handler
	Tokens *tokenhandler.Handler
	Wallet *wallet.Handler
	Health *health.Handler
	Logger *slog.Logger
}

// NewRouter wires all public endpoints with the middleware stack.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Route("/api/trips", deps.Trips.Register)
	r.Route("/api/tokens", deps.Tokens.Register)
	r.Route("/api/auth", deps.Wallet.Register)

	deps.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
