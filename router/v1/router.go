// Package v1 is the HTTP front-end spec.md §1 scopes as an external
// collaborator: request parsing, JSON serialization and status-code
// mapping live here, over the oracle.Service core.
package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/kujira-labs/oracle-backend/config"
	"github.com/kujira-labs/oracle-backend/oracle"
)

// APIPathPrefix is prepended to every route this router registers.
const APIPathPrefix = "/api/v1"

// Router adapts oracle.Service onto the HTTP surface in spec.md §6.
type Router struct {
	logger zerolog.Logger
	svc    *oracle.Service
	cors   config.CORS
}

func New(logger zerolog.Logger, svc *oracle.Service, corsCfg config.CORS) *Router {
	return &Router{logger: logger.With().Str("component", "http_router").Logger(), svc: svc, cors: corsCfg}
}

// corsMiddleware builds the rs/cors handler from the configured allow-list.
// rs/cors treats a nil/empty AllowedOrigins as "allow every origin", which
// is the opposite of SPEC_FULL §4's same-origin-by-default posture; an
// unconfigured allow-list is instead wired to deny every cross-origin
// request rather than falling through to that wide-open default.
func (router *Router) corsMiddleware() *cors.Cors {
	if len(router.cors.AllowedOrigins) == 0 {
		return cors.New(cors.Options{
			AllowOriginFunc: func(origin string) bool { return false },
			AllowedMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			Debug:           router.cors.Verbose,
		})
	}
	return cors.New(cors.Options{
		AllowedOrigins:   router.cors.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: false,
		Debug:            router.cors.Verbose,
	})
}

// RegisterRoutes mounts every endpoint under prefix on mux, wrapping each
// in the same middleware chain ordering (recovery -> access log -> CORS)
// justinas/alice is built for, with rs/cors driven by the configured
// allow-list rather than wide-open (SPEC_FULL §4).
func (router *Router) RegisterRoutes(r *mux.Router, prefix string) {
	chain := alice.New(
		router.recoverMiddleware,
		func(h http.Handler) http.Handler {
			return handlers.CombinedLoggingHandler(router.logger, h)
		},
		router.corsMiddleware().Handler,
	)

	sub := r.PathPrefix(prefix).Subrouter()
	sub.Handle("/price/{symbol}", chain.ThenFunc(router.getPrice)).Methods(http.MethodGet)
	sub.Handle("/prices", chain.ThenFunc(router.getPrices)).Methods(http.MethodGet)
	sub.Handle("/price/{symbol}/history", chain.ThenFunc(router.getHistory)).Methods(http.MethodGet)
	sub.Handle("/price/{symbol}/stats", chain.ThenFunc(router.getStats)).Methods(http.MethodGet)
	sub.Handle("/health", chain.ThenFunc(router.getHealth)).Methods(http.MethodGet)
	sub.Handle("/health/oracles", chain.ThenFunc(router.getOracleHealth)).Methods(http.MethodGet)
	sub.Handle("/admin/cache/clear", chain.ThenFunc(router.clearCache)).Methods(http.MethodPost)
	sub.Handle("/admin/cache/stats", chain.ThenFunc(router.getCacheStats)).Methods(http.MethodGet)
}

func (router *Router) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				router.logger.Error().Interface("panic", rec).Str("path", req.URL.Path).Msg("recovered from panic")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, req)
	})
}

// defaultStatsWindow is used by /price/:symbol/stats when start/end are
// omitted (spec.md §6: "default last hour").
const defaultStatsWindow = time.Hour
