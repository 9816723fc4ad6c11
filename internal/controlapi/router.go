package controlapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/someipd/internal/logger"
	"github.com/marmos91/someipd/internal/reactor"
)

// NewRouter builds the chi router for the control API: a health probe plus
// read-only introspection routes under /api/v1, and one mutating
// force-disconnect route gated behind the admin role.
//
// Routes:
//   - GET  /health                                   - liveness probe, unauthenticated
//   - GET  /api/v1/endpoints                         - interned endpoints (operator+)
//   - GET  /api/v1/connections                        - TCP connections (operator+)
//   - GET  /api/v1/router                             - routing table (operator+)
//   - POST /api/v1/connections/{addr}/disconnect       - force-disconnect (admin only)
func NewRouter(loop *reactor.Loop, tokenService *TokenService) http.Handler {
	h := NewHandlers(loop)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", h.Liveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(JWTAuth(tokenService))

		r.Get("/endpoints", h.ListEndpoints)
		r.Get("/connections", h.ListConnections)
		r.Get("/router", h.ListRouterTable)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin())
			r.Post("/connections/{addr}/disconnect", h.ForceDisconnect)
		})
	})

	return r
}

// requestLogger logs each request at Debug, matching the teacher's
// request-id/method/path/status/duration shape.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("control API request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
