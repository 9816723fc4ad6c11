// Package controlapi is the optional HTTP introspection/control surface
// (§9.5): read-only views of interned endpoints, TCP connections, and the
// routing table, plus a single admin-gated force-disconnect route. It never
// touches reactor-owned state directly — every handler goes through the
// snapshot/lookup methods the protocol packages expose for exactly this
// purpose, so the reactor goroutine remains the sole mutator of protocol
// state.
package controlapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/someipd/internal/logger"
	"github.com/marmos91/someipd/internal/reactor"
)

// Server is the control API's HTTP server. It is created in a stopped
// state; call Start to begin serving.
type Server struct {
	server       *http.Server
	tokenService *TokenService
	config       Config
	shutdownOnce sync.Once
}

// NewServer builds a Server bound to loop. The JWT secret must be set via
// config.JWT.Secret or the SOMEIPD_CONTROLAPI_SECRET environment variable.
func NewServer(config Config, loop *reactor.Loop) (*Server, error) {
	config.applyDefaults()

	secret := config.GetJWTSecret()
	if len(secret) < 32 {
		return nil, fmt.Errorf("controlapi: JWT secret must be at least 32 characters; set via %s env var or config", EnvJWTSecret)
	}

	tokenService, err := NewTokenService(TokenConfig{
		Secret:        secret,
		TokenDuration: config.JWT.TokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("controlapi: failed to create token service: %w", err)
	}

	router := NewRouter(loop, tokenService)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		tokenService: tokenService,
		config:       config,
	}, nil
}

// TokenService exposes the server's token issuer.
func (s *Server) TokenService() *TokenService {
	return s.tokenService
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.config.Port
}

// Start serves the control API until ctx is cancelled, then shuts down
// gracefully within a 5s budget.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("control API listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("control API shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("control API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("control API shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("controlapi: shutdown error: %w", err)
			logger.Error("control API shutdown error", "error", err)
		} else {
			logger.Info("control API stopped gracefully")
		}
	})
	return shutdownErr
}
