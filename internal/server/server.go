package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/agent"
	"github.com/agentforge/agentforge/internal/config"
	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/store"
)

// Deps are the long-lived components the HTTP surface serves.
type Deps struct {
	Registry *registry.Registry
	Catalog  *agent.Catalog
	Emitter  *agent.Emitter
	Store    store.Store
}

type Server struct {
	cfg  *config.Config
	deps Deps
	http *http.Server
}

func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Registry == nil || deps.Emitter == nil {
		return nil, errors.New("server: registry and emitter are required")
	}
	if deps.Catalog == nil {
		deps.Catalog = agent.NewCatalog()
	}
	s := &Server{cfg: cfg, deps: deps}

	s.http = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     s.setupRoutes(),
		ReadTimeout: 15 * time.Second,
		// Streams clear their own write deadline.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)

		if s.deps.Store != nil {
			if closeErr := s.deps.Store.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("error closing tool store")
			} else {
				log.Info().Msg("tool store closed")
			}
		}

		return err
	case err := <-errCh:
		return err
	}
}
