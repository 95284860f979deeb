package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/agent"
	"github.com/agentforge/agentforge/internal/handler"
	"github.com/agentforge/agentforge/internal/middleware"
	"github.com/agentforge/agentforge/internal/security"
)

func (s *Server) setupRoutes() http.Handler {
	cfg := s.cfg

	log.Info().
		Str("store", cfg.StoreBackend).
		Str("llm_provider", cfg.LLMProvider).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("pii_detection", cfg.EnablePIIDetection).
		Bool("source_tools", cfg.EnableSourceTools).
		Int("tools", len(s.deps.Registry.Enumerate())).
		Msg("service configuration")

	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("auth enabled but no API keys configured - API routes are open")
	}

	// ─── Security ───────────────────────────────────────────────────────────────
	var piiKeywords []string
	if cfg.EnablePIIDetection {
		piiKeywords = cfg.PIIKeywords
	}
	piiDetector := security.NewPIIDetector(piiKeywords)
	promptVal := security.NewPromptValidator()
	sourceVal := security.NewSourceValidator()
	auditLogger := security.NewAuditLogger(cfg.EnableAuditLogging)

	// ─── Handlers ────────────────────────────────────────────────────────────────
	healthH := handler.NewHealthHandler(s.deps.Store, cfg.StoreBackend, s.deps.Registry)
	toolsH := handler.NewToolsHandler(s.deps.Registry, sourceVal, promptVal, auditLogger, cfg.EnableSourceTools)
	agentsH := handler.NewAgentsHandler(s.deps.Catalog, s.deps.Registry)
	streamH := handler.NewStreamHandler(s.deps.Emitter, s.deps.Catalog, agent.NewToolRouter(), piiDetector, auditLogger)

	// ─── Router ──────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	r.Group(func(r chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, middleware.RouteCost))
		}
		if cfg.EnableAuth && len(cfg.APIKeys) > 0 {
			r.Use(middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
		}

		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Route("/tools", func(r chi.Router) {
				r.Get("/", toolsH.List)
				r.Post("/register", toolsH.Register)
				r.Post("/register_llm", toolsH.RegisterLLM)
				r.Post("/register_llm/", toolsH.RegisterLLM)
				r.Post("/register-llm", toolsH.RegisterLLM)
				r.Post("/register_source", toolsH.RegisterSource)
				r.Post("/execute", toolsH.Execute)
			})

			r.Get("/stream", streamH.Stream)

			r.Route("/agents", func(r chi.Router) {
				r.Post("/", agentsH.Create)
				r.Get("/", agentsH.List)
				r.Get("/{id}", agentsH.Get)
				r.Get("/{id}/stream", streamH.AgentStream)
			})
		})
	})

	return r
}
