package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/agent"
	"github.com/agentforge/agentforge/internal/config"
	"github.com/agentforge/agentforge/internal/llm"
	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/server"
	"github.com/agentforge/agentforge/internal/store"
	"github.com/agentforge/agentforge/internal/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("agentforge stopped")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	completer, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey(),
		BaseURL:  cfg.LLMBaseURL(),
		Model:    cfg.ModelList[cfg.LLMProvider],
	})
	if err != nil {
		return errors.Wrap(err, "llm client")
	}
	if _, disabled := completer.(llm.Disabled); disabled {
		log.Warn().Str("provider", cfg.LLMProvider).Msg("no LLM API key set - LLM-backed tools will return errors")
	}

	var searcher tools.Searcher
	if cfg.TavilyAPIKey != "" {
		searcher = tools.NewTavilySearcher(cfg.TavilyAPIKey)
	} else {
		searcher = tools.NewDuckDuckGoSearcher(cfg.DuckDuckGoURL)
	}

	reg := registry.New(st, completer, registry.Options{
		ToolTimeout:  cfg.ToolTimeoutDuration(),
		LLMTimeout:   cfg.LLMTimeoutDuration(),
		LLMMaxTokens: cfg.LLMMaxTokens,
	})
	for _, spec := range tools.Builtins(completer, searcher) {
		if err := reg.RegisterNative(spec); err != nil {
			return errors.Wrapf(err, "register %s", spec.Name)
		}
	}
	restored, err := reg.Rehydrate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("tool rehydration failed - starting with built-ins only")
	}
	log.Info().Int("restored", restored).Int("tools", len(reg.Enumerate())).Msg("registry ready")

	srv, err := server.New(cfg, server.Deps{
		Registry: reg,
		Catalog:  agent.NewCatalog(),
		Emitter:  agent.NewEmitter(agent.NewPipeline(reg)),
		Store:    st,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "postgres":
		st, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		return st, errors.Wrap(err, "postgres store")
	case "redis":
		st, err := store.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKey)
		return st, errors.Wrap(err, "redis store")
	case "elasticsearch":
		st, err := store.NewElasticsearchStore(store.ElasticsearchConfig{
			Addresses:   cfg.ElasticsearchAddresses,
			Username:    cfg.ElasticsearchUser,
			Password:    cfg.ElasticsearchPassword,
			Index:       cfg.ElasticsearchIndex,
			VerifyCerts: cfg.ElasticsearchVerifyCerts,
			MaxRetries:  cfg.ElasticsearchMaxRetries,
		})
		return st, errors.Wrap(err, "elasticsearch store")
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
			return nil, errors.Wrap(err, "file store directory")
		}
		return store.NewFileStore(cfg.StorePath), nil
	}
}
