package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askdb/askdb/internal/agent"
	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/db"
	"github.com/askdb/askdb/internal/nlsql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
	querypostgres "github.com/askdb/askdb/internal/query/postgres"
	querysqlite "github.com/askdb/askdb/internal/query/sqlite"
	"github.com/askdb/askdb/internal/schema"
	schemapostgres "github.com/askdb/askdb/internal/schema/postgres"
	schemasqlite "github.com/askdb/askdb/internal/schema/sqlite"
)

func main() {
	cfg, err := config.LoadFromEnv("askdb-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	handle, introspector, engine, err := openDatabase(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open serving database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = handle.Close() }()

	selector, err := buildSelector(cfg)
	if err != nil {
		logger.Error("failed to initialize providers", slog.Any("error", err))
		os.Exit(1)
	}

	asker, err := agent.New(agent.Config{
		Introspector:    introspector,
		Selector:        selector,
		Engine:          engine,
		Logger:          logger,
		ProviderTimeout: cfg.Agent.ProviderTimeout,
		QueryTimeout:    cfg.Agent.QueryTimeout,
	})
	if err != nil {
		logger.Error("failed to initialize agent", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Agent:             asker,
		Introspector:      introspector,
		Readiness:         api.CheckDatabase(handle.PingContext),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("driver", cfg.Database.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, schema.Introspector, query.Engine, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		handle, err := db.OpenSQLite(ctx, db.SQLiteConfig{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		engine := querysqlite.NewEngine(handle)
		engine.MaxRows = cfg.Agent.MaxRows
		return handle, schemasqlite.NewIntrospector(handle), engine, nil
	case "postgres":
		handle, err := db.OpenPostgres(ctx, db.PostgresConfig{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		engine := querypostgres.NewEngine(handle)
		engine.MaxRows = cfg.Agent.MaxRows
		return handle, schemapostgres.NewIntrospector(handle), engine, nil
	default:
		return nil, nil, nil, errors.New("unsupported database driver: " + cfg.Database.Driver)
	}
}

// buildSelector wires the provider fallback chain in priority order:
// Anthropic, then Groq, then a local Ollama daemon.
func buildSelector(cfg config.Config) (*nlsql.Selector, error) {
	anthropic, err := nlsql.NewAnthropicProvider(nlsql.AnthropicConfig{
		BaseURL:   cfg.Providers.Anthropic.BaseURL,
		APIKey:    cfg.Providers.Anthropic.APIKey,
		Model:     cfg.Providers.Anthropic.Model,
		MaxTokens: cfg.Providers.Anthropic.MaxTokens,
		Timeout:   cfg.Providers.Anthropic.Timeout,
	})
	if err != nil {
		return nil, err
	}
	groq, err := nlsql.NewGroqProvider(nlsql.GroqConfig{
		BaseURL:     cfg.Providers.Groq.BaseURL,
		APIKey:      cfg.Providers.Groq.APIKey,
		Model:       cfg.Providers.Groq.Model,
		Temperature: cfg.Providers.Groq.Temperature,
		Timeout:     cfg.Providers.Groq.Timeout,
	})
	if err != nil {
		return nil, err
	}
	ollama, err := nlsql.NewOllamaProvider(nlsql.OllamaConfig{
		BaseURL:      cfg.Providers.Ollama.BaseURL,
		Model:        cfg.Providers.Ollama.Model,
		Timeout:      cfg.Providers.Ollama.Timeout,
		ProbeTimeout: cfg.Providers.Ollama.ProbeTimeout,
	})
	if err != nil {
		return nil, err
	}
	return nlsql.NewSelector(anthropic, groq, ollama), nil
}
