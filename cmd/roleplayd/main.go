// Command roleplayd wires the relational, vector, and graph stores, the LLM
// and embedding gateways, the agent runtime, the roleplay orchestrator, and
// the background memory worker into one process, then serves the thin HTTP
// entrypoint (pkg/api). Grounded on the teacher's cmd/tarsy/main.go startup
// sequence (env-driven config, connect, migrate, wire services, serve) with
// the service set replaced by this system's components.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/roleplay/memoryruntime/pkg/agent"
	"github.com/roleplay/memoryruntime/pkg/api"
	"github.com/roleplay/memoryruntime/pkg/config"
	"github.com/roleplay/memoryruntime/pkg/database"
	"github.com/roleplay/memoryruntime/pkg/embedgateway"
	"github.com/roleplay/memoryruntime/pkg/graphstore"
	"github.com/roleplay/memoryruntime/pkg/llmgateway"
	"github.com/roleplay/memoryruntime/pkg/memory"
	"github.com/roleplay/memoryruntime/pkg/models"
	"github.com/roleplay/memoryruntime/pkg/queue"
	"github.com/roleplay/memoryruntime/pkg/retention"
	"github.com/roleplay/memoryruntime/pkg/roleplay"
	"github.com/roleplay/memoryruntime/pkg/store"
	"github.com/roleplay/memoryruntime/pkg/vectorstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, continuing with existing environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database config", "error", err)
		os.Exit(1)
	}
	db, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		slog.Error("failed to connect to the relational store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	slog.Info("connected to relational store, migrations applied")

	relStore := store.New(db)
	if err := relStore.MigrateSchema(ctx,
		models.Character{}, models.Session{}, models.Message{},
		models.SystemConfig{}, models.Wallet{}, models.LedgerEntry{},
	); err != nil {
		slog.Error("failed to reconcile relational schema drift", "error", err)
		os.Exit(1)
	}

	vectors := vectorstore.New(db)
	if err := vectors.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure vector store schema", "error", err)
		os.Exit(1)
	}

	graph, err := graphstore.New(graphstore.Config{
		URI:      cfg.GraphURI,
		Username: cfg.GraphUser,
		Password: cfg.GraphPassword,
		Database: "neo4j",
	})
	if err != nil {
		slog.Error("failed to connect to the graph store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = graph.Close(context.Background()) }()
	if err := graph.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure graph store schema", "error", err)
		os.Exit(1)
	}

	llmProviderCfg, err := cfg.LLMProviders.Get(cfg.Defaults.LLMProvider)
	if err != nil {
		slog.Error("failed to resolve default LLM provider", "error", err)
		os.Exit(1)
	}
	llm := llmgateway.New(llmProviderCfg, os.Getenv(llmProviderCfg.APIKeyEnv))

	embedProviderCfg, err := cfg.EmbeddingProviders.Get(cfg.Defaults.EmbeddingProvider)
	if err != nil {
		slog.Error("failed to resolve default embedding provider", "error", err)
		os.Exit(1)
	}
	embedder := embedgateway.New(embedProviderCfg, os.Getenv(embedProviderCfg.APIKeyEnv))

	runner := agent.NewRunner(llm)

	preloadDescriptors := append([]agent.Descriptor{roleplay.Descriptor()}, memory.Descriptors()...)
	for _, d := range preloadDescriptors {
		if _, err := agent.Preload(ctx, relStore, d); err != nil {
			slog.Error("failed to preload agent system config", "agent", d.Name, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("preloaded agent system configs", "count", len(preloadDescriptors))

	pipeline := memory.New(runner, vectors, graph, embedder, relStore)
	worker := queue.NewWorker(pipeline, cfg.Queue)
	go worker.Run(ctx)
	defer worker.Stop()

	orchestrator := roleplay.New(relStore, vectors, embedder, runner, worker)

	retentionSvc := retention.NewService(cfg.Retention, relStore)
	retentionSvc.Start(ctx)
	defer retentionSvc.Stop()

	server := api.NewServer(db, orchestrator, worker)

	httpPort := getEnv("HTTP_PORT", "8080")
	slog.Info("starting roleplayd", "http_port", httpPort)
	go func() {
		if err := server.Run(":" + httpPort); err != nil {
			slog.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = shutdownCtx
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
