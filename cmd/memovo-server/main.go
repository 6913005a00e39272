package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/memovo/memovo/internal/chat"
	"github.com/memovo/memovo/internal/config"
	"github.com/memovo/memovo/internal/llm"
	"github.com/memovo/memovo/internal/semantic"
	"github.com/memovo/memovo/internal/server"
	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/internal/storage/chromem"
	"github.com/memovo/memovo/internal/storage/postgres"
	"github.com/memovo/memovo/internal/storage/sqlite"
	"github.com/memovo/memovo/internal/wellbeing"
	"github.com/memovo/memovo/web/handlers"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	store, err := sqlite.New(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Semantic index backend
	var index storage.SemanticIndex
	switch cfg.Storage.SemanticBackend {
	case "postgres":
		pg, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to initialize postgres semantic index: %v", err)
		}
		defer pg.Close()
		index = pg
	default:
		index = chromem.New()
	}

	// LLM clients
	factoryCfg := llm.FactoryConfig{
		Provider:   cfg.LLM.Provider,
		BaseURL:    cfg.LLM.OllamaURL,
		Timeout:    cfg.LLM.Timeout,
		APIKey:     cfg.LLM.AnthropicAPIKey,
		MaxTokens:  int64(cfg.LLM.MaxTokens),
		Model:      modelFor(cfg),
		EmbedModel: cfg.LLM.EmbeddingModel,
	}
	streamer, err := llm.NewTextStreamer(factoryCfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	embedder, err := llm.NewEmbeddingGenerator(factoryCfg)
	if err != nil {
		log.Fatalf("Failed to initialize embedding client: %v", err)
	}

	// Services
	semanticService := semantic.NewService(streamer, embedder, index)
	wellbeingService := wellbeing.NewService(streamer, store)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Broadcast consolidation events (title upgrades, snapshot writes) to
	// connected WebSocket clients.
	hub := handlers.NewWebSocketHub()
	consolidator := chat.NewConsolidator(streamer, store, store,
		chat.WithEventCallback(func(event chat.ConsolidationEvent) {
			hub.Broadcast(event)
		}))
	orchestrator := chat.NewOrchestrator(streamer, store, store, store, semanticService,
		chat.WithConsolidator(consolidator))

	addr, _ := server.Start(ctx, cfg, server.Services{
		Orchestrator: orchestrator,
		Semantic:     semanticService,
		Wellbeing:    wellbeingService,
		Working:      store,
		Episodic:     store,
		Sessions:     store,
		Hub:          hub,
	})
	log.Printf("Memovo API running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	cancel()
	consolidator.Wait()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// modelFor picks the chat model name for the configured provider.
func modelFor(cfg *config.Config) string {
	if cfg.LLM.Provider == llm.ProviderAnthropic {
		return cfg.LLM.AnthropicModel
	}
	return cfg.LLM.OllamaModel
}
