package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shubh-37/music-brief-analyzer/config"
	"github.com/shubh-37/music-brief-analyzer/internal/agents"
	"github.com/shubh-37/music-brief-analyzer/internal/api"
	"github.com/shubh-37/music-brief-analyzer/internal/claude"
	"github.com/shubh-37/music-brief-analyzer/internal/database"
	"github.com/shubh-37/music-brief-analyzer/internal/datastore"
	slackpkg "github.com/shubh-37/music-brief-analyzer/internal/slack"
	"github.com/shubh-37/music-brief-analyzer/internal/store"
	"github.com/shubh-37/music-brief-analyzer/internal/workflow"
)

func main() {
	log.Println("🚀 Music Brief Analyzer starting...")

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	backend, health, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer closeBackend()
	log.Printf("✅ Store ready (%s)", cfg.StoreBackend)

	briefs := store.NewBriefStore(datastore.NewDispatcher(backend))
	agent := agents.NewBriefAgent(claude.NewClient(cfg.RelayURL), cfg.MaxTokens)

	sessions := api.NewRegistry(func() *workflow.Controller {
		return workflow.NewController(agent, briefs)
	})

	relay := claude.NewRelay(cfg, claude.RelayConfig{
		BaseURL:    cfg.AnthropicBaseURL,
		Model:      cfg.ModelName,
		APIVersion: cfg.APIVersion,
	})

	deps := api.Deps{
		Sessions: sessions,
		Relay:    relay.Handle,
		Health:   health,
	}
	if cfg.SlackToken != "" {
		publisher := slackpkg.NewPublisher(cfg.SlackToken, cfg.SlackChannel)
		if err := publisher.Verify(ctx); err != nil {
			log.Printf("⚠️ Slack sharing disabled: %v", err)
		} else {
			deps.Sharer = publisher
			log.Printf("💬 Slack: sharing to %s as %s", cfg.SlackChannel, publisher.BotID())
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🎵 Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	sessions.Drain()
}

// openBackend returns the configured document backend, an optional health
// check and its close func.
func openBackend(ctx context.Context, cfg *config.Config) (datastore.Backend, func(context.Context) error, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.NewDB(ctx, cfg.DatabaseURL, database.PoolOptions{
			MaxConns: int32(cfg.DBMaxConns),
			MinConns: int32(cfg.DBMinConns),
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.CreateTables(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return database.NewDocumentRepository(db), db.Health, db.Close, nil

	case config.BackendSQLite:
		repo, err := database.NewSQLiteDocumentRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, nil, func() {
			if err := repo.Close(); err != nil {
				log.Printf("⚠️ Closing sqlite: %v", err)
			}
		}, nil

	case config.BackendMemory:
		return datastore.NewMemoryBackend(), nil, func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown backend %q", cfg.StoreBackend)
}
