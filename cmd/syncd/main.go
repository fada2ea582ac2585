package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/Jitera-Sales/wire-sync/internal/backend"
	"github.com/Jitera-Sales/wire-sync/internal/config"
	"github.com/Jitera-Sales/wire-sync/internal/database"
	"github.com/Jitera-Sales/wire-sync/internal/logging"
	"github.com/Jitera-Sales/wire-sync/internal/repositories"
	"github.com/Jitera-Sales/wire-sync/internal/syncengine"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	version, err := backend.ParseAPIVersion(cfg.BackendVersion)
	if err != nil {
		log.Fatalf("Failed to parse backend version: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	store := repositories.NewPostgresStore(postgresPool, cfg.SelfClientID)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Backend client and versioned APIs
	client := backend.NewClient(backend.ClientOptions{
		BaseURL: cfg.BackendBaseURL,
		Version: version,
		Tokens:  backend.NewAccessTokenSource(cfg.AccessToken),
		Timeout: cfg.HTTPTimeout,
	})

	connectionsAPI := backend.NewConnectionsAPI(client)
	conversationsAPI := backend.NewConversationsAPI(client)
	teamsAPI := backend.NewTeamsAPI(client)
	eventsAPI := backend.NewUpdateEventsAPI(client)
	backendInfoAPI := backend.NewBackendInfoAPI(client)

	backendInfoRepo := repositories.NewCachedBackendInfoRepository(backendInfoAPI, redisClient)
	newRepos := func(federated bool) syncengine.RepositorySet {
		return syncengine.RepositorySet{
			Connections:   repositories.NewConnectionsRepository(connectionsAPI, store, federated, logger),
			Conversations: repositories.NewConversationsRepository(conversationsAPI, store, federated, logger),
			Teams:         repositories.NewTeamsRepository(teamsAPI, store, federated, logger),
		}
	}

	coordinator := syncengine.NewCoordinator(backendInfoRepo, store, eventsAPI, newRepos, cfg.SelfClientID, logger)

	// Initialize HTTP Server
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		cursor, err := store.LastEventCursor(r.Context())
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"cursor":   cursor,
			"last_run": coordinator.LastStats(),
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// Periodic sync loop
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			if _, err := coordinator.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("sync run failed", "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	logger.Info("server stopped")
}
