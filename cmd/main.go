/*
Package main is the entry point for the chat engine.

It is responsible for loading configuration, initializing the global logging
system, wiring the persistence and broadcast layers, setting up the HTTP
server, and gracefully handling operating system interrupt signals (SIGINT,
SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beech80/clipt-final--sub000/internal/app/analytics"
	"github.com/beech80/clipt-final--sub000/internal/app/chat"
	"github.com/beech80/clipt-final--sub000/internal/app/db"
	"github.com/beech80/clipt-final--sub000/internal/app/emote"
	"github.com/beech80/clipt-final--sub000/internal/app/storage"
	"github.com/beech80/clipt-final--sub000/internal/app/store"
	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/configs"
	"github.com/beech80/clipt-final--sub000/internal/handler"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
	"github.com/beech80/clipt-final--sub000/internal/pkg/pubsub"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("transport", cfg.Transport).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database pool and embedded migrations
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	postgres := store.NewPostgres(pool)
	batcher := store.NewBatcher(pool)

	// Cross-process broadcast transport
	transport, err := newTransport(cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize broadcast transport")
	}

	// Optional emote asset storage
	var assets storage.AssetStore
	var signer emote.URLSigner
	if cfg.S3Enabled() {
		assets, err = storage.NewAssetStore(storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize emote asset storage")
		}
		signer = assets
	}

	// Chat engine wiring
	state := chat.NewMemoryState()
	broadcaster := chat.NewBroadcaster(transport)
	manager := chat.NewManager(postgres, state, broadcaster, cfg.RoomIdleTTL)

	sessionDeps := &chat.SessionDeps{
		Manager:    manager,
		State:      state,
		Store:      postgres,
		Saver:      batcher,
		Processor:  chat.NewProcessor(),
		Limiter:    chat.NewSendLimiter(chat.DefaultTierLimits),
		Moderation: chat.NewModeration(state, postgres),
		Emotes:     emote.NewCachedResolver(postgres, signer),
		Analytics:  analytics.NewLogRecorder(),
	}

	deps := &handler.AppDeps{
		Config:   cfg,
		Manager:  manager,
		Sessions: sessionDeps,
		Store:    postgres,
		Verifier: user.NewTokenVerifier(cfg.JWTSecret),
		Assets:   assets,
	}

	// Setup HTTP server and routes
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chat engine starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	if err := broadcaster.Close(); err != nil {
		logx.Error(err, "Broadcast transport close failed")
	}

	// Flush queued message writes before the pool closes.
	batcher.Close()

	logx.Info("Server gracefully stopped.")
}

// newTransport builds the configured cross-process broadcast transport.
func newTransport(cfg *configs.AppConfig) (pubsub.Transport, error) {
	switch cfg.Transport {
	case configs.TransportRedis:
		return pubsub.NewRedis(pubsub.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	case configs.TransportNATS:
		return pubsub.NewNATS(cfg.NATSServers, "chat-engine")
	default:
		return pubsub.NewMemory(), nil
	}
}
