// Package main is the entry point for the support chat broker server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"support-chat-broker/internal/ai"
	"support-chat-broker/internal/auth"
	"support-chat-broker/internal/blobfetch"
	"support-chat-broker/internal/config"
	"support-chat-broker/internal/dispatcher"
	"support-chat-broker/internal/matcher"
	"support-chat-broker/internal/models"
	"support-chat-broker/internal/notify"
	"support-chat-broker/internal/obsv"
	"support-chat-broker/internal/presence"
	"support-chat-broker/internal/proactive"
	"support-chat-broker/internal/repository"
	"support-chat-broker/internal/session"
	"support-chat-broker/internal/telemetry"
	"support-chat-broker/internal/transport"
)

// main initializes the application, sets up dependencies, and starts the
// HTTP/WebSocket server with graceful shutdown.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Critical error loading configuration: %v", err)
	}

	// --- Dependency Injection ---
	repo, err := repository.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Critical error! Failed to connect to the database: %v", err)
	}
	defer repo.Close()

	if err := repo.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatalf("Critical error during database migration: %v", err)
	}

	verifier, err := auth.NewJWTVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Critical error: failed to create authentication verifier: %v", err)
	}
	var effectiveVerifier auth.Verifier = verifier
	if cfg.AdminSharedSecret != "" {
		effectiveVerifier = auth.SharedSecretBypass{Secret: cfg.AdminSharedSecret, Next: verifier}
	}

	metrics := obsv.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	geminiClient, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Critical error: failed to create AI client: %v", err)
	}
	generator := ai.NewGenerator(geminiClient, cfg.GeminiModel, cfg.GeminiFallback).WithMetrics(metrics)

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		log.Fatalf("Critical error: failed to create blob fetcher: %v", err)
	}

	sessionCache := session.NewCache()
	sessionMachine := session.NewMachine(repo, sessionCache)
	asyncQueue := repository.NewAsyncQueue(256)
	defer asyncQueue.Stop()

	hub := transport.NewHub()

	opsMirror := telemetry.NewOpsMirror(cfg.TelegramBotToken, cfg.TelegramChatID)
	fanout := notify.NewFanout(repo, hub).WithOpsMirror(opsMirror)

	presenceRegistry := presence.NewRegistry()
	presenceMgr := presence.NewManager(presenceRegistry, effectiveVerifier, hub, fanout, repo, cfg.DisconnectGracePeriod, cfg.AgentAuthFailDelay).WithGauges(metrics)

	dispatch := dispatcher.New(repo, sessionMachine, matcher.DefaultConfig(), generator, presenceRegistry, fetcher, repo, asyncQueue, cfg.RedactPII).WithMetrics(metrics)

	orchestrator := proactive.New(repo, sessionMachine, presenceRegistry, hub)

	agentRoleOf := func(connID string) (models.Role, bool) {
		if _, ok := presenceRegistry.AgentForConnection(connID); ok {
			return models.RoleAgent, true
		}
		return "", false
	}
	router := transport.NewRouter(hub, presenceMgr, dispatch, orchestrator, fanout, agentRoleOf)
	wsHandler := transport.NewHandler(hub, router, strings.Split(cfg.CORSAllowedOrigins, ","))

	// --- Router and Server Setup ---
	httpRouter := setupRouter(cfg, wsHandler, metrics)
	srv := &http.Server{Addr: cfg.ServerAddr, Handler: httpRouter}

	go func() {
		log.Printf("Server is ready for connections and listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed with error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutdown signal received. Starting graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Error during graceful server shutdown: %v", err)
	}
	log.Println("Server stopped successfully. Exiting.")
}

// buildFetcher wires the byte-fetch interface: plain HTTP for public
// attachment URLs, with an S3-backed proxy for the private-storage
// namespace when S3 credentials are configured.
func buildFetcher(cfg *config.Config) (blobfetch.Fetcher, error) {
	httpFetcher := blobfetch.NewHTTPFetcher()
	s3Fetcher, err := blobfetch.NewS3Fetcher(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretAccessKey, cfg.S3Bucket, cfg.PrivateStoragePrefix)
	if err != nil {
		return nil, err
	}
	return blobfetch.NewRouter(httpFetcher, s3Fetcher), nil
}

// setupRouter wires the health check, metrics, and WebSocket upgrade
// endpoints behind the chi middleware stack.
func setupRouter(cfg *config.Config, wsHandler *transport.Handler, metrics *obsv.Metrics) *chi.Mux {
	r := chi.NewRouter()

	setupCORS(r, cfg)
	r.Use(chimiddleware.Logger, chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/ws", wsHandler)

	return r
}

func setupCORS(r *chi.Mux, cfg *config.Config) {
	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		MaxAge:           300,
	}).Handler)
}
