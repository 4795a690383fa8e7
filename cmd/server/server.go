package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/critfumble/encounter-api/internal/auth"
	"github.com/critfumble/encounter-api/internal/config"
	v1 "github.com/critfumble/encounter-api/internal/handlers/api/v1"
	"github.com/critfumble/encounter-api/internal/orchestrators/encounter"
	"github.com/critfumble/encounter-api/internal/pkg/idgen"
	redisclient "github.com/critfumble/encounter-api/internal/redis"
	"github.com/critfumble/encounter-api/internal/repositories/encounters"
	"github.com/critfumble/encounter-api/internal/streaming"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long:  `Start the encounter API server with all configured services.`,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Missing .env is fine; the environment itself may carry the config.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	repo, err := buildRepository(cfg)
	if err != nil {
		return err
	}

	streams := streaming.New(&streaming.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		BufferSize:        cfg.SubscriberBuffer,
	})

	encounterService, err := encounter.NewOrchestrator(&encounter.Config{
		Repository:     repo,
		Broadcaster:    streams,
		EncounterIDs:   idgen.NewUUID("enc"),
		ParticipantIDs: idgen.NewUUID("part"),
	})
	if err != nil {
		return fmt.Errorf("failed to create encounter service: %w", err)
	}

	handler, err := v1.NewHandler(&v1.HandlerConfig{
		EncounterService: encounterService,
		Streams:          streams,
	})
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router, auth.Middleware(cfg.JWTSecret))

	srv := &http.Server{
		Addr:    cfg.HTTPAddress,
		Handler: router,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "address", cfg.HTTPAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Graceful shutdown timeout exceeded, forcing close", "error", err)
			return srv.Close()
		}

		slog.Info("Server stopped gracefully")
		return nil
	case err := <-errChan:
		return err
	}
}

// buildRepository picks Redis when an address is configured and falls back
// to in-memory storage otherwise.
func buildRepository(cfg *config.Config) (encounters.Repository, error) {
	if cfg.RedisAddress == "" {
		slog.Info("No Redis address configured, using in-memory storage")
		return encounters.NewInMemory(nil), nil
	}

	client, err := redisclient.NewClient(cfg.RedisAddress, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	repo, err := encounters.NewRedis(&encounters.RedisConfig{Client: client})
	if err != nil {
		return nil, fmt.Errorf("failed to create encounter repository: %w", err)
	}

	slog.Info("Using Redis storage", "address", cfg.RedisAddress)
	return repo, nil
}
