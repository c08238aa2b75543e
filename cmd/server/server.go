package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/gamemaster-api/internal/broadcast"
	"github.com/KirkDiggler/gamemaster-api/internal/clients/narrator"
	"github.com/KirkDiggler/gamemaster-api/internal/config"
	"github.com/KirkDiggler/gamemaster-api/internal/dice"
	httphandler "github.com/KirkDiggler/gamemaster-api/internal/handlers/http"
	session "github.com/KirkDiggler/gamemaster-api/internal/orchestrators/session"
	"github.com/KirkDiggler/gamemaster-api/internal/pkg/idgen"
	redisclient "github.com/KirkDiggler/gamemaster-api/internal/redis"
	sessionrepo "github.com/KirkDiggler/gamemaster-api/internal/repositories/session"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long:  `Start the gamemaster API HTTP server with all configured services.`,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	setupLogging(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("received shutdown signal, gracefully stopping")
		cancel()
	}()

	client, err := redisclient.NewClient(cfg.RedisAddr, &redisclient.Options{
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}

	repo, err := sessionrepo.NewRedis(&sessionrepo.RedisConfig{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create session repository: %w", err)
	}

	var narratorClient narrator.Client
	if cfg.NarratorEnabled() {
		narratorClient, err = narrator.NewOpenAI(&narrator.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.NarratorModel,
			Timeout: cfg.NarratorWait,
			Retries: cfg.NarratorRetry,
		})
		if err != nil {
			return fmt.Errorf("failed to create narrator client: %w", err)
		}
	} else {
		slog.Warn("no OpenAI key configured, model-driven narration disabled")
	}

	eventBus := events.NewBus()

	svc, err := session.NewOrchestrator(&session.Config{
		SessionRepo: repo,
		Roller:      dice.NewCryptoRoller(),
		Narrator:    narratorClient,
		EventBus:    eventBus,
		IDGenerator: idgen.NewUUID("sess"),
	})
	if err != nil {
		return fmt.Errorf("failed to create session orchestrator: %w", err)
	}

	broadcaster, err := broadcast.New(&broadcast.Config{EventBus: eventBus})
	if err != nil {
		return fmt.Errorf("failed to create broadcaster: %w", err)
	}
	defer broadcaster.Close()

	handler, err := httphandler.NewHandler(&httphandler.Config{SessionService: svc})
	if err != nil {
		return fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			return err
		}
		slog.Info("server stopped")
		return nil
	case err := <-errChan:
		return err
	}
}

func setupLogging(level string) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	})))
}
