package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cognidesk/idea-vault/internal/api"
	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/logger"
	"github.com/cognidesk/idea-vault/internal/repository"
	"github.com/cognidesk/idea-vault/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(logger.FromEnv("idea-vault-api"))
	logger.SetDefaultLogger(appLogger)

	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Qdrant.Dimension,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize Qdrant repository")
	}
	defer qdrantRepo.Close()

	if err := qdrantRepo.EnsureCollection(context.Background()); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure Qdrant collection")
	}

	embeddingService := service.NewEmbeddingService(&cfg.Ollama, cfg.Qdrant.Dimension)
	generationService := service.NewGenerationService(&cfg.Ollama)

	retrievalService := service.NewRetrievalService(
		qdrantRepo,
		embeddingService,
		generationService,
		appLogger,
		&cfg.Retrieval,
	)

	router := api.SetupRouter(retrievalService, appLogger, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
