package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cognidesk/idea-vault/internal/broker"
	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/extract"
	"github.com/cognidesk/idea-vault/internal/logger"
	"github.com/cognidesk/idea-vault/internal/repository"
	"github.com/cognidesk/idea-vault/internal/service"
	"github.com/cognidesk/idea-vault/internal/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(logger.FromEnv("idea-vault-consumer"))
	logger.SetDefaultLogger(appLogger)

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	ideaRepo := repository.NewIdeaRepository(db)

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

	documents := extract.NewDocumentExtractor()
	web := extract.NewWebExtractor(&extract.WebConfig{
		UserAgent: cfg.Sources.WebUserAgent,
		Timeout:   cfg.Sources.WebTimeout,
	})
	transcripts := extract.NewTranscriptExtractor(cfg.Ingest.RapidAPIKey)

	embedder := service.NewEmbeddingService(&cfg.Ollama, cfg.Qdrant.Dimension)

	ingestService := service.NewIngestService(
		ideaRepo,
		qdrantRepo,
		embedder,
		documents,
		web,
		transcripts,
		appLogger,
		&cfg.Ingest,
	)

	storageFactory, err := storage.NewFactory(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage factory")
	}
	tokens := service.NewUserServiceClient(cfg.Storage.UserServiceURL)
	uploadService := service.NewUploadService(ideaRepo, tokens, storageFactory, appLogger, &cfg.Storage)

	embedConsumer := broker.NewConsumer(&broker.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.EmbedGroup,
	}, appLogger)

	uploadConsumer := broker.NewConsumer(&broker.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.UploadGroup,
	}, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		appLogger.WithFields(logger.Fields{
			"topic": cfg.Kafka.Topic,
			"group": cfg.Kafka.EmbedGroup,
		}).Info("Starting embedding consumer")
		if err := embedConsumer.Run(ctx, ingestService.HandleEvent); err != nil && ctx.Err() == nil {
			appLogger.WithError(err).Error("Embedding consumer stopped")
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		appLogger.WithFields(logger.Fields{
			"topic": cfg.Kafka.Topic,
			"group": cfg.Kafka.UploadGroup,
		}).Info("Starting upload consumer")
		if err := uploadConsumer.Run(ctx, uploadService.HandleEvent); err != nil && ctx.Err() == nil {
			appLogger.WithError(err).Error("Upload consumer stopped")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.WithField("signal", sig.String()).Info("Shutting down consumers...")
	case <-ctx.Done():
	}

	cancel()

	if err := embedConsumer.Close(); err != nil {
		appLogger.WithError(err).Error("Failed to close embedding consumer")
	}
	if err := uploadConsumer.Close(); err != nil {
		appLogger.WithError(err).Error("Failed to close upload consumer")
	}

	wg.Wait()
	appLogger.Info("Consumers exited")
}
