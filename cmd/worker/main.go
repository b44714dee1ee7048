package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mpatel-dev/cardvault/internal/cards"
	"github.com/mpatel-dev/cardvault/internal/config"
	"github.com/mpatel-dev/cardvault/internal/database"
	"github.com/mpatel-dev/cardvault/internal/embedding"
	"github.com/mpatel-dev/cardvault/internal/llm"
	"github.com/mpatel-dev/cardvault/internal/queue"
	"github.com/mpatel-dev/cardvault/internal/queue/workers"
	"github.com/mpatel-dev/cardvault/internal/storage"
	"github.com/mpatel-dev/cardvault/internal/vision"
)

const sweepInterval = 10 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := storage.NewObjectStorage(cfg.Storage.BaseURL, cfg.Storage.ServiceKey)
	gw := llm.NewGateway(cfg.LLM)
	analyzer := vision.NewAnalyzer(gw, cfg.LLM.VisionModel)
	textEmb := embedding.NewOpenAITextEmbedder(embedding.TextConfig{
		APIKey:  cfg.Embedding.TextAPIKey,
		BaseURL: cfg.Embedding.TextBaseURL,
		Model:   cfg.Embedding.TextModel,
	})
	imageEmb := embedding.NewClipImageEmbedder(embedding.ImageConfig{
		BaseURL: cfg.Embedding.ClipBaseURL,
	})

	cardSvc := cards.NewService(db, store, cfg.Storage.Bucket, analyzer, textEmb, imageEmb, nil)
	backfillWorker := workers.NewEmbeddingBackfillWorker(cardSvc, textEmb, imageEmb)

	// Periodic sweep catches cards whose backfill enqueue was lost.
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if err := backfillWorker.Sweep(ctx, 100); err != nil {
				slog.Warn("backfill sweep", "error", err)
			}
		}
	}()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeEmbedBackfill, backfillWorker.ProcessTask)

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
