package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"secondbrain_go_backend/internal/ai"
	"secondbrain_go_backend/internal/config"
	"secondbrain_go_backend/internal/database"
	"secondbrain_go_backend/internal/services"
	"secondbrain_go_backend/internal/utils/queue"

	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.NewConfig()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database.InitDB()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(rootCtx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	jobQueue := queue.New(rdb, cfg.QueueKey)

	openAIKey := os.Getenv("OPENAI_API_KEY")

	var geminiClient *genai.Client
	if geminiKey := os.Getenv("GOOGLE_AI_STUDIO_API_KEY"); geminiKey != "" {
		client, err := genai.NewClient(rootCtx, option.WithAPIKey(geminiKey))
		if err != nil {
			log.Fatalf("Failed to create GenAI client: %v", err)
		}
		defer client.Close()
		geminiClient = client
	}

	summaryProviderName := os.Getenv("SUMMARY_PROVIDER")
	if summaryProviderName == "" {
		summaryProviderName = "openai"
	}
	summarizer, err := ai.SummaryProvider(summaryProviderName, openAIKey, geminiClient)
	if err != nil {
		log.Fatalf("Failed to configure summary provider: %v", err)
	}

	embeddingProviderName := os.Getenv("EMBEDDING_PROVIDER")
	if embeddingProviderName == "" {
		embeddingProviderName = "openai"
	}
	embedder, err := ai.EmbeddingProvider(embeddingProviderName, openAIKey)
	if err != nil {
		log.Fatalf("Failed to configure embedding provider: %v", err)
	}

	sessionService := services.NewSessionServiceDB(database.DB)
	aiJobService := services.NewAIJobServiceDB(database.DB)
	embeddingService := services.NewEmbeddingService(database.DB)
	dispatcher := services.NewJobDispatcher(jobQueue)

	// Without a bucket the pipeline still runs; it just cannot transcribe
	// or describe uploaded media.
	var mediaLookup services.MediaLookup
	var objectStore services.ObjectStorage
	if bucket := os.Getenv("GCS_BUCKET_NAME"); bucket != "" {
		gcsService, err := services.NewGCSService(rootCtx, bucket, cfg.PresignExpiration)
		if err != nil {
			log.Fatalf("Failed to create GCS client: %v", err)
		}
		objectStore = gcsService
		mediaLookup = services.NewMediaService(database.DB, sessionService, gcsService)
	} else {
		zlog.Warn().Msg("GCS_BUCKET_NAME not set, media enrichment disabled")
	}

	processor := services.NewProcessorService(sessionService, aiJobService, embeddingService, summarizer, embedder, mediaLookup, objectStore)

	reconciler := services.NewReconcileService(
		database.DB,
		sessionService,
		aiJobService,
		dispatcher,
		jobQueue,
		cfg.RedispatchAfter,
		cfg.HardTimeout,
		cfg.GracePeriod,
	)
	go reconciler.Run(rootCtx, cfg.ReconcileInterval)

	zlog.Info().
		Int("workers", cfg.WorkerCount).
		Int("task_cap", cfg.WorkerTaskCap).
		Str("summary_provider", summarizer.Name()).
		Str("embedding_provider", embedder.Name()).
		Msg("Worker pool starting")

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(rootCtx, id, jobQueue, processor, cfg)
		}(i)
	}

	wg.Wait()
	zlog.Info().Msg("Worker pool stopped")
}

// runWorker consumes deliveries until ctx is cancelled. Each incarnation
// handles at most WorkerTaskCap jobs and then recycles, which keeps any
// slow per-process leak (HTTP clients, allocator growth) bounded.
func runWorker(ctx context.Context, id int, jobQueue *queue.Queue, processor *services.ProcessorService, cfg *config.Config) {
	logger := zlog.With().Int("worker", id).Logger()
	for {
		handled := 0
		for handled < cfg.WorkerTaskCap {
			if ctx.Err() != nil {
				return
			}

			payload, err := jobQueue.Dequeue(ctx, cfg.DequeueBlock)
			if err == queue.ErrEmpty {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error().Err(err).Msg("Dequeue failed")
				time.Sleep(time.Second)
				continue
			}

			handleDelivery(ctx, logger, jobQueue, processor, cfg, payload)
			handled++
		}
		logger.Info().Int("handled", handled).Msg("Worker recycling")
	}
}

func handleDelivery(ctx context.Context, logger zerolog.Logger, jobQueue *queue.Queue, processor *services.ProcessorService, cfg *config.Config, payload []byte) {
	var spec services.JobSpec
	if err := json.Unmarshal(payload, &spec); err != nil {
		logger.Error().Err(err).Msg("Dropping undecodable job payload")
		if ackErr := jobQueue.Ack(context.Background(), payload); ackErr != nil {
			logger.Error().Err(ackErr).Msg("Ack failed for undecodable payload")
		}
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, cfg.HardTimeout)
	defer cancel()

	soft := time.AfterFunc(cfg.SoftTimeout, func() {
		logger.Warn().
			Str("job_id", spec.JobID.String()).
			Dur("soft_timeout", cfg.SoftTimeout).
			Msg("Job exceeded soft timeout, still running")
	})
	defer soft.Stop()

	err := processor.ProcessJob(jobCtx, spec)
	if err != nil {
		// Send the delivery straight back for another attempt; the job
		// attempt counter bounds total retries.
		logger.Warn().Err(err).Str("job_id", spec.JobID.String()).Msg("Job processing failed, requeueing")
		if nackErr := jobQueue.Nack(context.Background(), payload); nackErr != nil {
			// Still on the processing list; the reconciler sweep picks
			// it up eventually.
			logger.Error().Err(nackErr).Str("job_id", spec.JobID.String()).Msg("Nack failed")
		}
		return
	}

	// Ack with a fresh context so shutdown does not strand a settled job.
	if err := jobQueue.Ack(context.Background(), payload); err != nil {
		logger.Error().Err(err).Str("job_id", spec.JobID.String()).Msg("Ack failed")
	}
}
