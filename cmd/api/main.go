package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"secondbrain_go_backend/internal/ai"
	"secondbrain_go_backend/internal/api"
	"secondbrain_go_backend/internal/config"
	"secondbrain_go_backend/internal/database"
	"secondbrain_go_backend/internal/services"
	"secondbrain_go_backend/internal/utils/queue"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.NewConfig()
	ctx := context.Background()

	database.InitDB()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	jobQueue := queue.New(rdb, cfg.QueueKey)

	// Internal services
	userService := services.NewUserService(database.DB)
	sessionService := services.NewSessionServiceDB(database.DB)
	aiJobService := services.NewAIJobServiceDB(database.DB)
	creditService := services.NewCreditService(database.DB)
	embeddingService := services.NewEmbeddingService(database.DB)
	paymentService := services.NewPaymentService(database.DB)

	dispatcher := services.NewJobDispatcher(jobQueue)
	finalizeService := services.NewFinalizeService(sessionService, aiJobService, creditService, dispatcher)

	embeddingProvider := os.Getenv("EMBEDDING_PROVIDER")
	if embeddingProvider == "" {
		embeddingProvider = "openai"
	}
	embedder, err := ai.EmbeddingProvider(embeddingProvider, os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		log.Fatalf("Failed to configure embedding provider: %v", err)
	}
	searchService := services.NewSearchService(embeddingService, embedder)

	gcsBucketName := os.Getenv("GCS_BUCKET_NAME")
	if gcsBucketName == "" {
		log.Fatal("GCS_BUCKET_NAME environment variable is not set")
	}
	gcsService, err := services.NewGCSService(ctx, gcsBucketName, cfg.PresignExpiration)
	if err != nil {
		log.Fatalf("Failed to create GCS service: %v", err)
	}
	mediaService := services.NewMediaService(database.DB, sessionService, gcsService)

	stripeService := services.NewStripeService(
		os.Getenv("STRIPE_SECRET_KEY"),
		os.Getenv("STRIPE_WEBHOOK_SECRET"),
		os.Getenv("STRIPE_SUCCESS_URL"),
		os.Getenv("STRIPE_CANCEL_URL"),
	)

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173"
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(
		r,
		userService,
		sessionService,
		finalizeService,
		searchService,
		creditService,
		mediaService,
		stripeService,
		paymentService,
	)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
