package database

import (
	"fmt"
	"log"
	"os"

	"secondbrain_go_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// pgvector must exist before the embeddings table migrates.
	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Fatal("Failed to create vector extension:", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.SessionBlock{},
		&models.MediaFile{},
		&models.AIJob{},
		&models.Embedding{},
		&models.Payment{},
	)
	if err != nil {
		log.Fatal("Failed to auto migrate:", err)
	}

	// At most one non-terminal AI job per session. This backs the dispatch
	// idempotency invariant even under concurrent finalize calls.
	err = DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_ai_jobs_active_session
		ON ai_jobs (session_id) WHERE status IN ('pending', 'processing')`).Error
	if err != nil {
		log.Fatal("Failed to create active job index:", err)
	}
}
