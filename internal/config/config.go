package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the tunables shared by the API and worker binaries.
// Values come from the environment with defaults suitable for local
// development.
type Config struct {
	Port string

	WorkerCount   int
	WorkerTaskCap int

	SoftTimeout time.Duration
	HardTimeout time.Duration

	ReconcileInterval time.Duration
	RedispatchAfter   time.Duration
	GracePeriod       time.Duration

	DequeueBlock time.Duration

	PresignExpiration time.Duration

	QueueKey string
}

func NewConfig() *Config {
	return &Config{
		Port: envString("PORT", "8080"),

		WorkerCount:   envInt("WORKER_COUNT", 4),
		WorkerTaskCap: envInt("WORKER_TASK_CAP", 50),

		SoftTimeout: envDuration("JOB_SOFT_TIMEOUT", 25*time.Minute),
		HardTimeout: envDuration("JOB_HARD_TIMEOUT", 30*time.Minute),

		ReconcileInterval: envDuration("RECONCILE_INTERVAL", time.Minute),
		RedispatchAfter:   envDuration("REDISPATCH_AFTER", 5*time.Minute),
		GracePeriod:       envDuration("RECONCILE_GRACE", 2*time.Minute),

		DequeueBlock: envDuration("DEQUEUE_BLOCK", 5*time.Second),

		PresignExpiration: envDuration("PRESIGN_EXPIRATION", 10*time.Minute),

		QueueKey: envString("JOB_QUEUE_KEY", "ai_jobs"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
