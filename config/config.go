// Package config holds the engine configuration. It is loaded once from the
// environment and passed into constructors explicitly; nothing else in the
// repository reads env vars directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the engine needs to talk to its collaborators.
type Config struct {
	// ListenAddr is the address the capture intake server binds to.
	ListenAddr string

	// APIBaseURL is the OpenAI-compatible completion endpoint base URL.
	APIBaseURL string

	// APIKey authenticates against the completion endpoint.
	APIKey string

	// Model is the multimodal completion model identifier.
	Model string

	// CompletionTimeout bounds every completion call. Calls are never retried;
	// a timed-out call loses that batch.
	CompletionTimeout time.Duration

	// MaxFrames is how many stills are sampled from each video segment.
	MaxFrames int

	// RedisAddr and RedisPassword locate the card store.
	RedisAddr     string
	RedisPassword string

	// PineconeIndex names the optional activity-memory index. Empty disables it.
	PineconeIndex  string
	PineconeAPIKey string

	// EmbeddingModel is used when writing to the activity memory.
	EmbeddingModel string
}

// Load reads the configuration from the environment. Call after godotenv has
// populated it.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:        getDefault("DAYLOOM_ADDR", ":8080"),
		APIBaseURL:        getDefault("DAYLOOM_API_BASE_URL", "https://api.openai.com/v1"),
		APIKey:            os.Getenv("DAYLOOM_API_KEY"),
		Model:             getDefault("DAYLOOM_MODEL", "gpt-4o"),
		CompletionTimeout: getDuration("DAYLOOM_COMPLETION_TIMEOUT", 120*time.Second),
		MaxFrames:         getInt("DAYLOOM_MAX_FRAMES", 8),
		RedisAddr:         getDefault("REDIS_HOST", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		PineconeIndex:     os.Getenv("PINECONE_INDEX"),
		PineconeAPIKey:    os.Getenv("PINECONE_API_KEY"),
		EmbeddingModel:    getDefault("DAYLOOM_EMBEDDING_MODEL", "text-embedding-3-small"),
	}

	if cfg.MaxFrames <= 0 {
		return nil, fmt.Errorf("DAYLOOM_MAX_FRAMES must be positive, got %d", cfg.MaxFrames)
	}
	return cfg, nil
}

func getDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
