package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the binaries need, loaded from the environment.
type Config struct {
	Port string

	ProjectID string
	DatasetID string

	// Bucket receives raw model-output audit blobs. Empty disables archiving.
	Bucket string

	GeminiModel string
	// LLMTimeout bounds every model completion call.
	LLMTimeout time.Duration

	// WatchInterval is how often the message watcher polls for unprocessed
	// messages.
	WatchInterval time.Duration

	// RetentionDays is the raw-message staging window.
	RetentionDays int

	Timezone string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("SMSLEDGER_PORT", "8080"),
		ProjectID:     getEnv("SMSLEDGER_PROJECT_ID", ""),
		DatasetID:     getEnv("SMSLEDGER_DATASET", "smsledger"),
		Bucket:        getEnv("SMSLEDGER_BUCKET", ""),
		GeminiModel:   getEnv("SMSLEDGER_GEMINI_MODEL", "gemini-2.5-flash"),
		LLMTimeout:    getDuration("SMSLEDGER_LLM_TIMEOUT", 45*time.Second),
		WatchInterval: getDuration("SMSLEDGER_WATCH_INTERVAL", 15*time.Second),
		RetentionDays: getInt("SMSLEDGER_RETENTION_DAYS", 14),
		Timezone:      getEnv("SMSLEDGER_TIMEZONE", "Asia/Kolkata"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("SMSLEDGER_PROJECT_ID is required")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("SMSLEDGER_RETENTION_DAYS must be positive")
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("SMSLEDGER_WATCH_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
