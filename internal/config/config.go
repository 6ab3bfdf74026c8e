package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	Redis     RedisConfig      `json:"redis"`
	AI        AIConfig         `json:"ai"`
	Assistant AssistantConfig  `json:"assistant"`
	RateLimit RateLimitConfig  `json:"rate_limit"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	// URL in redis://[user:pass@]host:port/db form. Empty disables the
	// external cache; the pipeline then runs uncached.
	URL string `json:"url"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	EmbedModel     string      `json:"embed_model"`
	Data           interface{} `json:"data"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	MaxInputChars  int         `json:"max_input_chars"`
}

type AssistantConfig struct {
	MaxResults           int     `json:"max_results"`
	MinSimilarity        float64 `json:"min_similarity"`
	GeneralFloorDelta    float64 `json:"general_floor_delta"`
	GeneralMaxWords      int     `json:"general_max_words"`
	QueryTimeoutSeconds  int     `json:"query_timeout_seconds"`
	ResultCacheTTLSecs   int     `json:"result_cache_ttl_seconds"`
	EmbedCacheTTLSecs    int     `json:"embed_cache_ttl_seconds"`
	EmbedLRUSize         int     `json:"embed_lru_size"`
	EmbedSyncSpec        string  `json:"embed_sync_spec"`
	EmbedSyncBatch       int     `json:"embed_sync_batch"`
	RetryMaxAttempts     int     `json:"retry_max_attempts"`
	BreakerFailThreshold int     `json:"breaker_fail_threshold"`
	BreakerCooldownSecs  int     `json:"breaker_cooldown_seconds"`
}

type RateLimitConfig struct {
	PerMinute int `json:"per_minute"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	// Without provider args the process would start fine and fail every
	// query; refuse to boot instead.
	if cfg.AI.Data == nil {
		return nil, fmt.Errorf("ai.data is required")
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 20
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 4000
	}
	applyAssistantDefaults(&cfg.Assistant)
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 30
	}
	return &cfg, nil
}

func applyAssistantDefaults(c *AssistantConfig) {
	if c.MaxResults == 0 {
		c.MaxResults = 5
	}
	if c.MinSimilarity == 0 {
		c.MinSimilarity = 0.3
	}
	if c.GeneralFloorDelta == 0 {
		c.GeneralFloorDelta = 0.10
	}
	if c.GeneralMaxWords == 0 {
		c.GeneralMaxWords = 6
	}
	if c.QueryTimeoutSeconds == 0 {
		c.QueryTimeoutSeconds = 30
	}
	if c.ResultCacheTTLSecs == 0 {
		c.ResultCacheTTLSecs = 300
	}
	if c.EmbedCacheTTLSecs == 0 {
		c.EmbedCacheTTLSecs = 3600
	}
	if c.EmbedLRUSize == 0 {
		c.EmbedLRUSize = 2048
	}
	if c.EmbedSyncSpec == "" {
		c.EmbedSyncSpec = "*/5 * * * *"
	}
	if c.EmbedSyncBatch == 0 {
		c.EmbedSyncBatch = 50
	}
	if c.RetryMaxAttempts == 0 {
		c.RetryMaxAttempts = 3
	}
	if c.BreakerFailThreshold == 0 {
		c.BreakerFailThreshold = 5
	}
	if c.BreakerCooldownSecs == 0 {
		c.BreakerCooldownSecs = 30
	}
}
