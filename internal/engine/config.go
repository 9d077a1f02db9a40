package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMProvider        string // "openai" (OpenAI-compatible, default) or "gemini"
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMRequestsPerSec  float64 // 0 = unthrottled
	LLMBurst           int
	GeminiAPIKey       string

	MaxJobSpecChars int
	ParseTimeout    time.Duration
	GenerateTimeout time.Duration
	FetchTimeout    time.Duration
	MaxFetchBytes   int64
	DefaultStyle    string

	DatabaseURL string // Postgres profile store; empty = SQLite
	ApplyDBPath string // SQLite file for profiles and the application tracker
	AMQPURL     string // empty = events disabled
	RetryMax    int

	RedisURL             string // L2 cache; empty = in-memory only
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient *http.Client
	Events     Publisher // nil = events disabled
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages.
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.MaxFetchBytes <= 0 {
		c.MaxFetchBytes = 2 << 20
	}
	cfg = c
	Cfg = &cfg
}
