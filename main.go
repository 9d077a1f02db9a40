// go_apply is an MCP server that tailors job applications.
//
// Parses a job posting, scores it against a master profile and generates a
// tailored CV and cover letter. Profiles and tracked applications live in
// Postgres when DATABASE_URL is set, otherwise in a local SQLite file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
	"github.com/anatolykoptev/go_apply/internal/jobserver"
)

var version = "dev"

var errNoAPIKey = errors.New("LLM_API_KEY is empty")

func main() {
	_ = godotenv.Load()
	mcpPort := env.Str("MCP_PORT", "8892")

	c := loadConfig()
	engine.Init(c)
	engine.InitCache(c.RedisURL, c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)

	capability, err := newCapability(c)
	if err != nil {
		slog.Warn("no LLM backend, running heuristics only", slog.Any("error", err))
	} else {
		capability = engine.NewThrottle(capability, c.LLMRequestsPerSec, c.LLMBurst)
	}

	store, err := openStore(c)
	if err != nil {
		slog.Error("store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	if c.AMQPURL != "" {
		pub, err := engine.DialAMQP(c.AMQPURL)
		if err != nil {
			slog.Warn("amqp init failed, events disabled", slog.Any("error", err))
		} else {
			defer pub.Close()
			engine.Cfg.Events = pub
			slog.Info("amqp publisher ready")
		}
	}

	pipeline := jobs.NewPipeline(jobs.PipelineConfig{
		MaxJobSpecChars: c.MaxJobSpecChars,
		ParseTimeout:    c.ParseTimeout,
		GenerateTimeout: c.GenerateTimeout,
		DefaultStyle:    jobs.Style(c.DefaultStyle),
	}, capability).WithObserver(func(runID string, from, to jobs.State, reason error) {
		if reason != nil {
			slog.Debug("pipeline transition", slog.String("run_id", runID),
				slog.String("from", string(from)), slog.String("to", string(to)), slog.Any("reason", reason))
		}
	})

	retry := engine.DefaultRetryConfig
	retry.MaxRetries = c.RetryMax

	slog.Info("starting go_apply", slog.String("port", mcpPort), slog.String("llm_provider", c.LLMProvider))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_apply",
		Version: version,
	}, nil)

	n := jobserver.RegisterTools(server, jobserver.Deps{
		Pipeline:   pipeline,
		Capability: capability,
		Store:      store,
		Retry:      retry,
		ParseOpts:  jobs.ParseOptions{MaxChars: c.MaxJobSpecChars},
	})
	slog.Info("tools registered", slog.Int("count", n))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_apply",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	return engine.Config{
		LLMProvider:          env.Str("LLM_PROVIDER", "openai"),
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 8192),
		LLMRequestsPerSec:    env.Float("LLM_RPS", 1),
		LLMBurst:             env.Int("LLM_BURST", 2),
		GeminiAPIKey:         env.Str("GEMINI_API_KEY", ""),
		MaxJobSpecChars:      env.Int("MAX_JOB_SPEC_CHARS", jobs.DefaultMaxJobSpecChars),
		ParseTimeout:         env.Duration("PARSE_TIMEOUT", jobs.DefaultParseTimeout),
		GenerateTimeout:      env.Duration("GENERATE_TIMEOUT", jobs.DefaultGenerateTimeout),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 10*time.Second),
		DefaultStyle:         env.Str("DEFAULT_STYLE", string(jobs.StyleModern)),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		ApplyDBPath:          env.Str("APPLY_DB_PATH", jobs.DefaultSQLitePath()),
		AMQPURL:              env.Str("AMQP_URL", ""),
		RetryMax:             env.Int("RETRY_MAX", engine.DefaultRetryConfig.MaxRetries),
		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

// newCapability picks the LLM backend. A missing key yields an error and the
// server falls back to heuristic parsing.
func newCapability(c engine.Config) (engine.Capability, error) {
	if c.LLMProvider == "gemini" {
		g, err := engine.NewGeminiCapability(context.Background(), c)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	if c.LLMAPIKey == "" {
		return nil, errNoAPIKey
	}
	return engine.NewKitCapability(c), nil
}

func openStore(c engine.Config) (jobs.Store, error) {
	if c.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return jobs.ConnectPostgresStore(ctx, c.DatabaseURL)
	}
	s, err := jobs.OpenSQLiteStore(c.ApplyDBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("sqlite store opened", slog.String("path", c.ApplyDBPath))
	return s, nil
}
