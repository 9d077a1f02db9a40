package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	PipelineRuns       atomic.Int64
	PipelineComplete   atomic.Int64
	ValidationFailures atomic.Int64
	ParseFailures      atomic.Int64
	MatchDefects       atomic.Int64
	GenerationFailures atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	RateLimited        atomic.Int64
	QuotaExhausted     atomic.Int64
	FetchRequests      atomic.Int64
	FetchErrors        atomic.Int64
	EventsPublished    atomic.Int64
	EventErrors        atomic.Int64
}

var metricKeys = []string{
	"pipeline_runs", "pipeline_complete",
	"validation_failures", "parse_failures", "match_defects", "generation_failures",
	"llm_calls", "llm_errors", "llm_rate_limited", "llm_quota_exhausted",
	"fetch_requests", "fetch_errors",
	"events_published", "event_errors",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"pipeline_runs":       metrics.PipelineRuns.Load(),
		"pipeline_complete":   metrics.PipelineComplete.Load(),
		"validation_failures": metrics.ValidationFailures.Load(),
		"parse_failures":      metrics.ParseFailures.Load(),
		"match_defects":       metrics.MatchDefects.Load(),
		"generation_failures": metrics.GenerationFailures.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"llm_rate_limited":    metrics.RateLimited.Load(),
		"llm_quota_exhausted": metrics.QuotaExhausted.Load(),
		"fetch_requests":      metrics.FetchRequests.Load(),
		"fetch_errors":        metrics.FetchErrors.Load(),
		"events_published":    metrics.EventsPublished.Load(),
		"event_errors":        metrics.EventErrors.Load(),
		"cache_hits":          cacheHits.Load(),
		"cache_misses":        cacheMisses.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the jobs sub-package.
func IncrPipelineRuns()       { metrics.PipelineRuns.Add(1) }
func IncrPipelineComplete()   { metrics.PipelineComplete.Add(1) }
func IncrValidationFailures() { metrics.ValidationFailures.Add(1) }
func IncrParseFailures()      { metrics.ParseFailures.Add(1) }
func IncrMatchDefects()       { metrics.MatchDefects.Add(1) }
func IncrGenerationFailures() { metrics.GenerationFailures.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
