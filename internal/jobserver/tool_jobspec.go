package jobserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
	"github.com/anatolykoptev/go_apply/internal/toolutil"
)

func registerJobSpecParse(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_spec_parse",
		Description: "Parse a job posting into structured fields: title (with confidence), company, seniority, location, must-have and nice-to-have skills, keywords ordered by first appearance, and responsibilities. Pass job_spec text or a job_url.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobSpecParseInput) (*mcp.CallToolResult, *jobs.ParsedJob, error) {
		job, err := parseJob(ctx, d, input.JobSpec, input.JobURL)
		if err != nil {
			return nil, nil, err
		}
		return nil, job, nil
	})
}

// parseJob resolves the posting text and parses it with caller-side retries.
// Parsed jobs are cached by posting text.
func parseJob(ctx context.Context, d Deps, spec, jobURL string) (*jobs.ParsedJob, error) {
	text, _, err := toolutil.JobText(ctx, spec, jobURL)
	if err != nil {
		return nil, err
	}
	key := engine.CacheKey("job", parserKind(d), text)
	if cached, ok := engine.CacheLoadJSON[jobs.ParsedJob](ctx, key); ok {
		return &cached, nil
	}
	var job *jobs.ParsedJob
	err = engine.TrackOperation(ctx, "job_spec_parse", 20*time.Second, func(ctx context.Context) error {
		var err error
		job, err = engine.RetryDo(ctx, d.Retry, jobs.IsRetryable, func() (*jobs.ParsedJob, error) {
			return jobs.ParseJobSpec(ctx, d.Capability, text, d.ParseOpts)
		})
		return err
	})
	if err != nil {
		return nil, toolutil.ToolError(err)
	}
	engine.CacheStoreJSON(ctx, key, *job)
	return job, nil
}

func parserKind(d Deps) string {
	if d.Capability == nil {
		return "heuristic"
	}
	return "model"
}
