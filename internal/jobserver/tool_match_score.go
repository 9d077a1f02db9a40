package jobserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
	"github.com/anatolykoptev/go_apply/internal/toolutil"
)

func registerJobMatchScore(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_match_score",
		Description: "Score a job posting against the master profile without generating documents. Returns the parsed job and a deterministic match: score 0-1 (70% must-have coverage, 30% keyword coverage), label (excellent >= 0.8, good >= 0.6, fair), keyword hits, tool matches and skill gaps.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobMatchScoreInput) (*mcp.CallToolResult, *JobMatchScoreOutput, error) {
		profile, err := resolveProfile(ctx, d, input.UserID, input.Profile)
		if err != nil {
			return nil, nil, err
		}
		if err := profile.Validate(); err != nil {
			return nil, nil, toolutil.ToolError(err)
		}
		job, err := parseJob(ctx, d, input.JobSpec, input.JobURL)
		if err != nil {
			return nil, nil, err
		}
		match, err := jobs.MatchJob(job, profile)
		if err != nil {
			return nil, nil, toolutil.ToolError(err)
		}
		return nil, &JobMatchScoreOutput{Job: job, Match: &match}, nil
	})
}
