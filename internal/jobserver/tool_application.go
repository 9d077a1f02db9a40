package jobserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
	"github.com/anatolykoptev/go_apply/internal/toolutil"
)

// EventApplicationTailored is the routing key published after a successful tailoring run.
const EventApplicationTailored = "application.tailored"

func registerApplicationTailor(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "application_tailor",
		Description: "Tailor an application to a job posting in one call: parse the posting (title, company, must-have and nice-to-have skills, keywords, responsibilities), score it against the master profile (0-1 with excellent/good/fair label, keyword hits, tool matches, skill gaps), and generate an ATS-friendly CV and a 200-300 word cover letter that only use facts from the profile. Pass job_spec text or a job_url, and a stored user_id or an inline profile.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ApplicationTailorInput) (*mcp.CallToolResult, *ApplicationTailorOutput, error) {
		out, err := tailor(ctx, d, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

// tailor runs the pipeline with caller-side retries. Generation failures still
// return the parsed job and match alongside the error message.
func tailor(ctx context.Context, d Deps, input ApplicationTailorInput) (*ApplicationTailorOutput, error) {
	if input.Track && input.UserID == "" {
		return nil, errors.New("user_id is required when track is set")
	}
	text, source, err := toolutil.JobText(ctx, input.JobSpec, input.JobURL)
	if err != nil {
		return nil, err
	}
	profile, err := resolveProfile(ctx, d, input.UserID, input.Profile)
	if err != nil {
		return nil, err
	}

	req := jobs.Request{JobSpec: text, Profile: profile, Style: jobs.Style(input.Style)}
	res, err := engine.RetryDo(ctx, d.Retry, jobs.IsRetryable, func() (*jobs.Result, error) {
		return d.Pipeline.Run(ctx, req)
	})
	if err != nil && (res == nil || res.Match == nil) {
		return nil, toolutil.ToolError(err)
	}

	out := &ApplicationTailorOutput{RunID: res.RunID, Job: res.Job, Match: res.Match, Documents: res.Documents}
	if res.Job != nil && res.Job.LowConfidence() {
		out.Warnings = append(out.Warnings, fmt.Sprintf("job title %q is low confidence; check the posting", res.Job.Title))
	}
	if res.Documents != nil && res.Documents.Degraded() {
		out.Warnings = append(out.Warnings, res.Documents.Adjustments...)
	}
	if err != nil {
		out.Error = toolutil.UserMessage(err)
		out.Retryable = jobs.IsRetryable(err)
		return out, nil
	}

	if input.Track {
		url := ""
		if source != "input" {
			url = source
		}
		id, err := d.Store.AddApplication(ctx, jobs.NewApplication(input.UserID, url, res))
		if err != nil {
			slog.Warn("application_tailor: tracking failed", slog.Any("error", err))
			out.Warnings = append(out.Warnings, "application could not be recorded: "+err.Error())
		} else {
			out.ApplicationID = id
		}
	}

	engine.PublishEvent(ctx, EventApplicationTailored, map[string]any{
		"run_id":         res.RunID,
		"user_id":        input.UserID,
		"application_id": out.ApplicationID,
		"title":          res.Job.Title,
		"company":        res.Job.Company,
		"score":          res.Match.Score,
		"label":          res.Match.Label,
	})
	return out, nil
}

// resolveProfile prefers an inline profile and falls back to the stored one.
func resolveProfile(ctx context.Context, d Deps, userID string, inline *jobs.Profile) (*jobs.Profile, error) {
	if inline != nil {
		return inline, nil
	}
	if userID == "" {
		return nil, errors.New("user_id or profile is required")
	}
	if d.Store == nil {
		return nil, errors.New("no profile store configured; pass the profile inline")
	}
	p, err := d.Store.GetProfile(ctx, userID)
	if errors.Is(err, jobs.ErrProfileNotFound) {
		return nil, fmt.Errorf("no profile saved for user %q; call profile_save first", userID)
	}
	return p, err
}
