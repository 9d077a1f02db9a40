// Package toolutil provides shared helpers for go_apply MCP tools.
package toolutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
)

// JobText resolves the posting text for a tool call: pasted text wins, otherwise the
// URL is fetched. Returns the text and where it came from ("input" or the URL).
func JobText(ctx context.Context, spec, jobURL string) (string, string, error) {
	if strings.TrimSpace(spec) != "" {
		return spec, "input", nil
	}
	if strings.TrimSpace(jobURL) == "" {
		return "", "", errors.New("job_spec or job_url is required")
	}
	posting, err := engine.FetchJobPosting(ctx, jobURL)
	if err != nil {
		return "", "", fmt.Errorf("could not fetch job posting: %w", err)
	}
	return posting.Text, posting.URL, nil
}

// UserMessage renders a pipeline error for the person calling the tool: what went
// wrong and what to do about it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	e, ok := jobs.AsError(err)
	if !ok {
		return err.Error()
	}
	if e.Kind == jobs.KindValidation {
		return fmt.Sprintf("Invalid input: %s. Fix the input and try again.", err)
	}
	stage := "parsing the job posting"
	if e.Kind == jobs.KindGeneration {
		stage = "generating documents"
	}
	switch e.Cause {
	case engine.CauseRateLimited:
		return fmt.Sprintf("The AI service is rate limiting requests while %s. Wait a minute and try again.", stage)
	case engine.CauseQuotaExhausted:
		return fmt.Sprintf("The AI service quota is exhausted while %s. Upgrade the plan or configure another API key.", stage)
	case engine.CauseTimeout:
		return fmt.Sprintf("The AI service took too long while %s. Try again shortly.", stage)
	case engine.CauseCanceled:
		return fmt.Sprintf("The request was canceled while %s.", stage)
	case engine.CauseMalformedResponse:
		return fmt.Sprintf("The AI service returned an unreadable reply while %s. Try again.", stage)
	}
	return fmt.Sprintf("The AI service is unavailable while %s. Try again later.", stage)
}

// ToolError wraps err with its user-facing message, keeping it unwrappable.
func ToolError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", UserMessage(err), err)
}
