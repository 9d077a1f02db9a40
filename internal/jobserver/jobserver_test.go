package jobserver

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
)

const acmeSpec = "Senior Backend Engineer at Acme Corp. Must have: Python, PostgreSQL. Nice to have: Kubernetes. " +
	"Responsibilities: build APIs, own on-call rotation."

const acmeDocs = `{
  "summary": "Backend engineer who built REST APIs at Globex, applying for the Senior Backend Engineer role.",
  "highlights": [{"snippet_id": "exp-1", "bullets": [0]}],
  "cover_letter": {
    "opening": "I am excited to apply for the Senior Backend Engineer position at Acme Corp.",
    "body": ["At Globex, I built REST APIs serving 1M requests/day with Python and PostgreSQL."],
    "closing": "Thank you for considering my application."
  }
}`

func acmeProfile() *jobs.Profile {
	return &jobs.Profile{
		Contact: jobs.Contact{FullName: "Jane Doe", Email: "jane@example.com", Location: "Berlin"},
		Skills:  jobs.Skills{Core: []string{"Python", "API design"}, Tools: []string{"PostgreSQL", "Docker"}},
		ExperienceSnippets: []jobs.ExperienceSnippet{{
			Role:      "Backend Engineer",
			Company:   "Globex",
			DateRange: "2019 - 2023",
			Bullets:   []string{"Built REST APIs serving 1M requests/day"},
		}},
	}
}

// heuristicsOnly leaves extraction to the text heuristics and answers the
// documents prompt with docs, or fails it with docsErr.
func heuristicsOnly(docs string, docsErr error) engine.Capability {
	return engine.CapabilityFunc(func(_ context.Context, p engine.Prompt) (engine.Completion, error) {
		switch p.Task {
		case "job_extract":
			return engine.Completion{Text: `{"title":"","must_have":[],"nice_to_have":[],"keywords":[],"responsibilities":[]}`, Structured: true}, nil
		case "documents":
			if docsErr != nil {
				return engine.Completion{}, docsErr
			}
			return engine.Completion{Text: docs, Structured: true}, nil
		}
		return engine.Completion{}, &engine.CapabilityError{Cause: engine.CauseUpstream}
	})
}

func newDeps(t *testing.T, capability engine.Capability) Deps {
	t.Helper()
	store, err := jobs.OpenSQLiteStore(filepath.Join(t.TempDir(), "apply.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return Deps{
		Pipeline:   jobs.NewPipeline(jobs.PipelineConfig{}, capability),
		Capability: capability,
		Store:      store,
		Retry:      engine.RetryConfig{MaxRetries: 0},
	}
}

func TestTailorInlineProfile(t *testing.T) {
	d := newDeps(t, heuristicsOnly(acmeDocs, nil))
	out, err := tailor(context.Background(), d, ApplicationTailorInput{JobSpec: acmeSpec, Profile: acmeProfile()})
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "Senior Backend Engineer", out.Job.Title)
	assert.InDelta(t, 0.88, out.Match.Score, 1e-9)
	assert.Equal(t, jobs.LabelExcellent, out.Match.Label)
	require.NotNil(t, out.Documents)
	assert.Contains(t, out.Documents.CVText, "Backend Engineer | Globex | 2019 - 2023")
	assert.Empty(t, out.Error)
	assert.Zero(t, out.ApplicationID)
}

func TestTailorStoredProfileAndTracking(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, heuristicsOnly(acmeDocs, nil))
	require.NoError(t, d.Store.SaveProfile(ctx, "u1", acmeProfile()))

	out, err := tailor(ctx, d, ApplicationTailorInput{UserID: "u1", JobSpec: acmeSpec, Style: "classic", Track: true})
	require.NoError(t, err)
	assert.Equal(t, jobs.StyleClassic, out.Documents.Style)
	require.NotZero(t, out.ApplicationID)

	apps, total, err := d.Store.ListApplications(ctx, jobs.ApplicationFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, out.ApplicationID, apps[0].ID)
	assert.Equal(t, out.RunID, apps[0].RunID)
	assert.Equal(t, "Acme Corp", apps[0].Company)
	assert.Equal(t, jobs.StatusSaved, apps[0].Status)
}

func TestTailorGenerationFailureReturnsPartial(t *testing.T) {
	d := newDeps(t, heuristicsOnly("", &engine.CapabilityError{Cause: engine.CauseRateLimited, Err: errors.New("429")}))
	out, err := tailor(context.Background(), d, ApplicationTailorInput{JobSpec: acmeSpec, Profile: acmeProfile()})
	require.NoError(t, err)

	assert.NotNil(t, out.Job)
	assert.NotNil(t, out.Match)
	assert.Nil(t, out.Documents)
	assert.Contains(t, out.Error, "rate limiting")
	assert.True(t, out.Retryable)
}

func TestTailorInputErrors(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, heuristicsOnly(acmeDocs, nil))

	_, err := tailor(ctx, d, ApplicationTailorInput{JobSpec: acmeSpec, Profile: acmeProfile(), Track: true})
	assert.ErrorContains(t, err, "user_id is required when track is set")

	_, err = tailor(ctx, d, ApplicationTailorInput{Profile: acmeProfile()})
	assert.ErrorContains(t, err, "job_spec or job_url is required")

	_, err = tailor(ctx, d, ApplicationTailorInput{JobSpec: acmeSpec})
	assert.ErrorContains(t, err, "user_id or profile is required")

	_, err = tailor(ctx, d, ApplicationTailorInput{UserID: "ghost", JobSpec: acmeSpec})
	assert.ErrorContains(t, err, "call profile_save first")

	bad := acmeProfile()
	bad.Contact.Email = "nope"
	_, err = tailor(ctx, d, ApplicationTailorInput{JobSpec: acmeSpec, Profile: bad})
	require.ErrorIs(t, err, jobs.ErrValidation)
	assert.True(t, strings.HasPrefix(err.Error(), "Invalid input:"))
}

func TestResolveProfileWithoutStore(t *testing.T) {
	_, err := resolveProfile(context.Background(), Deps{}, "u1", nil)
	assert.ErrorContains(t, err, "no profile store configured")

	p := acmeProfile()
	got, err := resolveProfile(context.Background(), Deps{}, "", p)
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestParseJobHeuristicsOnly(t *testing.T) {
	job, err := parseJob(context.Background(), Deps{}, acmeSpec, "")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", job.Company)
	assert.Equal(t, []string{"Python", "PostgreSQL"}, job.MustHave)
	assert.Equal(t, "heuristic", parserKind(Deps{}))
}

// connect serves the registered tools over an in-memory transport.
func connect(t *testing.T, d Deps) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "go_apply", Version: "test"}, nil)
	require.Equal(t, 7, RegisterTools(server, d))

	st, ct := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call[T any](t *testing.T, cs *mcp.ClientSession, name string, args any) (T, *mcp.CallToolResult) {
	t.Helper()
	var out T
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if !res.IsError {
		b, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, &out))
	}
	return out, res
}

func TestToolsOverMCP(t *testing.T) {
	cs := connect(t, newDeps(t, heuristicsOnly(acmeDocs, nil)))

	saved, res := call[ProfileOutput](t, cs, "profile_save", map[string]any{"user_id": "u1", "profile": acmeProfile()})
	require.False(t, res.IsError)
	assert.Equal(t, "Profile saved with 1 experience snippet(s)", saved.Message)

	got, res := call[ProfileOutput](t, cs, "profile_get", map[string]any{"user_id": "u1"})
	require.False(t, res.IsError)
	assert.Equal(t, acmeProfile(), got.Profile)

	_, res = call[ProfileOutput](t, cs, "profile_get", map[string]any{"user_id": "nobody"})
	assert.True(t, res.IsError)

	score, res := call[JobMatchScoreOutput](t, cs, "job_match_score", map[string]any{"user_id": "u1", "job_spec": acmeSpec})
	require.False(t, res.IsError)
	assert.InDelta(t, 0.88, score.Match.Score, 1e-9)

	tailored, res := call[ApplicationTailorOutput](t, cs, "application_tailor", map[string]any{"user_id": "u1", "job_spec": acmeSpec, "track": true})
	require.False(t, res.IsError)
	require.NotZero(t, tailored.ApplicationID)

	updated, res := call[ApplicationUpdateOutput](t, cs, "application_update", map[string]any{"user_id": "u1", "id": tailored.ApplicationID, "status": "applied"})
	require.False(t, res.IsError)
	assert.Contains(t, updated.Message, "updated")

	list, res := call[ApplicationListOutput](t, cs, "application_list", map[string]any{"user_id": "u1", "status": "applied"})
	require.False(t, res.IsError)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, jobs.StatusApplied, list.Applications[0].Status)

	_, res = call[ApplicationUpdateOutput](t, cs, "application_update", map[string]any{"user_id": "u1", "id": 0})
	assert.True(t, res.IsError)
}
