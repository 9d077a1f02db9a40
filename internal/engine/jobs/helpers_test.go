package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

const acmeSpec = "Senior Backend Engineer at Acme Corp. Must have: Python, PostgreSQL. Nice to have: Kubernetes. " +
	"Responsibilities: build APIs, own on-call rotation."

func acmeProfile() *Profile {
	return &Profile{
		Contact: Contact{FullName: "Jane Doe", Email: "jane@example.com", Location: "Berlin"},
		Skills: Skills{
			Core:  []string{"Python", "API design"},
			Tools: []string{"PostgreSQL", "Docker"},
		},
		ExperienceSnippets: []ExperienceSnippet{{
			Role:      "Backend Engineer",
			Company:   "Globex",
			DateRange: "2019 - 2023",
			Bullets:   []string{"Built REST APIs serving 1M requests/day"},
		}},
	}
}

func acmeModelJob() modelJob {
	return modelJob{
		Title:            "Senior Backend Engineer",
		Company:          "Acme Corp",
		Seniority:        "Senior",
		MustHave:         []string{"Python", "PostgreSQL"},
		NiceToHave:       []string{"Kubernetes"},
		Keywords:         []string{"Python", "PostgreSQL", "Kubernetes", "APIs"},
		Responsibilities: []string{"build APIs", "own on-call rotation"},
	}
}

func acmeModelDocs() modelDocs {
	var md modelDocs
	md.Summary = "Backend engineer who built REST APIs at Globex, applying for the Senior Backend Engineer role."
	md.Highlights = []modelHighlight{{SnippetID: "exp-1", Bullets: []int{0}}}
	md.CoverLetter.Opening = "I am excited to apply for the Senior Backend Engineer position at Acme Corp."
	md.CoverLetter.Body = []string{
		"At Globex, I built REST APIs serving 1M requests/day with Python and PostgreSQL.",
		"I enjoy owning services in production and improving how teams run on-call.",
	}
	md.CoverLetter.Closing = "Thank you for considering my application."
	return md
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// fakeCapability answers by prompt task and records the tasks it saw.
type fakeCapability struct {
	mu      sync.Mutex
	calls   []string
	answers map[string]func(ctx context.Context, p engine.Prompt) (engine.Completion, error)
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{answers: map[string]func(context.Context, engine.Prompt) (engine.Completion, error){}}
}

func (f *fakeCapability) reply(task, text string) *fakeCapability {
	f.answers[task] = func(context.Context, engine.Prompt) (engine.Completion, error) {
		return engine.Completion{Text: text, Structured: true}, nil
	}
	return f
}

func (f *fakeCapability) fail(task string, err error) *fakeCapability {
	f.answers[task] = func(context.Context, engine.Prompt) (engine.Completion, error) {
		return engine.Completion{}, err
	}
	return f
}

func (f *fakeCapability) on(task string, fn func(ctx context.Context, p engine.Prompt) (engine.Completion, error)) *fakeCapability {
	f.answers[task] = fn
	return f
}

func (f *fakeCapability) Complete(ctx context.Context, p engine.Prompt) (engine.Completion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p.Task)
	fn := f.answers[p.Task]
	f.mu.Unlock()
	if fn == nil {
		return engine.Completion{}, &engine.CapabilityError{Cause: engine.CauseUpstream}
	}
	return fn(ctx, p)
}

func (f *fakeCapability) tasks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// acmeCapability answers both the extraction and the documents prompt.
func acmeCapability(t *testing.T) *fakeCapability {
	t.Helper()
	return newFakeCapability().
		reply("job_extract", mustJSON(t, acmeModelJob())).
		reply("documents", mustJSON(t, acmeModelDocs()))
}
