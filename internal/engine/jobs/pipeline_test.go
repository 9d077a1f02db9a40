package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

func TestPipelineEndToEnd(t *testing.T) {
	fc := acmeCapability(t)
	res, err := NewPipeline(PipelineConfig{}, fc).Run(context.Background(), Request{
		JobSpec: acmeSpec,
		Profile: acmeProfile(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []State{StateIdle, StateValidating, StateParsing, StateMatching, StateGenerating, StateComplete}, res.Trace)
	assert.Equal(t, "Senior Backend Engineer", res.Job.Title)
	require.NotNil(t, res.Match)
	assert.InDelta(t, 0.88, res.Match.Score, 1e-9)
	require.NotNil(t, res.Documents)
	assert.Equal(t, StyleModern, res.Documents.Style)
	assert.Equal(t, []string{"job_extract", "documents"}, fc.tasks())
}

func TestPipelineDefaultStyle(t *testing.T) {
	res, err := NewPipeline(PipelineConfig{DefaultStyle: StyleClassic}, acmeCapability(t)).Run(context.Background(), Request{
		JobSpec: acmeSpec,
		Profile: acmeProfile(),
	})
	require.NoError(t, err)
	assert.Equal(t, StyleClassic, res.Documents.Style)
}

func TestPipelineValidationMakesNoCalls(t *testing.T) {
	badEmail := acmeProfile()
	badEmail.Contact.Email = "not-an-email"
	noSnippets := acmeProfile()
	noSnippets.ExperienceSnippets = nil

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"empty job spec", Request{JobSpec: "  ", Profile: acmeProfile()}, "job_spec"},
		{"oversized job spec", Request{JobSpec: string(make([]byte, 1001)), Profile: acmeProfile()}, "job_spec"},
		{"nil profile", Request{JobSpec: acmeSpec}, "profile"},
		{"bad email", Request{JobSpec: acmeSpec, Profile: badEmail}, "contact.email"},
		{"no snippets", Request{JobSpec: acmeSpec, Profile: noSnippets}, "experience_snippets"},
		{"unknown style", Request{JobSpec: acmeSpec, Profile: acmeProfile(), Style: "gothic"}, "style"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := acmeCapability(t)
			var seen []State
			p := NewPipeline(PipelineConfig{MaxJobSpecChars: 1000}, fc).WithObserver(func(_ string, _, to State, _ error) {
				seen = append(seen, to)
			})

			res, err := p.Run(context.Background(), tt.req)
			assert.Nil(t, res)
			require.ErrorIs(t, err, ErrValidation)
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, e.Field)
			assert.Equal(t, StateValidating, e.Stage)
			assert.False(t, IsRetryable(err))
			assert.Empty(t, fc.tasks())
			assert.Equal(t, []State{StateValidating, StateFailed}, seen)
		})
	}
}

func TestPipelineParseFailure(t *testing.T) {
	fc := newFakeCapability().
		fail("job_extract", &engine.CapabilityError{Cause: engine.CauseUpstream, Err: errors.New("502")}).
		reply("documents", mustJSON(t, acmeModelDocs()))

	res, err := NewPipeline(PipelineConfig{}, fc).Run(context.Background(), Request{JobSpec: acmeSpec, Profile: acmeProfile()})
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, engine.ErrUpstream)
	e, _ := AsError(err)
	assert.Equal(t, StateParsing, e.Stage)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, []string{"job_extract"}, fc.tasks(), "documents must not be requested after a parse failure")
}

func TestPipelineGenerationFailureKeepsPartialResult(t *testing.T) {
	fc := newFakeCapability().
		reply("job_extract", mustJSON(t, acmeModelJob())).
		fail("documents", &engine.CapabilityError{Cause: engine.CauseQuotaExhausted, Err: errors.New("quota")})

	res, err := NewPipeline(PipelineConfig{}, fc).Run(context.Background(), Request{JobSpec: acmeSpec, Profile: acmeProfile()})
	require.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, engine.ErrQuotaExhausted)
	assert.False(t, IsRetryable(err))

	require.NotNil(t, res)
	assert.NotNil(t, res.Job)
	assert.NotNil(t, res.Match)
	assert.Nil(t, res.Documents)
	e, _ := AsError(err)
	assert.Equal(t, StateGenerating, e.Stage)
}

func TestPipelineRefusalIsParseFailure(t *testing.T) {
	refusal := `{"error":"I cannot help with that"}`
	fc := newFakeCapability().reply("job_extract", refusal).reply("documents", refusal)

	res, err := NewPipeline(PipelineConfig{}, fc).Run(context.Background(), Request{JobSpec: acmeSpec, Profile: acmeProfile()})
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, engine.ErrMalformedResponse)
	assert.Equal(t, []string{"job_extract"}, fc.tasks())
}

// blockUntilDone waits for the context and reports its error the way a real
// capability does.
func blockUntilDone(ctx context.Context, _ engine.Prompt) (engine.Completion, error) {
	<-ctx.Done()
	return engine.Completion{}, &engine.CapabilityError{Cause: engine.CauseOf(ctx.Err()), Err: ctx.Err()}
}

func TestPipelineGenerateTimeout(t *testing.T) {
	fc := newFakeCapability().
		reply("job_extract", mustJSON(t, acmeModelJob())).
		on("documents", blockUntilDone)

	p := NewPipeline(PipelineConfig{GenerateTimeout: 20 * time.Millisecond}, fc)
	res, err := p.Run(context.Background(), Request{JobSpec: acmeSpec, Profile: acmeProfile()})
	require.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, engine.ErrTimeout)
	assert.True(t, IsRetryable(err))
	require.NotNil(t, res)
	assert.NotNil(t, res.Match)
}

func TestPipelineCallerCancellation(t *testing.T) {
	fc := newFakeCapability().on("job_extract", blockUntilDone)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := NewPipeline(PipelineConfig{}, fc).Run(ctx, Request{JobSpec: acmeSpec, Profile: acmeProfile()})
	require.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, engine.ErrCanceled)
	assert.False(t, IsRetryable(err))
}

func TestPipelineObserver(t *testing.T) {
	type transition struct{ from, to State }
	var (
		mu   sync.Mutex
		got  []transition
		last error
		ids  = map[string]bool{}
	)
	fc := newFakeCapability().
		reply("job_extract", mustJSON(t, acmeModelJob())).
		reply("documents", `not json`)

	p := NewPipeline(PipelineConfig{}, fc).WithObserver(func(runID string, from, to State, reason error) {
		mu.Lock()
		defer mu.Unlock()
		ids[runID] = true
		got = append(got, transition{from, to})
		last = reason
	})
	res, err := p.Run(context.Background(), Request{JobSpec: acmeSpec, Profile: acmeProfile()})
	require.Error(t, err)

	assert.Equal(t, []transition{
		{StateIdle, StateValidating},
		{StateValidating, StateParsing},
		{StateParsing, StateMatching},
		{StateMatching, StateGenerating},
		{StateGenerating, StateFailed},
	}, got)
	assert.Len(t, ids, 1)
	assert.True(t, ids[res.RunID])
	assert.ErrorIs(t, last, engine.ErrMalformedResponse)
}

func TestPipelineConcurrentRuns(t *testing.T) {
	p := NewPipeline(PipelineConfig{}, acmeCapability(t))
	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Run(context.Background(), Request{JobSpec: acmeSpec, Profile: acmeProfile()})
			if err != nil {
				t.Errorf("run %d: %v", i, err)
				return
			}
			ids[i] = res.RunID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "run ids must be unique")
		seen[id] = true
	}
}
