package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// State is a stage of the tailoring pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateParsing    State = "parsing"
	StateMatching   State = "matching"
	StateGenerating State = "generating"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Default stage timeouts.
const (
	DefaultParseTimeout    = 45 * time.Second
	DefaultGenerateTimeout = 90 * time.Second
)

// PipelineConfig is injected at construction; the pipeline never reads the environment.
type PipelineConfig struct {
	MaxJobSpecChars int
	ParseTimeout    time.Duration
	GenerateTimeout time.Duration
	DefaultStyle    Style
}

// Observer is notified of every state transition. reason is set on Failed.
type Observer func(runID string, from, to State, reason error)

// Request is one tailoring request.
type Request struct {
	JobSpec string
	Profile *Profile
	Style   Style
}

// Result is the composite output. On a generation failure Job and Match are set and
// Documents is nil.
type Result struct {
	RunID     string              `json:"run_id"`
	Job       *ParsedJob          `json:"job"`
	Match     *MatchResult        `json:"match"`
	Documents *GeneratedDocuments `json:"documents,omitempty"`
	Trace     []State             `json:"trace"`
}

// Pipeline sequences parse, match and generate for one request at a time.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	cfg        PipelineConfig
	capability engine.Capability
	observer   Observer
}

// NewPipeline builds a pipeline. Zero config fields take their defaults.
func NewPipeline(cfg PipelineConfig, capability engine.Capability) *Pipeline {
	if cfg.MaxJobSpecChars <= 0 {
		cfg.MaxJobSpecChars = DefaultMaxJobSpecChars
	}
	if cfg.ParseTimeout <= 0 {
		cfg.ParseTimeout = DefaultParseTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = DefaultGenerateTimeout
	}
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = StyleModern
	}
	return &Pipeline{cfg: cfg, capability: capability}
}

// WithObserver sets the transition observer and returns the pipeline.
func (p *Pipeline) WithObserver(o Observer) *Pipeline {
	p.observer = o
	return p
}

// run is the per-request state machine.
type run struct {
	id     string
	state  State
	trace  []State
	obs    Observer
	logger *slog.Logger
}

func (r *run) to(s State, reason error) {
	from := r.state
	r.state = s
	r.trace = append(r.trace, s)
	r.logger.Debug("pipeline transition", slog.String("from", string(from)), slog.String("to", string(s)))
	if r.obs != nil {
		r.obs(r.id, from, s, reason)
	}
}

// fail moves to Failed, stamping the stage the error happened in.
func (r *run) fail(err error) error {
	stage := r.state
	if e, ok := AsError(err); ok && e.Stage == "" {
		e.Stage = stage
	}
	r.to(StateFailed, err)
	return err
}

// Run executes one request: Validating, Parsing, Matching, Generating, Complete.
// Any stage may fail; nothing is retried here. A generation failure returns the
// partial result alongside the error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	engine.IncrPipelineRuns()
	id := uuid.NewString()
	r := &run{
		id:     id,
		state:  StateIdle,
		trace:  []State{StateIdle},
		obs:    p.observer,
		logger: slog.With(slog.String("run_id", id)),
	}
	res := &Result{RunID: r.id}
	start := time.Now()
	defer func() {
		res.Trace = r.trace
		r.logger.Info("pipeline finished",
			slog.String("state", string(r.state)),
			slog.Duration("elapsed", time.Since(start)))
	}()

	// Validating: no external call is made before the inputs pass.
	r.to(StateValidating, nil)
	style, err := p.validate(req)
	if err != nil {
		engine.IncrValidationFailures()
		return nil, r.fail(err)
	}

	r.to(StateParsing, nil)
	job, err := p.parse(ctx, req.JobSpec)
	if err != nil {
		if isKind(err, KindValidation) {
			engine.IncrValidationFailures()
		} else {
			engine.IncrParseFailures()
		}
		return nil, r.fail(err)
	}
	res.Job = job
	if job.LowConfidence() {
		r.logger.Warn("job title is low confidence", slog.String("title", job.Title))
	}

	r.to(StateMatching, nil)
	match, err := MatchJob(job, req.Profile)
	if err != nil {
		engine.IncrMatchDefects()
		r.logger.Error("parser produced a job the matcher rejects", slog.Any("error", err))
		return nil, r.fail(err)
	}
	res.Match = &match

	r.to(StateGenerating, nil)
	docs, err := p.generate(ctx, req.Profile, job, match, style)
	if err != nil {
		engine.IncrGenerationFailures()
		r.logger.Warn("document generation failed",
			slog.String("cause", string(causeOf(err))),
			slog.Any("error", err))
		return res, r.fail(err)
	}
	res.Documents = docs

	r.to(StateComplete, nil)
	engine.IncrPipelineComplete()
	return res, nil
}

func (p *Pipeline) validate(req Request) (Style, error) {
	if err := CheckJobSpec(req.JobSpec, p.cfg.MaxJobSpecChars); err != nil {
		return "", err
	}
	if err := req.Profile.Validate(); err != nil {
		return "", err
	}
	return ParseStyle(string(req.Style), p.cfg.DefaultStyle)
}

func (p *Pipeline) parse(ctx context.Context, raw string) (*ParsedJob, error) {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.ParseTimeout)
	defer cancel()
	job, err := ParseJobSpec(sctx, p.capability, raw, ParseOptions{MaxChars: p.cfg.MaxJobSpecChars})
	return job, stageError(ctx, sctx, err)
}

func (p *Pipeline) generate(ctx context.Context, prof *Profile, job *ParsedJob, match MatchResult, style Style) (*GeneratedDocuments, error) {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
	defer cancel()
	docs, err := GenerateDocuments(sctx, p.capability, prof, job, match, style)
	return docs, stageError(ctx, sctx, err)
}

// stageError pins the cause of a capability failure to the stage deadline or the
// caller's cancellation, whichever ended the call.
func stageError(parent, stage context.Context, err error) error {
	if err == nil {
		return nil
	}
	e, ok := AsError(err)
	if !ok || e.Kind == KindValidation {
		return err
	}
	switch {
	case parent.Err() != nil && errors.Is(parent.Err(), context.Canceled):
		e.Cause = engine.CauseCanceled
	case parent.Err() != nil || errors.Is(stage.Err(), context.DeadlineExceeded):
		e.Cause = engine.CauseTimeout
	}
	return e
}

func isKind(err error, k ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == k
}

func causeOf(err error) engine.FailureCause {
	if e, ok := AsError(err); ok {
		return e.Cause
	}
	return engine.CauseOf(err)
}
