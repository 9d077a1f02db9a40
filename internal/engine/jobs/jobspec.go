package jobs

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// DefaultMaxJobSpecChars bounds raw job-spec input, in runes.
const DefaultMaxJobSpecChars = 50000

// PlaceholderTitle is used when no title can be extracted. It always carries
// TitleConfidence low.
const PlaceholderTitle = "Untitled Position"

// Title confidence values.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// Classification tiers that decided must-have vs nice-to-have.
const (
	TierExplicit   = "explicit"
	TierStructural = "structural"
	TierModel      = "model"
)

// ParsedJob is the structured form of a job posting.
type ParsedJob struct {
	Title            string   `json:"title"`
	Company          string   `json:"company,omitempty"`
	Seniority        string   `json:"seniority,omitempty"`
	Location         string   `json:"location,omitempty"`
	MustHave         []string `json:"must_have"`
	NiceToHave       []string `json:"nice_to_have"`
	Keywords         []string `json:"keywords"`
	Responsibilities []string `json:"responsibilities"`
	TitleConfidence  string   `json:"title_confidence"`
	Classification   string   `json:"classification"`
}

// LowConfidence reports whether the title is a placeholder or inferred.
func (j *ParsedJob) LowConfidence() bool {
	return j.TitleConfidence == ConfidenceLow
}

// Validate checks the shape MatchJob and GenerateDocuments rely on.
func (j *ParsedJob) Validate() error {
	if j == nil {
		return validationErr("job", "parsed job is required")
	}
	if strings.TrimSpace(j.Title) == "" {
		return validationErr("job.title", "title is empty")
	}
	switch {
	case j.MustHave == nil:
		return validationErr("job.must_have", "list is nil")
	case j.NiceToHave == nil:
		return validationErr("job.nice_to_have", "list is nil")
	case j.Keywords == nil:
		return validationErr("job.keywords", "list is nil")
	case j.Responsibilities == nil:
		return validationErr("job.responsibilities", "list is nil")
	}
	return nil
}

// ParseOptions tunes ParseJobSpec.
type ParseOptions struct {
	MaxChars int // 0 means DefaultMaxJobSpecChars
}

// CheckJobSpec applies the input bounds: empty or oversized text is a validation
// error, never truncated.
func CheckJobSpec(raw string, maxChars int) error {
	if maxChars <= 0 {
		maxChars = DefaultMaxJobSpecChars
	}
	if strings.TrimSpace(raw) == "" {
		return validationErr("job_spec", "job spec text is empty")
	}
	if n := engine.RuneLen(raw); n > maxChars {
		return validationErr("job_spec", "job spec is %d characters, limit is %d", n, maxChars)
	}
	return nil
}

// ParseJobSpec extracts a ParsedJob from raw posting text.
//
// Heuristic tiers run first (explicit section markers, then structural headings).
// The capability is always consulted for the model tier and for fields the heuristics
// could not fill; its failure is a parse error. A nil capability runs heuristics only.
func ParseJobSpec(ctx context.Context, capability engine.Capability, raw string, opts ParseOptions) (*ParsedJob, error) {
	if err := CheckJobSpec(raw, opts.MaxChars); err != nil {
		return nil, err
	}
	text := raw
	if engine.LooksLikeHTML(text) {
		text = engine.HTMLToText(text)
	}
	text = engine.NormalizeNewlines(text)

	h := extractHeuristics(text)

	var m *modelJob
	if capability != nil {
		var err error
		m, err = extractWithModel(ctx, capability, text)
		if err != nil {
			return nil, err
		}
	}
	job := mergeJob(text, h, m)
	slog.Debug("job spec parsed",
		slog.String("title", job.Title),
		slog.String("title_confidence", job.TitleConfidence),
		slog.String("classification", job.Classification),
		slog.Int("must_have", len(job.MustHave)),
		slog.Int("nice_to_have", len(job.NiceToHave)),
		slog.Int("keywords", len(job.Keywords)))
	return job, nil
}

// modelJob is the capability's extraction payload, validated before use.
type modelJob struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Seniority        string   `json:"seniority"`
	Location         string   `json:"location"`
	MustHave         []string `json:"must_have"`
	NiceToHave       []string `json:"nice_to_have"`
	Keywords         []string `json:"keywords"`
	Responsibilities []string `json:"responsibilities"`
}

var stringList = &engine.Schema{Type: engine.TypeArray, Items: &engine.Schema{Type: engine.TypeString}}

var jobExtractSchema = &engine.Schema{
	Type: engine.TypeObject,
	Properties: map[string]*engine.Schema{
		"title":            {Type: engine.TypeString, Description: "job title as written in the posting"},
		"company":          {Type: engine.TypeString},
		"seniority":        {Type: engine.TypeString},
		"location":         {Type: engine.TypeString},
		"must_have":        stringList,
		"nice_to_have":     stringList,
		"keywords":         stringList,
		"responsibilities": stringList,
	},
	Required: []string{"title", "must_have", "nice_to_have", "keywords", "responsibilities"},
}

const jobExtractSystem = `You extract structured data from job postings.
Return one JSON object with: title, company, seniority, location, must_have, nice_to_have, keywords, responsibilities.
Use only words that appear in the posting. Required skills go to must_have, optional or preferred ones to nice_to_have.
Keywords are short skill, tool and domain terms. Use empty strings and empty arrays when something is absent.`

const modelInputLimit = 20000

func extractWithModel(ctx context.Context, capability engine.Capability, text string) (*modelJob, error) {
	c, err := capability.Complete(ctx, engine.Prompt{
		Task:        "job_extract",
		System:      jobExtractSystem,
		User:        engine.TruncateRunes(text, modelInputLimit, "..."),
		Schema:      jobExtractSchema,
		Temperature: engine.Float64(0),
		MaxTokens:   2048,
	})
	if err != nil {
		return nil, parseErr(err, "job extraction failed")
	}
	m, err := engine.DecodeJSON[modelJob](c, jobExtractSchema)
	if err != nil {
		return nil, parseErr(err, "job extraction returned an unreadable payload")
	}
	m.Title = cleanItem(m.Title)
	m.Company = cleanItem(m.Company)
	m.Seniority = cleanItem(m.Seniority)
	m.Location = cleanItem(m.Location)
	m.MustHave = cleanList(m.MustHave)
	m.NiceToHave = cleanList(m.NiceToHave)
	m.Keywords = cleanList(m.Keywords)
	m.Responsibilities = cleanList(m.Responsibilities)
	return &m, nil
}

// mergeJob combines heuristic and model results. Heuristics win wherever they
// produced something; model values that do not occur in the posting are dropped.
func mergeJob(text string, h heuristicJob, m *modelJob) *ParsedJob {
	if m == nil {
		m = &modelJob{}
	}
	tx := newPostingText(text)
	job := &ParsedJob{
		MustHave:         []string{},
		NiceToHave:       []string{},
		Keywords:         []string{},
		Responsibilities: []string{},
	}

	switch {
	case h.title != "":
		job.Title, job.TitleConfidence = h.title, ConfidenceHigh
	case m.Title != "" && tx.occurs(m.Title):
		job.Title, job.TitleConfidence = m.Title, ConfidenceHigh
	case m.Title != "":
		job.Title, job.TitleConfidence = m.Title, ConfidenceLow
	default:
		job.Title, job.TitleConfidence = PlaceholderTitle, ConfidenceLow
	}

	job.Company = firstNonEmpty(h.company, tx.ifOccurs(m.Company))
	job.Seniority = firstNonEmpty(h.seniority, seniorityOf(job.Title), tx.ifOccurs(m.Seniority))
	job.Location = firstNonEmpty(h.location, tx.ifOccurs(m.Location))

	switch {
	case len(h.explicitMust)+len(h.explicitNice) > 0:
		job.MustHave = dedupeTerms(h.explicitMust)
		job.NiceToHave = dedupeTerms(h.explicitNice)
		job.Classification = TierExplicit
	case len(h.structuralMust)+len(h.structuralNice) > 0:
		job.MustHave = dedupeTerms(h.structuralMust)
		job.NiceToHave = dedupeTerms(h.structuralNice)
		job.Classification = TierStructural
	default:
		job.MustHave = dedupeTerms(tx.filter(m.MustHave))
		job.NiceToHave = dedupeTerms(tx.filter(m.NiceToHave))
		job.Classification = TierModel
	}
	job.NiceToHave = minusTerms(job.NiceToHave, job.MustHave)

	if len(h.responsibilities) > 0 {
		job.Responsibilities = h.responsibilities
	} else if len(m.Responsibilities) > 0 {
		job.Responsibilities = m.Responsibilities
	}

	job.Keywords = tx.orderedKeywords(job.MustHave, job.NiceToHave, m.Keywords)
	return job
}

// postingText answers occurrence questions about the posting.
type postingText struct {
	raw   string
	lower string
	canon string
}

func newPostingText(text string) *postingText {
	return &postingText{raw: text, lower: strings.ToLower(text), canon: termKey(text)}
}

// index returns the byte offset of the first whole-word, case-insensitive
// occurrence of term, or -1.
func (t *postingText) index(term string) int {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(t.lower[from:], needle)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(needle)
		if (i == 0 || !isTermByte(t.lower[i-1])) && (end >= len(t.lower) || !isTermByte(t.lower[end])) {
			return i
		}
		from = i + 1
	}
}

func isTermByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '+' || b == '#' || b >= 0x80
}

func (t *postingText) occurs(term string) bool {
	if t.index(term) >= 0 {
		return true
	}
	k := termKey(term)
	return k != "" && !ambiguousTerms[k] && containsPhrase(t.canon, k)
}

func (t *postingText) ifOccurs(s string) string {
	if s != "" && t.occurs(s) {
		return s
	}
	return ""
}

func (t *postingText) filter(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if t.occurs(it) {
			out = append(out, it)
		}
	}
	return out
}

// orderedKeywords collects dictionary hits, must/nice items and model keywords
// that occur in the posting, deduplicated case-insensitively by canonical key and
// ordered by first appearance.
func (t *postingText) orderedKeywords(must, nice, model []string) []string {
	type cand struct {
		term string
		pos  int
		seq  int
	}
	var cands []cand
	add := func(term string, pos int) {
		cands = append(cands, cand{term: term, pos: pos, seq: len(cands)})
	}
	for _, hit := range findKnownTerms(t.raw) {
		add(hit.term, hit.pos)
	}
	for _, group := range [][]string{must, nice, model} {
		for _, term := range group {
			if pos := t.index(term); pos >= 0 {
				add(term, pos)
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].pos != cands[j].pos {
			return cands[i].pos < cands[j].pos
		}
		// longer term first at the same offset: "REST APIs" over "REST"
		if len(cands[i].term) != len(cands[j].term) {
			return len(cands[i].term) > len(cands[j].term)
		}
		return cands[i].seq < cands[j].seq
	})

	out := []string{}
	seen := map[string]bool{}
	for _, c := range cands {
		k := termKey(c.term)
		if k == "" || seen[k] || seen[strings.ToLower(c.term)] {
			continue
		}
		seen[k] = true
		seen[strings.ToLower(c.term)] = true
		out = append(out, c.term)
	}
	return out
}

// dedupeTerms removes empty and case-insensitive/canonical duplicates, keeping order.
func dedupeTerms(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		it = cleanItem(it)
		k := termKey(it)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

// minusTerms drops from items anything already present in other.
func minusTerms(items, other []string) []string {
	drop := map[string]bool{}
	for _, o := range other {
		drop[termKey(o)] = true
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !drop[termKey(it)] {
			out = append(out, it)
		}
	}
	return out
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = cleanItem(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
