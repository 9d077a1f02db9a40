package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// GeneratedDocuments is the tailored CV and cover letter for one job.
// Adjustments lists every change made to model prose (fact-guard removals,
// dropped selections, word-budget fitting) so degraded output is never silent.
type GeneratedDocuments struct {
	CVText           string   `json:"cv_text"`
	CoverLetter      string   `json:"cover_letter"`
	CoverLetterWords int      `json:"cover_letter_words"`
	Style            Style    `json:"style"`
	Adjustments      []string `json:"adjustments"`
}

// Degraded reports whether any model output had to be corrected.
func (d *GeneratedDocuments) Degraded() bool { return len(d.Adjustments) > 0 }

// modelDocs is the capability payload for document generation. It carries prose and
// selections only; every fact in the output is rendered from the profile.
type modelDocs struct {
	Summary     string           `json:"summary"`
	Highlights  []modelHighlight `json:"highlights"`
	CoverLetter struct {
		Opening string   `json:"opening"`
		Body    []string `json:"body"`
		Closing string   `json:"closing"`
	} `json:"cover_letter"`
}

type modelHighlight struct {
	SnippetID string `json:"snippet_id"`
	Bullets   []int  `json:"bullets"`
}

var documentsSchema = &engine.Schema{
	Type: engine.TypeObject,
	Properties: map[string]*engine.Schema{
		"summary": {Type: engine.TypeString, Description: "2-3 sentence professional summary naming the target title verbatim"},
		"highlights": {
			Type: engine.TypeArray,
			Items: &engine.Schema{
				Type: engine.TypeObject,
				Properties: map[string]*engine.Schema{
					"snippet_id": {Type: engine.TypeString},
					"bullets":    {Type: engine.TypeArray, Items: &engine.Schema{Type: engine.TypeInteger}, Description: "0-based bullet indexes, most relevant first"},
				},
				Required: []string{"snippet_id", "bullets"},
			},
		},
		"cover_letter": {
			Type: engine.TypeObject,
			Properties: map[string]*engine.Schema{
				"opening": {Type: engine.TypeString},
				"body":    stringList,
				"closing": {Type: engine.TypeString},
			},
			Required: []string{"opening", "body", "closing"},
		},
	},
	Required: []string{"summary", "highlights", "cover_letter"},
}

const documentsSystem = `You tailor a candidate's CV and cover letter to a job posting.
Use ONLY facts present in the candidate profile: never invent employers, job titles, dates, numbers or achievements.
You may rephrase, select and reorder. Write the summary and cover letter prose in a %s tone.
The summary must contain the target job title exactly as given.
Pick the experience bullets (by index) that best support the job's must-have skills and keywords.
The cover letter prose (opening, 2-3 body paragraphs, closing) should total about 200-250 words, with no greeting and no signature.`

// GenerateDocuments produces the CV and cover letter. The capability supplies prose
// and bullet selection; rendering, fact checking and the word budget are deterministic.
func GenerateDocuments(ctx context.Context, capability engine.Capability, p *Profile, job *ParsedJob, match MatchResult, style Style) (*GeneratedDocuments, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	style, err := ParseStyle(string(style), StyleModern)
	if err != nil {
		return nil, err
	}
	if capability == nil {
		return nil, generationErr(errors.New("no generation capability configured"), "documents unavailable")
	}

	pol := policyFor(style)
	user, err := documentsInput(p, job, match)
	if err != nil {
		return nil, generationErr(err, "build generation input")
	}
	c, err := capability.Complete(ctx, engine.Prompt{
		Task:        "documents",
		System:      fmt.Sprintf(documentsSystem, pol.tone),
		User:        user,
		Schema:      documentsSchema,
		Temperature: engine.Float64(0.4),
		MaxTokens:   3000,
	})
	if err != nil {
		return nil, generationErr(err, "document generation failed")
	}
	md, err := engine.DecodeJSON[modelDocs](c, documentsSchema)
	if err != nil {
		return nil, generationErr(err, "document generation returned an unreadable payload")
	}

	docs := &GeneratedDocuments{Style: style, Adjustments: []string{}}
	facts := newFactSet(p, job)
	docs.CVText = renderCV(p, job, match, md, pol, facts, &docs.Adjustments)
	docs.CoverLetter = composeCoverLetter(p, job, match, md, facts, &docs.Adjustments)
	docs.CoverLetterWords = engine.WordCount(docs.CoverLetter)

	if docs.Degraded() {
		slog.Info("generated documents adjusted",
			slog.String("title", job.Title),
			slog.Int("adjustments", len(docs.Adjustments)))
	}
	return docs, nil
}

// documentsInput is the user message: job, match and profile as JSON, with bullet
// indexes spelled out so selections can be validated.
func documentsInput(p *Profile, job *ParsedJob, match MatchResult) (string, error) {
	type snippet struct {
		ID        string         `json:"snippet_id"`
		Role      string         `json:"role"`
		Company   string         `json:"company"`
		DateRange string         `json:"date_range,omitempty"`
		Bullets   map[int]string `json:"bullets"`
		Tags      []string       `json:"tags,omitempty"`
	}
	snips := make([]snippet, 0, len(p.ExperienceSnippets))
	for i, s := range p.ExperienceSnippets {
		b := make(map[int]string, len(s.Bullets))
		for j, text := range s.Bullets {
			b[j] = text
		}
		snips = append(snips, snippet{ID: p.SnippetID(i), Role: s.Role, Company: s.Company, DateRange: s.DateRange, Bullets: b, Tags: s.Tags})
	}
	payload := map[string]any{
		"job": map[string]any{
			"title":            job.Title,
			"company":          job.Company,
			"must_have":        job.MustHave,
			"nice_to_have":     job.NiceToHave,
			"keywords":         job.Keywords,
			"responsibilities": job.Responsibilities,
		},
		"match": match,
		"profile": map[string]any{
			"name":           p.Contact.FullName,
			"summary":        p.Summary,
			"skills":         p.Skills,
			"experience":     snips,
			"education":      p.Education,
			"certifications": p.Certifications,
		},
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal documents input: %w", err)
	}
	return string(b), nil
}

// joinNonEmpty joins the non-blank values with sep.
func joinNonEmpty(sep string, vals ...string) string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
