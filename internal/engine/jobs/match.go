package jobs

import (
	"math"
	"sort"
	"strings"
)

// Score weights. Required-skill coverage dominates: a profile with none of the
// must-haves can reach at most 0.3 from keywords.
const (
	mustHaveWeight = 0.7
	keywordWeight  = 0.3
	neutralScore   = 0.5

	thresholdExcellent = 0.8
	thresholdGood      = 0.6
)

// Match labels.
const (
	LabelExcellent = "excellent match"
	LabelGood      = "good match"
	LabelFair      = "fair match"
)

// MatchResult is the outcome of scoring a ParsedJob against a Profile.
type MatchResult struct {
	Score       float64  `json:"score"`
	Label       string   `json:"label"`
	KeywordHits []string `json:"keyword_hits"`
	ToolMatches []string `json:"tool_matches"`
	SkillGaps   []string `json:"skill_gaps"`
}

// MatchLabel maps a score to its presentation label.
func MatchLabel(score float64) string {
	switch {
	case score >= thresholdExcellent:
		return LabelExcellent
	case score >= thresholdGood:
		return LabelGood
	default:
		return LabelFair
	}
}

// profileIndex is the normalized view of a profile used for term membership.
type profileIndex struct {
	phrases   map[string]bool // skills and tags, canonical
	tools     map[string]bool
	text      string // canonical skills, tags and bullets, segments joined by " | "
	toolsText string
	// long phrases in sorted order so reverse containment is deterministic
	longPhrases []string
	longTools   []string
}

func buildProfileIndex(p *Profile) *profileIndex {
	idx := &profileIndex{phrases: map[string]bool{}, tools: map[string]bool{}}
	var segs, toolSegs []string

	addPhrase := func(s string) {
		k := termKey(s)
		if k == "" {
			return
		}
		idx.phrases[k] = true
		segs = append(segs, k)
	}
	for _, s := range p.Skills.Core {
		addPhrase(s)
	}
	for _, s := range p.Skills.Domains {
		addPhrase(s)
	}
	for _, s := range p.Skills.Tools {
		addPhrase(s)
		if k := termKey(s); k != "" {
			idx.tools[k] = true
			toolSegs = append(toolSegs, k)
		}
	}
	for _, snip := range p.ExperienceSnippets {
		for _, t := range snip.Tags {
			addPhrase(t)
		}
		for _, b := range snip.Bullets {
			if k := termKey(b); k != "" {
				segs = append(segs, k)
			}
		}
	}

	idx.text = strings.Join(segs, " | ")
	idx.toolsText = strings.Join(toolSegs, " | ")
	idx.longPhrases = longKeys(idx.phrases)
	idx.longTools = longKeys(idx.tools)
	return idx
}

func longKeys(m map[string]bool) []string {
	var out []string
	for k := range m {
		if len(k) >= 3 && !ambiguousTerms[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// has reports whether term matches anywhere in the profile.
func (idx *profileIndex) has(term string) bool {
	return matchTerm(termKey(term), idx.phrases, idx.text, idx.longPhrases)
}

// hasTool reports whether term matches one of the declared tools.
func (idx *profileIndex) hasTool(term string) bool {
	return matchTerm(termKey(term), idx.tools, idx.toolsText, idx.longTools)
}

// matchTerm tests a canonical key against a phrase set and its joined text:
// exact phrase, whole-word containment in the text, then the reverse (a profile
// phrase inside a longer job term, e.g. "postgresql" in "postgresql tuning").
// Ambiguous short terms only match exact phrases.
func matchTerm(key string, phrases map[string]bool, text string, long []string) bool {
	if key == "" {
		return false
	}
	if phrases[key] {
		return true
	}
	if ambiguousTerms[key] {
		return false
	}
	if containsPhrase(text, key) {
		return true
	}
	for _, ph := range long {
		if containsPhrase(key, ph) {
			return true
		}
	}
	return false
}

// MatchJob scores job against profile. It is a pure function: the same inputs
// always give the same result. Lists in the result follow the job's order.
func MatchJob(job *ParsedJob, p *Profile) (MatchResult, error) {
	if err := job.Validate(); err != nil {
		return MatchResult{}, err
	}
	if p == nil {
		return MatchResult{}, validationErr("profile", "profile is required")
	}
	idx := buildProfileIndex(p)

	res := MatchResult{KeywordHits: []string{}, ToolMatches: []string{}, SkillGaps: []string{}}

	kwHit := 0
	kwTotal := 0
	seen := map[string]bool{}
	for _, kw := range job.Keywords {
		k := termKey(kw)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		kwTotal++
		if idx.has(kw) {
			kwHit++
			res.KeywordHits = append(res.KeywordHits, kw)
		}
	}

	mustHit := 0
	mustTotal := 0
	seen = map[string]bool{}
	for _, m := range job.MustHave {
		k := termKey(m)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		mustTotal++
		if idx.has(m) {
			mustHit++
		} else {
			res.SkillGaps = append(res.SkillGaps, m)
		}
	}

	seen = map[string]bool{}
	for _, term := range append(append([]string{}, job.MustHave...), job.Keywords...) {
		k := termKey(term)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if idx.hasTool(term) {
			res.ToolMatches = append(res.ToolMatches, term)
		}
	}

	res.Score = combineScore(mustHit, mustTotal, kwHit, kwTotal)
	res.Label = MatchLabel(res.Score)
	return res, nil
}

// combineScore weights must-have and keyword coverage. With only one signal
// present it is used alone; with neither the score is neutral.
func combineScore(mustHit, mustTotal, kwHit, kwTotal int) float64 {
	var s float64
	switch {
	case mustTotal > 0 && kwTotal > 0:
		s = mustHaveWeight*frac(mustHit, mustTotal) + keywordWeight*frac(kwHit, kwTotal)
	case mustTotal > 0:
		s = frac(mustHit, mustTotal)
	case kwTotal > 0:
		s = frac(kwHit, kwTotal)
	default:
		s = neutralScore
	}
	s = math.Max(0, math.Min(1, s))
	return math.Round(s*10000) / 10000
}

func frac(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
