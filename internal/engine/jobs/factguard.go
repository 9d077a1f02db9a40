package jobs

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var numberRe = regexp.MustCompile(`\b\d+(?:[.,]\d+)*(?:\s*(%|[kKmMbB]\b|x\b))?`)

// spanJoiners may sit inside a capitalised name ("Head of Engineering").
var spanJoiners = map[string]bool{"of": true, "&": true}

// factSet is what model prose may cite: numbers found in the profile, and a
// vocabulary of names (employers, schools, roles, certifications, skills, the
// target job's title and company) that capitalised spans must come from.
type factSet struct {
	numbers map[string]bool
	vocab   [][]string // lowercased, tokenised
}

func newFactSet(p *Profile, job *ParsedJob) *factSet {
	fs := &factSet{numbers: map[string]bool{}}
	addText := func(s string) {
		for _, m := range numberRe.FindAllStringSubmatch(s, -1) {
			bare := normalizeNumber(strings.TrimSpace(strings.TrimSuffix(m[0], m[1])))
			fs.numbers[bare] = true
			if m[1] != "" {
				fs.numbers[bare+strings.ToLower(m[1])] = true
			}
		}
	}
	addName := func(s string) {
		if words := nameTokens(s); len(words) > 0 {
			fs.vocab = append(fs.vocab, words)
		}
	}
	// Profile prose contributes its own capitalised terms ("REST APIs").
	addProse := func(s string) {
		addText(s)
		for _, span := range capitalSpans(s) {
			addName(strings.Join(span.words, " "))
		}
	}

	addProse(p.Summary)
	addName(p.Contact.FullName)
	addName(p.Contact.Location)
	for _, s := range p.ExperienceSnippets {
		addText(s.Role)
		addText(s.Company)
		addText(s.DateRange)
		addName(s.Role)
		addName(s.Company)
		for _, b := range s.Bullets {
			addProse(b)
		}
	}
	for _, e := range p.Education {
		addText(e.Degree)
		addText(e.Year)
		addName(e.Degree)
		addName(e.School)
	}
	for _, c := range p.Certifications {
		addText(c)
		addName(c)
	}
	for _, group := range [][]string{p.Skills.Core, p.Skills.Tools, p.Skills.Domains} {
		for _, s := range group {
			addText(s)
			addName(s)
		}
	}
	if job != nil {
		addText(job.Title)
		addText(job.Company)
		addName(job.Title)
		addName(job.Company)
	}
	return fs
}

func normalizeNumber(s string) string {
	return strings.NewReplacer(",", "", " ", "").Replace(s)
}

// unsupported returns why a sentence cites something not backed by the fact set,
// or "" when it is clean.
func (fs *factSet) unsupported(sentence string) string {
	for _, m := range numberRe.FindAllStringSubmatch(sentence, -1) {
		bare := normalizeNumber(strings.TrimSpace(strings.TrimSuffix(m[0], m[1])))
		if !fs.numbers[bare] && !fs.numbers[bare+strings.ToLower(m[1])] {
			return fmt.Sprintf("number %q not in profile", strings.TrimSpace(m[0]))
		}
	}
	for _, span := range capitalSpans(sentence) {
		words := span.words
		if span.initial {
			// A sentence's first word is capitalised regardless.
			words = words[1:]
		}
		if len(words) == 0 {
			continue
		}
		name := strings.Join(words, " ")
		if !fs.known(nameTokens(name)) {
			return fmt.Sprintf("name %q not in profile", name)
		}
	}
	return ""
}

// known reports whether words appear contiguously in a vocabulary entry.
func (fs *factSet) known(words []string) bool {
	if len(words) == 0 {
		return true
	}
	for _, entry := range fs.vocab {
		for i := 0; i+len(words) <= len(entry); i++ {
			match := true
			for j, w := range words {
				if !sameWord(w, entry[i+j]) {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

func sameWord(a, b string) bool {
	return a == b || a+"s" == b || a == b+"s"
}

// nameTokens lowercases s and splits it into words without edge punctuation or
// possessives.
func nameTokens(s string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.TrimSuffix(strings.TrimSuffix(trimEdges(f), "'s"), "’s")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func trimEdges(w string) string {
	return strings.Trim(w, `.,;:!?()[]"'“”‘’`)
}

type capitalSpan struct {
	words   []string
	initial bool
}

// capitalSpans returns runs of name-like words in s: words carrying an
// uppercase letter, joined by "of" or "&". A run ends at any other word or at
// trailing punctuation, and the pronoun I never joins one. initial marks a run
// that starts the sentence.
func capitalSpans(s string) []capitalSpan {
	var (
		out []capitalSpan
		cur capitalSpan
	)
	flush := func() {
		for len(cur.words) > 0 && spanJoiners[strings.ToLower(cur.words[len(cur.words)-1])] {
			cur.words = cur.words[:len(cur.words)-1]
		}
		if len(cur.words) > 0 {
			out = append(out, cur)
		}
		cur = capitalSpan{}
	}
	for i, f := range strings.Fields(s) {
		bare := trimEdges(f)
		switch {
		case bare == "" || isPronounI(bare):
			flush()
			continue
		case isNameWord(bare):
			if len(cur.words) == 0 {
				cur.initial = i == 0
			}
			cur.words = append(cur.words, bare)
		case len(cur.words) > 0 && spanJoiners[bare] && bare == f:
			cur.words = append(cur.words, bare)
			continue
		default:
			flush()
			continue
		}
		if strings.TrimRight(f, `.,;:!?)]"”`) != f {
			flush()
		}
	}
	flush()
	return out
}

// isNameWord reports a word that starts with a letter and carries an uppercase
// one ("Globex", "eBay"); "1M" is a number, not a name.
func isNameWord(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsLetter(r) && strings.IndexFunc(w, unicode.IsUpper) >= 0
}

func isPronounI(w string) bool {
	switch w {
	case "I", "I'm", "I've", "I'd", "I'll", "I’m", "I’ve", "I’d", "I’ll":
		return true
	}
	return false
}

// guard drops unsupported sentences from prose and records each removal.
func (fs *factSet) guard(where, prose string, adj *[]string) string {
	sentences := splitSentences(prose)
	kept := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if why := fs.unsupported(s); why != "" {
			*adj = append(*adj, fmt.Sprintf("removed sentence from %s (%s): %q", where, why, s))
			continue
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, " ")
}

// splitSentences splits prose after . ! or ? followed by whitespace.
func splitSentences(s string) []string {
	s = strings.Join(strings.Fields(s), " ")
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c == '.' || c == '!' || c == '?') && (i+1 == len(s) || s[i+1] == ' ') {
			if sent := strings.TrimSpace(s[start : i+1]); sent != "" {
				out = append(out, sent)
			}
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
