package jobs

import (
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// Cover letter word budget, counted over the whole letter.
const (
	CoverLetterMinWords = 200
	CoverLetterMaxWords = 300
)

type paraKind int

const (
	paraGreeting paraKind = iota
	paraOpening
	paraBody
	paraFiller
	paraClosing
	paraSignoff
)

type paragraph struct {
	kind paraKind
	text string
}

// letter is a cover letter under construction.
type letter struct {
	paras []paragraph
}

func (l *letter) words() int {
	n := 0
	for _, p := range l.paras {
		n += engine.WordCount(p.text)
	}
	return n
}

// insertBeforeClosing adds a filler paragraph ahead of the closing and sign-off.
func (l *letter) insertBeforeClosing(text string) {
	i := len(l.paras)
	for i > 0 && (l.paras[i-1].kind == paraClosing || l.paras[i-1].kind == paraSignoff) {
		i--
	}
	l.paras = append(l.paras, paragraph{})
	copy(l.paras[i+1:], l.paras[i:])
	l.paras[i] = paragraph{kind: paraFiller, text: text}
}

func (l *letter) String() string {
	parts := make([]string, 0, len(l.paras))
	for _, p := range l.paras {
		if strings.TrimSpace(p.text) != "" {
			parts = append(parts, p.text)
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// composeCoverLetter assembles the letter: greeting to the company, fact-checked
// model prose trimmed down to the maximum, then profile-backed filler that fits
// until the minimum is reached.
func composeCoverLetter(p *Profile, job *ParsedJob, match MatchResult, md modelDocs, facts *factSet, adj *[]string) string {
	l := &letter{}
	greeting := "Dear Hiring Manager,"
	if job.Company != "" {
		greeting = fmt.Sprintf("Dear Hiring Manager at %s,", job.Company)
	}
	l.paras = append(l.paras, paragraph{kind: paraGreeting, text: greeting})

	opening := facts.guard("cover letter opening", md.CoverLetter.Opening, adj)
	if opening == "" {
		opening = defaultOpening(job)
	}
	l.paras = append(l.paras, paragraph{kind: paraOpening, text: opening})
	for i, body := range md.CoverLetter.Body {
		if text := facts.guard(fmt.Sprintf("cover letter paragraph %d", i+1), body, adj); text != "" {
			l.paras = append(l.paras, paragraph{kind: paraBody, text: text})
		}
	}
	closing := facts.guard("cover letter closing", md.CoverLetter.Closing, adj)
	if closing == "" {
		closing = "Thank you for your time and consideration. I would welcome the opportunity to discuss how I can contribute."
	}
	l.paras = append(l.paras, paragraph{kind: paraClosing, text: closing})
	l.paras = append(l.paras, paragraph{kind: paraSignoff, text: "Sincerely,\n" + p.Contact.FullName})

	if trimLetter(l, CoverLetterMaxWords) {
		*adj = append(*adj, fmt.Sprintf("cover letter trimmed to %d words", CoverLetterMaxWords))
	}
	if added := fillLetter(l, coverLetterFillers(p, job, match), CoverLetterMinWords, CoverLetterMaxWords); added > 0 {
		*adj = append(*adj, fmt.Sprintf("cover letter extended with %d profile-based paragraph(s) to %d words", added, l.words()))
	}
	if n := l.words(); n < CoverLetterMinWords {
		*adj = append(*adj, fmt.Sprintf("cover letter has %d words, below the %d-word minimum", n, CoverLetterMinWords))
	}
	return l.String()
}

func defaultOpening(job *ParsedJob) string {
	if job.Company != "" {
		return fmt.Sprintf("I am writing to apply for the %s position at %s.", job.Title, job.Company)
	}
	return fmt.Sprintf("I am writing to apply for the %s position.", job.Title)
}

// coverLetterFillers returns paragraphs built only from profile facts and the
// posting's own language, most specific first.
func coverLetterFillers(p *Profile, job *ParsedJob, match MatchResult) []string {
	var out []string
	for _, s := range p.ExperienceSnippets {
		bullets := nonBlank(s.Bullets)
		if len(bullets) > 2 {
			bullets = bullets[:2]
		}
		if len(bullets) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("In my role as %s at %s, my work included the following: %s.",
			s.Role, s.Company, strings.TrimRight(strings.Join(bullets, "; "), ".")))
	}
	if len(match.KeywordHits) > 0 {
		out = append(out, fmt.Sprintf("My background covers %s, which this position lists as important.",
			englishList(match.KeywordHits)))
	}
	if core := nonBlank(p.Skills.Core); len(core) > 0 {
		out = append(out, fmt.Sprintf("My core skills include %s.", englishList(core)))
	}
	if tools := nonBlank(p.Skills.Tools); len(tools) > 0 {
		out = append(out, fmt.Sprintf("I work day to day with tools such as %s.", englishList(tools)))
	}
	if resp := nonBlank(job.Responsibilities); len(resp) > 0 {
		if len(resp) > 3 {
			resp = resp[:3]
		}
		for i := range resp {
			resp[i] = lowerFirst(strings.TrimRight(resp[i], "."))
		}
		team := "the team"
		if job.Company != "" {
			team = "the " + job.Company + " team"
		}
		out = append(out, fmt.Sprintf("I would welcome the chance to %s as part of %s.", englishList(resp), team))
	}
	return append(out, genericFillers...)
}

// genericFillers make no factual claims. Each is short and together they exceed
// the minimum word budget, so a trimmed letter can always be filled into range.
var genericFillers = []string{
	"I care about writing work that is clear, well tested and easy for colleagues to build on, and I try to leave every codebase and process a little better than I found it.",
	"I enjoy collaborating closely with teammates across functions, asking questions early, sharing context openly and making sure decisions are written down so the whole team can move quickly with confidence.",
	"I take ownership of the problems in front of me, from understanding the real need behind a request to following a change through review, release and the feedback that comes after it.",
	"When priorities shift I adapt without losing sight of quality, and I am comfortable breaking large goals into small, steady steps that deliver value along the way.",
	"I am always learning, whether that means reading the documentation of a new tool, pairing with a colleague who knows a system better than I do, or reflecting on what went well and what did not.",
	"I value honest feedback in both directions, and I try to make code reviews, planning sessions and retrospectives useful conversations rather than formalities.",
	"I pay attention to the people who rely on what I deliver, and I like to check that a change actually solved their problem instead of assuming it did.",
	"Above all I want to join a team where I can contribute from the first weeks, keep growing, and help the people around me do their best work.",
}

// fillLetter inserts fillers in order until the letter reaches min words,
// skipping any that would push it past max. Returns how many were added.
func fillLetter(l *letter, fillers []string, min, max int) int {
	added := 0
	n := l.words()
	for _, f := range fillers {
		if n >= min {
			break
		}
		fw := engine.WordCount(f)
		if n+fw > max {
			continue
		}
		l.insertBeforeClosing(f)
		n += fw
		added++
	}
	return added
}

// trimLetter removes filler, then body sentences from the end, then words from the
// longest prose paragraph until the letter fits max. Reports whether it changed anything.
func trimLetter(l *letter, max int) bool {
	changed := false
	for l.words() > max {
		changed = true
		if i := lastOfKind(l, paraFiller); i >= 0 {
			l.paras = append(l.paras[:i], l.paras[i+1:]...)
			continue
		}
		if i := lastOfKind(l, paraBody); i >= 0 {
			sents := splitSentences(l.paras[i].text)
			if len(sents) <= 1 {
				l.paras = append(l.paras[:i], l.paras[i+1:]...)
			} else {
				l.paras[i].text = strings.Join(sents[:len(sents)-1], " ")
			}
			continue
		}
		if !cutLongestProse(l, l.words()-max) {
			break
		}
	}
	return changed
}

func lastOfKind(l *letter, k paraKind) int {
	for i := len(l.paras) - 1; i >= 0; i-- {
		if l.paras[i].kind == k {
			return i
		}
	}
	return -1
}

// cutLongestProse drops excess words from the end of the longest opening or closing.
func cutLongestProse(l *letter, excess int) bool {
	best, bestN := -1, 0
	for i, p := range l.paras {
		if p.kind != paraOpening && p.kind != paraClosing {
			continue
		}
		if n := engine.WordCount(p.text); n > bestN {
			best, bestN = i, n
		}
	}
	if best < 0 || bestN <= 1 {
		return false
	}
	words := strings.Fields(l.paras[best].text)
	keep := len(words) - excess
	if keep < 1 {
		keep = 1
	}
	l.paras[best].text = strings.TrimRight(strings.Join(words[:keep], " "), ",;:.") + "."
	return true
}

// englishList joins items as "a, b and c".
func englishList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if len(r) > 1 && r[1] >= 'A' && r[1] <= 'Z' {
		return s // acronym
	}
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return string(r)
}
