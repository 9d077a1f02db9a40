package jobs

import (
	"fmt"
	"slices"
	"strings"
)

// CV section names, in rendering order.
const (
	SectionSummary        = "Professional Summary"
	SectionSkills         = "Core Skills"
	SectionExperience     = "Experience"
	SectionEducation      = "Education"
	SectionCertifications = "Certifications"
)

// minBulletsPerRole is how many bullets a role keeps when the model selected fewer.
const minBulletsPerRole = 3

// renderCV builds the plain-text CV. Roles, companies, dates, bullets, education and
// certifications are copied from the profile; only the summary is model prose.
// Sections with no profile data are left out.
func renderCV(p *Profile, job *ParsedJob, match MatchResult, md modelDocs, pol stylePolicy, facts *factSet, adj *[]string) string {
	var sb strings.Builder

	sb.WriteString(p.Contact.FullName)
	sb.WriteByte('\n')
	contact := []string{p.Contact.Location, p.Contact.Phone, p.Contact.Email}
	contact = append(contact, p.Contact.Links...)
	if line := joinNonEmpty(pol.separator, contact...); line != "" {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	section := func(name string) {
		sb.WriteByte('\n')
		sb.WriteString(pol.heading(name))
		sb.WriteByte('\n')
	}

	section(SectionSummary)
	sb.WriteString(cvSummary(p, job, md.Summary, facts, adj))
	sb.WriteByte('\n')

	if lines := skillLines(p, job, match, pol); len(lines) > 0 {
		section(SectionSkills)
		for _, l := range lines {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
	}

	section(SectionExperience)
	selected := selectBullets(p, md.Highlights, adj)
	for i, s := range p.ExperienceSnippets {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(joinNonEmpty(pol.separator, s.Role, s.Company, s.DateRange))
		sb.WriteByte('\n')
		for _, bi := range selected[i] {
			sb.WriteString(pol.bullet)
			sb.WriteString(strings.TrimSpace(s.Bullets[bi]))
			sb.WriteByte('\n')
		}
	}

	if len(p.Education) > 0 {
		section(SectionEducation)
		for _, e := range p.Education {
			sb.WriteString(joinNonEmpty(pol.separator, e.Degree, e.School, e.Year))
			sb.WriteByte('\n')
		}
	}

	if certs := nonBlank(p.Certifications); len(certs) > 0 {
		section(SectionCertifications)
		for _, c := range certs {
			sb.WriteString(pol.bullet)
			sb.WriteString(c)
			sb.WriteByte('\n')
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// cvSummary fact-checks the model summary, falls back to the profile's own summary
// or a sentence built from profile facts, and makes sure the job title appears verbatim.
func cvSummary(p *Profile, job *ParsedJob, prose string, facts *factSet, adj *[]string) string {
	summary := facts.guard("summary", prose, adj)
	if summary == "" {
		if strings.TrimSpace(prose) == "" {
			*adj = append(*adj, "model summary was empty; built from profile")
		}
		summary = fallbackSummary(p)
	}
	if !strings.Contains(summary, job.Title) {
		summary = fmt.Sprintf("Candidate for the %s position. %s", job.Title, summary)
	}
	return summary
}

func fallbackSummary(p *Profile) string {
	if s := strings.TrimSpace(p.Summary); s != "" {
		return s
	}
	first := p.ExperienceSnippets[0]
	core := p.Skills.Core
	if len(core) > 4 {
		core = core[:4]
	}
	return fmt.Sprintf("%s with experience as %s at %s. Core skills: %s.",
		p.Contact.FullName, first.Role, first.Company, strings.Join(core, ", "))
}

// skillLines renders core, tools and domains. Skills the job asks for come first.
func skillLines(p *Profile, job *ParsedJob, match MatchResult, pol stylePolicy) []string {
	wanted := map[string]bool{}
	for _, group := range [][]string{job.MustHave, job.Keywords, match.KeywordHits, match.ToolMatches} {
		for _, t := range group {
			wanted[termKey(t)] = true
		}
	}
	var lines []string
	add := func(label string, skills []string) {
		skills = nonBlank(skills)
		if len(skills) == 0 {
			return
		}
		var first, rest []string
		for _, s := range skills {
			if wanted[termKey(s)] {
				first = append(first, s)
			} else {
				rest = append(rest, s)
			}
		}
		lines = append(lines, label+": "+strings.Join(append(first, rest...), pol.skillSep))
	}
	add("Core", p.Skills.Core)
	add("Tools", p.Skills.Tools)
	add("Domains", p.Skills.Domains)
	return lines
}

// selectBullets resolves the model's highlight selections to bullet indexes per
// snippet. Invalid ids and indexes are dropped and recorded. A role with fewer than
// minBulletsPerRole selections is topped up in profile order; a role with no
// selection keeps all its bullets.
func selectBullets(p *Profile, highlights []modelHighlight, adj *[]string) [][]int {
	byID := map[string]int{}
	for i := range p.ExperienceSnippets {
		byID[p.SnippetID(i)] = i
	}
	picked := make([][]int, len(p.ExperienceSnippets))
	for _, h := range highlights {
		i, ok := byID[strings.TrimSpace(h.SnippetID)]
		if !ok {
			*adj = append(*adj, fmt.Sprintf("ignored highlight for unknown snippet %q", h.SnippetID))
			continue
		}
		n := len(p.ExperienceSnippets[i].Bullets)
		for _, b := range h.Bullets {
			if b < 0 || b >= n {
				*adj = append(*adj, fmt.Sprintf("ignored bullet index %d for snippet %q", b, h.SnippetID))
				continue
			}
			if !slices.Contains(picked[i], b) {
				picked[i] = append(picked[i], b)
			}
		}
	}
	for i, s := range p.ExperienceSnippets {
		want := len(s.Bullets)
		if len(picked[i]) > 0 && want > minBulletsPerRole {
			want = minBulletsPerRole
		}
		for b := 0; b < len(s.Bullets) && len(picked[i]) < want; b++ {
			if !slices.Contains(picked[i], b) {
				picked[i] = append(picked[i], b)
			}
		}
	}
	return picked
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
