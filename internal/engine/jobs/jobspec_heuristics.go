package jobs

import (
	"regexp"
	"sort"
	"strings"
)

// heuristicJob is what the pure text heuristics recovered from a posting.
type heuristicJob struct {
	title     string
	company   string
	seniority string
	location  string

	explicitMust   []string
	explicitNice   []string
	structuralMust []string
	structuralNice []string

	responsibilities []string
}

type sectionKind int

const (
	secNone sectionKind = iota
	secMust
	secNice
	secResp
	secQualifications // structural tier: generic qualification heading
	secOther          // any other heading closes the current section
)

// Explicit markers, longest alternatives first.
const explicitMarkers = `must[- ]haves?|required skills|required qualifications|minimum qualifications|requirements|required|` +
	`nice[- ]to[- ]haves?|preferred qualifications|preferred skills|preferred|bonus points|bonus|pluses|` +
	`key responsibilities|responsibilities|duties|what you'?ll do|what you will do`

const structuralMarkers = `qualifications|skills|what we'?re looking for|what we are looking for|about you|` +
	`who you are|tech stack|our stack|your profile|you have`

var (
	inlineMarkerRe  = regexp.MustCompile(`(?i)\b(` + explicitMarkers + `)\s*:`)
	headingMarkerRe = regexp.MustCompile(`(?i)^(` + explicitMarkers + `|` + structuralMarkers + `)\s*:?$`)
	genericHeadRe   = regexp.MustCompile(`^#{1,6}\s+\S`)
	otherHeadRe     = regexp.MustCompile(`(?i)^(benefits|perks|what we offer|compensation|salary|how to apply|about (?:us|the company|the role|the team)|` +
		`who we are|our culture|why join us|the role|overview|job description|description|equal opportunity)\s*:?$`)
	bulletRe        = regexp.MustCompile(`^(?:[-*•·▪◦‣]|\d{1,2}[.)])\s+`)
	sentenceEndRe   = regexp.MustCompile(`[.!?](?:\s|$)`)
	leadInRe        = regexp.MustCompile(`(?i)^(?:(?:\d+\+?\s*(?:-\s*\d+\s*)?years?(?:\s+of)?(?:\s+(?:professional|hands-on|commercial))?(?:\s+experience)?\s+(?:with|in|using)?)|` +
		`(?:(?:strong|solid|proven|deep|good|excellent|hands-on)\s+)?(?:experience|proficiency|expertise|knowledge|familiarity|background|skills)\s+(?:with|in|of|using)|` +
		`(?:ability to|able to|comfortable with|exposure to|understanding of)|(?:you have|you know))\s*`)
	splitRe  = regexp.MustCompile(`\s*(?:[,;]|\band\b|\bor\b|&)\s*`)
	niceCue  = regexp.MustCompile(`(?i)\b(preferred|bonus|plus|ideally|nice to have|a plus|desirable)\b`)
	copulaRe = regexp.MustCompile(`(?i)\s+(?:is|are|would be|will be)\s*$`)
	labelRe  = regexp.MustCompile(`(?im)^\s*(?:job\s+)?(?:title|position|role)\s*:\s*(.+)$`)
	locRe    = regexp.MustCompile(`(?im)^\s*(?:location|based in|office)\s*:\s*(.+)$`)
	remoteRe = regexp.MustCompile(`(?i)\b(fully remote|remote|hybrid|on-site|onsite)\b`)
	hiringRe = regexp.MustCompile(`(?i)^(?:we(?:'re| are) (?:hiring|looking for)(?: an?)?|hiring:?|join us as(?: an?)?|job:)\s+`)
	roleRe   = regexp.MustCompile(`(?i)\b(engineer|developer|programmer|manager|designer|analyst|scientist|architect|lead|director|specialist|` +
		`consultant|administrator|intern|coordinator|officer|writer|recruiter|owner|sre|devops|technician|strategist|marketer|head|vp|president|accountant|associate|representative|editor|researcher)s?\b`)
	titleSplitRe = regexp.MustCompile(`\s+(?:at|@)\s+|\s+[-–—|]\s+|\s*\|\s*`)
	seniorityRe  = regexp.MustCompile(`(?i)\b(intern|junior|jr\.?|mid[- ]level|middle|senior|sr\.?|staff|principal|lead|head of|director|vp)\b`)
)

var seniorityNames = map[string]string{
	"intern": "Intern", "junior": "Junior", "jr": "Junior", "jr.": "Junior",
	"mid-level": "Mid-level", "mid level": "Mid-level", "middle": "Mid-level",
	"senior": "Senior", "sr": "Senior", "sr.": "Senior", "staff": "Staff",
	"principal": "Principal", "lead": "Lead", "head of": "Head", "director": "Director", "vp": "VP",
}

// seniorityOf finds a seniority level word in s.
func seniorityOf(s string) string {
	m := seniorityRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return seniorityNames[strings.ToLower(m[1])]
}

func markerKind(marker string) sectionKind {
	m := strings.ToLower(strings.TrimSpace(marker))
	switch {
	case strings.HasPrefix(m, "must"), strings.HasPrefix(m, "required"), strings.HasPrefix(m, "requirements"),
		strings.HasPrefix(m, "minimum"):
		return secMust
	case strings.HasPrefix(m, "nice"), strings.HasPrefix(m, "preferred"), strings.HasPrefix(m, "bonus"), m == "pluses":
		return secNice
	case strings.Contains(m, "responsibilities"), m == "duties", strings.HasPrefix(m, "what you"):
		return secResp
	}
	return secQualifications
}

// extractHeuristics runs the explicit and structural tiers plus the title,
// company, seniority and location heuristics.
func extractHeuristics(text string) heuristicJob {
	var h heuristicJob
	h.title, h.company = extractTitle(text)
	h.seniority = seniorityOf(h.title)
	h.location = extractLocation(text)

	cur := secNone
	for _, raw := range strings.Split(text, "\n") {
		line := stripDecoration(raw)
		if line == "" {
			continue
		}
		if m := headingMarkerRe.FindStringSubmatch(line); m != nil {
			cur = markerKind(m[1])
			continue
		}
		if genericHeadRe.MatchString(strings.TrimSpace(raw)) || otherHeadRe.MatchString(line) || isColonHeading(line) {
			cur = secOther
			continue
		}

		locs := inlineMarkerRe.FindAllStringSubmatchIndex(line, -1)
		if len(locs) == 0 {
			h.addLine(cur, line, false)
			continue
		}
		if pre := strings.TrimSpace(line[:locs[0][0]]); pre != "" {
			h.addLine(cur, pre, false)
		}
		for i, loc := range locs {
			kind := markerKind(line[loc[2]:loc[3]])
			end := len(line)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			body := strings.TrimSpace(line[loc[1]:end])
			if body == "" {
				cur = kind
				continue
			}
			// inline content runs to the end of its sentence
			if se := sentenceEndRe.FindStringIndex(body); se != nil {
				body = body[:se[0]]
				cur = secNone
			} else {
				cur = kind
			}
			h.addLine(kind, body, true)
		}
	}
	return h
}

func (h *heuristicJob) addLine(kind sectionKind, line string, inline bool) {
	bullet := bulletRe.MatchString(line)
	line = bulletRe.ReplaceAllString(line, "")
	switch kind {
	case secMust:
		h.explicitMust = append(h.explicitMust, splitSkills(line)...)
	case secNice:
		h.explicitNice = append(h.explicitNice, splitSkills(line)...)
	case secResp:
		if inline && !bullet {
			for _, part := range strings.Split(line, ";") {
				for _, p := range strings.Split(part, ", ") {
					if p = cleanItem(p); p != "" {
						h.responsibilities = append(h.responsibilities, p)
					}
				}
			}
			return
		}
		if p := cleanItem(line); p != "" {
			h.responsibilities = append(h.responsibilities, p)
		}
	case secQualifications:
		items := splitSkills(line)
		if niceCue.MatchString(line) {
			h.structuralNice = append(h.structuralNice, items...)
		} else {
			h.structuralMust = append(h.structuralMust, items...)
		}
	}
}

// splitSkills turns a requirement line into skill items: lead-ins stripped, split on
// commas, semicolons and conjunctions, long fragments reduced to known terms.
func splitSkills(line string) []string {
	line = niceCue.ReplaceAllString(line, "")
	line = copulaRe.ReplaceAllString(strings.TrimSpace(line), "")
	line = strings.Trim(strings.TrimSpace(line), "()")
	line = leadInRe.ReplaceAllString(line, "")
	var out []string
	for _, part := range splitRe.Split(line, -1) {
		part = leadInRe.ReplaceAllString(cleanItem(part), "")
		part = cleanItem(part)
		if part == "" {
			continue
		}
		words := len(strings.Fields(part))
		if words <= 4 {
			out = append(out, part)
			continue
		}
		hits := findKnownTerms(part)
		if len(hits) > 0 {
			sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
			for _, hit := range hits {
				out = append(out, hit.term)
			}
			continue
		}
		if words <= 8 {
			out = append(out, part)
		}
	}
	return out
}

// extractTitle tries, in order: an explicit label, a markdown heading naming a
// role, then the first sentence of an early line naming a role.
func extractTitle(text string) (title, company string) {
	if m := labelRe.FindStringSubmatch(text); m != nil {
		if t, c := splitTitle(firstSentence(m[1])); t != "" {
			return t, c
		}
	}
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if !genericHeadRe.MatchString(l) {
			continue
		}
		l = stripDecoration(l)
		if headingMarkerRe.MatchString(l) || !roleRe.MatchString(l) || len(strings.Fields(l)) > 12 {
			continue
		}
		return splitTitle(l)
	}
	seen := 0
	for _, line := range lines {
		l := stripDecoration(line)
		if l == "" {
			continue
		}
		if seen++; seen > 5 {
			break
		}
		l = firstSentence(l)
		if i := inlineMarkerRe.FindStringIndex(l); i != nil {
			l = strings.TrimSpace(l[:i[0]])
		}
		l = hiringRe.ReplaceAllString(l, "")
		t, c := splitTitle(l)
		if t == "" || !roleRe.MatchString(t) || len(strings.Fields(t)) > 8 {
			continue
		}
		return t, c
	}
	return "", ""
}

// splitTitle separates "Role at Company", "Role - Company" and "Role | Company".
func splitTitle(s string) (title, company string) {
	s = cleanItem(s)
	parts := titleSplitRe.Split(s, 2)
	title = cleanItem(parts[0])
	if len(parts) == 2 {
		company = cleanItem(parts[1])
		if !roleRe.MatchString(title) && roleRe.MatchString(company) {
			title, company = company, title
		}
		if len(strings.Fields(company)) > 6 {
			company = ""
		}
	}
	return title, company
}

func extractLocation(text string) string {
	if m := locRe.FindStringSubmatch(text); m != nil {
		if loc := cleanItem(firstSentence(m[1])); loc != "" {
			return loc
		}
	}
	if m := remoteRe.FindStringSubmatch(text); m != nil {
		w := strings.ToLower(m[1])
		if w == "onsite" {
			w = "on-site"
		}
		return strings.ToUpper(w[:1]) + w[1:]
	}
	return ""
}

func firstSentence(s string) string {
	if loc := sentenceEndRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[:loc[0]])
	}
	return strings.TrimSpace(s)
}

// isColonHeading reports a short line that ends with a colon, like "Benefits:".
func isColonHeading(line string) bool {
	return strings.HasSuffix(line, ":") && len(strings.Fields(line)) <= 6
}

// stripDecoration removes markdown emphasis and heading marks around a line.
func stripDecoration(line string) string {
	l := strings.TrimSpace(line)
	l = strings.TrimLeft(l, "#")
	l = strings.TrimSpace(l)
	l = strings.Trim(l, "*_")
	l = strings.TrimSpace(l)
	return strings.TrimSuffix(strings.TrimSuffix(l, "**"), "__")
}

// cleanItem trims whitespace, bullet glyphs, markdown emphasis and trailing punctuation.
func cleanItem(s string) string {
	s = strings.TrimSpace(s)
	s = bulletRe.ReplaceAllString(s, "")
	s = strings.Trim(s, "*_\"'` \t")
	s = strings.TrimRight(s, ".,;:!")
	return strings.TrimSpace(s)
}
