package jobs

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenize lowercases text and splits it into word tokens.
// Preserves tech suffixes like "c++", "c#", "node.js" by treating + # . as word chars.
func tokenize(text string) []string {
	var out []string
	var word strings.Builder
	flush := func() {
		w := strings.TrimRight(word.String(), ".") // drop trailing dots
		word.Reset()
		if w != "" {
			out = append(out, w)
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// tokenAliases maps single-token spellings to one canonical token.
var tokenAliases = map[string]string{
	"js":           "javascript",
	"ts":           "typescript",
	"golang":       "go",
	"postgres":     "postgresql",
	"psql":         "postgresql",
	"k8s":          "kubernetes",
	"nodejs":       "node.js",
	"node":         "node.js",
	"reactjs":      "react",
	"react.js":     "react",
	"vuejs":        "vue",
	"vue.js":       "vue",
	"nextjs":       "next.js",
	"mongo":        "mongodb",
	"dotnet":       ".net",
	"restful":      "rest",
	"cicd":         "ci/cd",
	"py":           "python",
	"tf":           "terraform",
	"gke":          "kubernetes",
	"eks":          "kubernetes",
	"ml":           "machine-learning",
	"elastic":      "elasticsearch",
	"microservice": "microservices",
}

// phraseAliases maps multi-token spellings (already tokenized) to a canonical token.
var phraseAliases = map[string]string{
	"ci cd":                  "ci/cd",
	"amazon web services":    "aws",
	"google cloud platform":  "gcp",
	"google cloud":           "gcp",
	"machine learning":       "machine-learning",
	"c sharp":                "c#",
	"node js":                "node.js",
	"react native":           "react-native",
	"github actions":         "github-actions",
	"continuous integration": "ci/cd",
	"continuous delivery":    "ci/cd",
	"continuous deployment":  "ci/cd",
	"micro services":         "microservices",
}

// ambiguousTerms collide with ordinary English or single letters; they only match
// declared skills and tags, never free bullet text.
var ambiguousTerms = map[string]bool{
	"go": true, "r": true, "c": true, "d": true, "v": true,
}

// stem strips common English inflections from plain alphabetic tokens.
func stem(tok string) string {
	if len(tok) <= 3 || strings.ContainsAny(tok, "+#.0123456789/-") {
		return tok
	}
	switch {
	case len(tok) > 4 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case strings.HasSuffix(tok, "sses"):
		return tok[:len(tok)-2]
	case strings.HasSuffix(tok, "ss"), strings.HasSuffix(tok, "us"):
		return tok
	case len(tok) > 4 && strings.HasSuffix(tok, "is"):
		return tok
	case strings.HasSuffix(tok, "ing") && len(tok) > 6:
		return tok[:len(tok)-3]
	case strings.HasSuffix(tok, "ed") && len(tok) > 5:
		return tok[:len(tok)-2]
	case strings.HasSuffix(tok, "s"):
		return tok[:len(tok)-1]
	}
	return tok
}

// canonicalTokens tokenizes text, folds aliases and stems, so that "REST APIs",
// "rest api" and "RESTful API" compare equal.
func canonicalTokens(text string) []string {
	toks := tokenize(text)
	out := make([]string, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		if i+2 < len(toks) {
			if c, ok := phraseAliases[toks[i]+" "+toks[i+1]+" "+toks[i+2]]; ok {
				out = append(out, c)
				i += 2
				continue
			}
		}
		if i+1 < len(toks) {
			if c, ok := phraseAliases[toks[i]+" "+toks[i+1]]; ok {
				out = append(out, c)
				i++
				continue
			}
		}
		t := toks[i]
		if c, ok := tokenAliases[t]; ok {
			t = c
		}
		out = append(out, stem(t))
	}
	return out
}

// termKey is the canonical comparison key for a skill or keyword.
func termKey(term string) string {
	return strings.Join(canonicalTokens(term), " ")
}

// containsPhrase checks for a normalized phrase as whole words.
// Example: "rest api" is found in "... rest api ..." but not in "... restapi ...".
func containsPhrase(normalizedText, normalizedPhrase string) bool {
	if normalizedPhrase == "" {
		return false
	}
	return strings.Contains(" "+normalizedText+" ", " "+normalizedPhrase+" ")
}

// knownTerms is the dictionary of salient terms recognised in postings, in display form.
var knownTerms = []string{
	"Go", "Golang", "Python", "Java", "JavaScript", "TypeScript", "Node.js", "React",
	"React Native", "Vue", "Angular", "Next.js", "Ruby", "Ruby on Rails", "PHP", "Laravel",
	"C++", "C#", ".NET", "Rust", "Kotlin", "Swift", "Scala", "Elixir", "Erlang", "Haskell",
	"SQL", "PostgreSQL", "Postgres", "MySQL", "SQLite", "MongoDB", "Redis", "Cassandra",
	"DynamoDB", "Elasticsearch", "ClickHouse", "Kafka", "RabbitMQ", "NATS", "gRPC",
	"GraphQL", "REST", "REST APIs", "APIs", "Microservices", "Distributed systems",
	"Docker", "Kubernetes", "K8s", "Helm", "Terraform", "Ansible", "AWS", "GCP", "Azure",
	"Linux", "Bash", "Git", "CI/CD", "GitHub Actions", "Jenkins", "GitLab CI",
	"Prometheus", "Grafana", "Datadog", "OpenTelemetry", "Observability", "On-call",
	"Machine learning", "Deep learning", "NLP", "LLMs", "PyTorch", "TensorFlow",
	"scikit-learn", "Pandas", "NumPy", "Spark", "Airflow", "dbt", "Snowflake",
	"BigQuery", "Tableau", "Power BI", "Excel", "Django", "Flask", "FastAPI", "Spring",
	"Spring Boot", "HTML", "CSS", "Tailwind", "Figma", "Jira", "Agile", "Scrum",
	"Kanban", "TDD", "Unit testing", "Security", "OAuth", "Networking", "SEO",
	"Salesforce", "HubSpot", "Data analysis", "Data modeling", "System design",
	"Product management", "Project management", "Stakeholder management", "Leadership",
	"Mentoring", "Communication",
}

// caseSensitiveTerms must match with their exact capitalisation.
var caseSensitiveTerms = map[string]bool{"Go": true, "REST": true, "NATS": true, "Spring": true, "Swift": true, "Rust": true}

type termPattern struct {
	display string
	re      *regexp.Regexp
}

var termPatterns = buildTermPatterns(knownTerms)

func buildTermPatterns(terms []string) []termPattern {
	out := make([]termPattern, 0, len(terms))
	for _, t := range terms {
		flags := "(?i)"
		if caseSensitiveTerms[t] {
			flags = ""
		}
		re := regexp.MustCompile(flags + `(?:^|[^\p{L}\p{N}+#.])(` + regexp.QuoteMeta(t) + `)(?:$|[^\p{L}\p{N}+#])`)
		out = append(out, termPattern{display: t, re: re})
	}
	return out
}

// findKnownTerms returns dictionary terms present in text with their byte offsets,
// spelled as they appear in the text.
func findKnownTerms(text string) []termHit {
	var hits []termHit
	for _, tp := range termPatterns {
		loc := tp.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		hits = append(hits, termHit{term: text[loc[2]:loc[3]], pos: loc[2]})
	}
	return hits
}

type termHit struct {
	term string
	pos  int
}
