package jobs

import (
	"strings"
)

// Style selects a formatting convention for generated documents. It never
// changes which facts are included.
type Style string

const (
	StyleModern    Style = "modern"
	StyleClassic   Style = "classic"
	StyleMinimal   Style = "minimal"
	StyleExecutive Style = "executive"
	StyleCreative  Style = "creative"
)

// Styles lists the supported styles.
var Styles = []Style{StyleModern, StyleClassic, StyleMinimal, StyleExecutive, StyleCreative}

// stylePolicy is the formatting convention behind a Style.
type stylePolicy struct {
	heading   func(string) string
	bullet    string
	separator string // between contact fields and in experience header lines
	skillSep  string
	tone      string // prompt guidance for connective prose
}

var stylePolicies = map[Style]stylePolicy{
	StyleModern: {
		heading:   func(s string) string { return "## " + s },
		bullet:    "• ",
		separator: " | ",
		skillSep:  " · ",
		tone:      "confident, direct and contemporary",
	},
	StyleClassic: {
		heading:   func(s string) string { return strings.ToUpper(s) + "\n" + strings.Repeat("-", len(s)) },
		bullet:    "- ",
		separator: ", ",
		skillSep:  ", ",
		tone:      "formal and traditional",
	},
	StyleMinimal: {
		heading:   func(s string) string { return s },
		bullet:    "- ",
		separator: " / ",
		skillSep:  ", ",
		tone:      "plain, concise and understated",
	},
	StyleExecutive: {
		heading:   func(s string) string { return strings.ToUpper(s) },
		bullet:    "▪ ",
		separator: " | ",
		skillSep:  " | ",
		tone:      "authoritative, strategic and results-oriented",
	},
	StyleCreative: {
		heading:   func(s string) string { return "=== " + s + " ===" },
		bullet:    "→ ",
		separator: " ~ ",
		skillSep:  " • ",
		tone:      "warm, energetic and distinctive",
	},
}

// ParseStyle resolves a style name. Empty means def (or modern when def is empty);
// unknown names are a validation error.
func ParseStyle(name string, def Style) (Style, error) {
	s := Style(strings.ToLower(strings.TrimSpace(name)))
	if s == "" {
		s = def
	}
	if s == "" {
		s = StyleModern
	}
	if _, ok := stylePolicies[s]; !ok {
		return "", validationErr("style", "unknown style %q (want modern, classic, minimal, executive or creative)", name)
	}
	return s, nil
}

func policyFor(s Style) stylePolicy {
	if p, ok := stylePolicies[s]; ok {
		return p
	}
	return stylePolicies[StyleModern]
}
