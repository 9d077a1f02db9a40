package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermKey(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"REST APIs", "rest api"},
		{"Golang", "Go"},
		{"Postgres", "PostgreSQL"},
		{"k8s", "Kubernetes"},
		{"Node.js", "nodejs"},
		{"Amazon Web Services", "AWS"},
		{"CI/CD", "continuous integration"},
		{"Machine Learning", "ML"},
		{"Microservice", "microservices"},
	}
	for _, tt := range tests {
		t.Run(tt.a+"="+tt.b, func(t *testing.T) {
			assert.Equal(t, termKey(tt.b), termKey(tt.a))
		})
	}
}

func TestTermKeyDistinct(t *testing.T) {
	assert.NotEqual(t, termKey("Java"), termKey("JavaScript"))
	assert.NotEqual(t, termKey("C"), termKey("C++"))
	assert.NotEqual(t, termKey("C#"), termKey("C++"))
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"apis":       "api",
		"services":   "service",
		"libraries":  "library",
		"classes":    "class",
		"status":     "status",
		"analysis":   "analysis",
		"building":   "build",
		"deployed":   "deploy",
		"aws":        "aws",
		"c++":        "c++",
		"node.js":    "node.js",
		"kubernetes": "kubernete",
	}
	for in, want := range tests {
		assert.Equal(t, want, stem(in), "stem(%q)", in)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"c++", "c#", "node.js", "and", "go"}, tokenize("C++, C#, Node.js and Go."))
}

func TestContainsPhrase(t *testing.T) {
	assert.True(t, containsPhrase("built rest api serv", "rest api"))
	assert.False(t, containsPhrase("built restapi serv", "rest api"))
	assert.False(t, containsPhrase("anything", ""))
}

func TestFindKnownTerms(t *testing.T) {
	text := "We use Go, PostgreSQL and Kubernetes. Experience with REST APIs is a plus; go ahead and apply."
	var terms []string
	for _, h := range findKnownTerms(text) {
		terms = append(terms, h.term)
	}
	assert.Contains(t, terms, "Go")
	assert.Contains(t, terms, "PostgreSQL")
	assert.Contains(t, terms, "Kubernetes")
	assert.Contains(t, terms, "REST APIs")
	assert.NotContains(t, terms, "go", "lowercase go is ordinary English")
	assert.NotContains(t, terms, "Postgres", "Postgres must not match inside PostgreSQL")
}
