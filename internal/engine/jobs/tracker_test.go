package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ApplicationStatus
		ok   bool
	}{
		{"", StatusSaved, true},
		{"applied", StatusApplied, true},
		{" Interview ", StatusInterview, true},
		{"OFFER", StatusOffer, true},
		{"rejected", StatusRejected, true},
		{"ghosted", "", false},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewApplication(t *testing.T) {
	res := &Result{
		RunID: "run-1",
		Job:   &ParsedJob{Title: "Senior Backend Engineer", Company: "Acme Corp", Location: "Remote"},
		Match: &MatchResult{Score: 0.88, Label: LabelExcellent},
	}
	a := NewApplication("u1", "https://example.com/job", res)
	assert.Equal(t, Application{
		UserID:   "u1",
		RunID:    "run-1",
		Title:    "Senior Backend Engineer",
		Company:  "Acme Corp",
		Location: "Remote",
		URL:      "https://example.com/job",
		Status:   StatusSaved,
		Score:    0.88,
		Label:    LabelExcellent,
	}, a)

	assert.Equal(t, Application{UserID: "u1", Status: StatusSaved}, NewApplication("u1", "", nil))
}

func TestPrepareApplication(t *testing.T) {
	a := Application{UserID: "u1", Title: "Engineer", Status: "Applied"}
	assert.NoError(t, prepareApplication(&a))
	assert.Equal(t, StatusApplied, a.Status)
	assert.NotEmpty(t, a.CreatedAt)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)

	assert.Error(t, prepareApplication(&Application{Title: "Engineer"}))
	assert.Error(t, prepareApplication(&Application{UserID: "u1"}))
	assert.Error(t, prepareApplication(&Application{UserID: "u1", Title: "Engineer", Status: "lost"}))
}

func TestPrepareUpdate(t *testing.T) {
	u := ApplicationUpdate{ID: 1, Status: "OFFER"}
	assert.NoError(t, prepareUpdate(&u))
	assert.Equal(t, "offer", u.Status)

	assert.Error(t, prepareUpdate(&ApplicationUpdate{Status: "offer"}))
	assert.Error(t, prepareUpdate(&ApplicationUpdate{ID: 1}))
	assert.Error(t, prepareUpdate(&ApplicationUpdate{ID: 1, Status: "lost"}))
	assert.NoError(t, prepareUpdate(&ApplicationUpdate{ID: 1, Notes: "called back"}))
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{-1: 50, 0: 50, 1: 1, 75: 75, 100: 100, 101: 100, 1000: 100} {
		assert.Equal(t, want, clampLimit(in), "limit %d", in)
	}
}
