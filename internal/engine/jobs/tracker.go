package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ApplicationStatus is the lifecycle status of a tracked application.
type ApplicationStatus string

const (
	StatusSaved     ApplicationStatus = "saved"
	StatusApplied   ApplicationStatus = "applied"
	StatusInterview ApplicationStatus = "interview"
	StatusOffer     ApplicationStatus = "offer"
	StatusRejected  ApplicationStatus = "rejected"
)

// Application is a tailored application recorded for a user.
type Application struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"user_id"`
	RunID     string            `json:"run_id,omitempty"`
	Title     string            `json:"title"`
	Company   string            `json:"company,omitempty"`
	Location  string            `json:"location,omitempty"`
	URL       string            `json:"url,omitempty"`
	Status    ApplicationStatus `json:"status"`
	Score     float64           `json:"score"`
	Label     string            `json:"label,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

// ApplicationFilter selects applications to list.
type ApplicationFilter struct {
	UserID string
	Status string
	Limit  int
}

// ApplicationUpdate changes status and/or notes of one application.
type ApplicationUpdate struct {
	ID     int64
	UserID string
	Status string
	Notes  string
}

// ApplicationStore records tailored applications.
type ApplicationStore interface {
	AddApplication(ctx context.Context, a Application) (int64, error)
	ListApplications(ctx context.Context, f ApplicationFilter) ([]Application, int, error)
	UpdateApplication(ctx context.Context, u ApplicationUpdate) error
}

// ErrApplicationNotFound is returned when an update matches no row.
var ErrApplicationNotFound = errors.New("application not found")

// ParseStatus validates a status name. Empty means saved.
func ParseStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StatusSaved, nil
	}
	switch st {
	case StatusSaved, StatusApplied, StatusInterview, StatusOffer, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q (valid: saved, applied, interview, offer, rejected)", s)
}

// NewApplication builds the tracker record for a pipeline result.
func NewApplication(userID, url string, res *Result) Application {
	a := Application{UserID: userID, URL: url, Status: StatusSaved}
	if res == nil {
		return a
	}
	a.RunID = res.RunID
	if res.Job != nil {
		a.Title = res.Job.Title
		a.Company = res.Job.Company
		a.Location = res.Job.Location
	}
	if res.Match != nil {
		a.Score = res.Match.Score
		a.Label = res.Match.Label
	}
	return a
}

// prepareApplication validates a and fills status and timestamps.
func prepareApplication(a *Application) error {
	if strings.TrimSpace(a.UserID) == "" {
		return errors.New("application: user_id is required")
	}
	if strings.TrimSpace(a.Title) == "" {
		return errors.New("application: title is required")
	}
	st, err := ParseStatus(string(a.Status))
	if err != nil {
		return fmt.Errorf("application: %w", err)
	}
	a.Status = st
	now := time.Now().UTC().Format(time.RFC3339)
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

// prepareUpdate validates u, normalising its status.
func prepareUpdate(u *ApplicationUpdate) error {
	if u.ID <= 0 {
		return errors.New("application update: id is required")
	}
	if u.Status == "" && u.Notes == "" {
		return errors.New("application update: at least one of status or notes must be provided")
	}
	if u.Status != "" {
		st, err := ParseStatus(u.Status)
		if err != nil {
			return fmt.Errorf("application update: %w", err)
		}
		u.Status = string(st)
	}
	return nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 50
	case n > 100:
		return 100
	}
	return n
}
