package jobserver

import (
	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
)

// ApplicationTailorInput is the input for application_tailor.
type ApplicationTailorInput struct {
	UserID  string        `json:"user_id,omitempty" jsonschema:"Owner of the stored profile; required unless profile is given, and for tracking"`
	JobSpec string        `json:"job_spec,omitempty" jsonschema:"Raw job posting text (plain text or pasted HTML)"`
	JobURL  string        `json:"job_url,omitempty" jsonschema:"URL of the job posting, fetched when job_spec is empty"`
	Profile *jobs.Profile `json:"profile,omitempty" jsonschema:"Inline master profile; overrides the stored one"`
	Style   string        `json:"style,omitempty" jsonschema:"Document style: modern (default), classic, minimal, executive, creative"`
	Track   bool          `json:"track,omitempty" jsonschema:"Record the application in the tracker (requires user_id)"`
}

// ApplicationTailorOutput is the output of application_tailor. On a generation
// failure Job and Match are filled, Documents is empty and Error explains why.
type ApplicationTailorOutput struct {
	RunID         string                   `json:"run_id"`
	Job           *jobs.ParsedJob          `json:"job,omitempty"`
	Match         *jobs.MatchResult        `json:"match,omitempty"`
	Documents     *jobs.GeneratedDocuments `json:"documents,omitempty"`
	ApplicationID int64                    `json:"application_id,omitempty"`
	Warnings      []string                 `json:"warnings,omitempty"`
	Error         string                   `json:"error,omitempty"`
	Retryable     bool                     `json:"retryable,omitempty"`
}

// JobSpecParseInput is the input for job_spec_parse.
type JobSpecParseInput struct {
	JobSpec string `json:"job_spec,omitempty" jsonschema:"Raw job posting text"`
	JobURL  string `json:"job_url,omitempty" jsonschema:"URL of the job posting, fetched when job_spec is empty"`
}

// JobMatchScoreInput is the input for job_match_score.
type JobMatchScoreInput struct {
	UserID  string        `json:"user_id,omitempty" jsonschema:"Owner of the stored profile; required unless profile is given"`
	JobSpec string        `json:"job_spec,omitempty" jsonschema:"Raw job posting text"`
	JobURL  string        `json:"job_url,omitempty" jsonschema:"URL of the job posting, fetched when job_spec is empty"`
	Profile *jobs.Profile `json:"profile,omitempty" jsonschema:"Inline master profile; overrides the stored one"`
}

// JobMatchScoreOutput is the output of job_match_score.
type JobMatchScoreOutput struct {
	Job   *jobs.ParsedJob   `json:"job"`
	Match *jobs.MatchResult `json:"match"`
}

// ProfileSaveInput is the input for profile_save.
type ProfileSaveInput struct {
	UserID  string       `json:"user_id" jsonschema:"Owner of the profile"`
	Profile jobs.Profile `json:"profile" jsonschema:"Master profile: contact, summary, skills, experience_snippets, education, certifications"`
}

// ProfileGetInput is the input for profile_get.
type ProfileGetInput struct {
	UserID string `json:"user_id" jsonschema:"Owner of the profile"`
}

// ProfileOutput returns a stored profile.
type ProfileOutput struct {
	UserID  string        `json:"user_id"`
	Profile *jobs.Profile `json:"profile"`
	Message string        `json:"message,omitempty"`
}

// ApplicationListInput is the input for application_list.
type ApplicationListInput struct {
	UserID string `json:"user_id" jsonschema:"Owner of the applications"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status: saved, applied, interview, offer, rejected"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results (default 50, max 100)"`
}

// ApplicationListOutput is the output of application_list.
type ApplicationListOutput struct {
	Applications []jobs.Application `json:"applications"`
	Total        int                `json:"total"`
}

// ApplicationUpdateInput is the input for application_update.
type ApplicationUpdateInput struct {
	UserID string `json:"user_id" jsonschema:"Owner of the application"`
	ID     int64  `json:"id" jsonschema:"Application id from application_list"`
	Status string `json:"status,omitempty" jsonschema:"New status: saved, applied, interview, offer, rejected"`
	Notes  string `json:"notes,omitempty" jsonschema:"Replacement notes"`
}

// ApplicationUpdateOutput is the output of application_update.
type ApplicationUpdateOutput struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}
