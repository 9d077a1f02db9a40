package jobs

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Contact is the candidate's contact block.
type Contact struct {
	FullName string   `json:"full_name" validate:"required"`
	Location string   `json:"location,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Email    string   `json:"email" validate:"required,email"`
	Links    []string `json:"links,omitempty"`
}

// Skills groups the candidate's skills.
type Skills struct {
	Core    []string `json:"core" validate:"required,min=1,dive,required"`
	Domains []string `json:"domains,omitempty"`
	Tools   []string `json:"tools,omitempty"`
}

// ExperienceSnippet is one role in the candidate's history.
type ExperienceSnippet struct {
	ID        string   `json:"id"`
	Role      string   `json:"role" validate:"required"`
	Company   string   `json:"company" validate:"required"`
	DateRange string   `json:"date_range,omitempty"`
	Bullets   []string `json:"bullets,omitempty" validate:"dive,required"`
	Tags      []string `json:"tags,omitempty"`
}

// Education is one degree entry.
type Education struct {
	Degree string `json:"degree" validate:"required"`
	School string `json:"school" validate:"required"`
	Year   string `json:"year,omitempty"`
}

// Profile is the master profile. The pipeline only reads it.
type Profile struct {
	Contact            Contact             `json:"contact"`
	Summary            string              `json:"summary,omitempty"`
	Skills             Skills              `json:"skills"`
	ExperienceSnippets []ExperienceSnippet `json:"experience_snippets" validate:"required,min=1,dive"`
	Education          []Education         `json:"education,omitempty" validate:"dive"`
	Certifications     []string            `json:"certifications,omitempty" validate:"dive,required"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// Validate checks the fields generation depends on. Returns a *Error of KindValidation
// naming the first offending field.
func (p *Profile) Validate() error {
	if p == nil {
		return validationErr("profile", "profile is required")
	}
	err := profileValidator().Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return validationErr(trimNamespace(fe.Namespace()), "failed %q check", fe.Tag())
	}
	return validationErr("profile", "%v", err)
}

// SnippetID returns a stable id for snippet i: its own ID or "exp-<i+1>".
func (p *Profile) SnippetID(i int) string {
	if id := strings.TrimSpace(p.ExperienceSnippets[i].ID); id != "" {
		return id
	}
	return "exp-" + strconv.Itoa(i+1)
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// trimNamespace drops the root type name: "Profile.skills.core" -> "skills.core".
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
