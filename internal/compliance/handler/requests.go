package handler

import (
	"time"

	"cubby/internal/compliance"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

const (
	maxCategories = 16
	maxGranted    = 16

	birthdateLayout = "2006-01-02"
)

func parseCategories(raw []string) ([]id.DataCategory, error) {
	if len(raw) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "data_categories must not be empty")
	}
	if len(raw) > maxCategories {
		return nil, dErrors.Newf(dErrors.CodeValidation, "at most %d data_categories per request", maxCategories)
	}
	categories := make([]id.DataCategory, 0, len(raw))
	for _, c := range raw {
		category, err := id.ParseDataCategory(c)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

// EvaluateRequest is the HTTP request body for POST /compliance/evaluate.
// The child's age and consents come from stored records; the caller only
// names the child and the categories it wants to touch.
type EvaluateRequest struct {
	ChildID        string   `json:"child_id"`
	DataCategories []string `json:"data_categories"`

	parsedChildID    id.ChildID
	parsedCategories []id.DataCategory
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	childID, err := id.ParseChildID(r.ChildID)
	if err != nil {
		return err
	}
	r.parsedChildID = childID

	categories, err := parseCategories(r.DataCategories)
	if err != nil {
		return err
	}
	r.parsedCategories = categories
	return nil
}

// ParsedChildID returns the validated child ID.
func (r *EvaluateRequest) ParsedChildID() id.ChildID { return r.parsedChildID }

// ParsedCategories returns the validated data categories.
func (r *EvaluateRequest) ParsedCategories() []id.DataCategory { return r.parsedCategories }

// PreviewRequest is the HTTP request body for POST /compliance/preview.
// Explicit inputs, nothing fetched: exactly one of age_years and birthdate.
type PreviewRequest struct {
	AgeYears        *int     `json:"age_years,omitempty"`
	Birthdate       string   `json:"birthdate,omitempty"` // YYYY-MM-DD
	DataCategories  []string `json:"data_categories"`
	GrantedConsents []string `json:"granted_consents"`

	parsedAge        compliance.AgeInput
	parsedCategories []id.DataCategory
	parsedGranted    []id.ConsentType
}

// Validate validates and parses the request.
func (r *PreviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if r.AgeYears == nil && r.Birthdate == "" {
		return dErrors.New(dErrors.CodeInvalidAge, "one of age_years or birthdate is required")
	}
	if r.AgeYears != nil && r.Birthdate != "" {
		return dErrors.New(dErrors.CodeInvalidAge, "age_years and birthdate are mutually exclusive")
	}
	if r.AgeYears != nil {
		r.parsedAge = compliance.AgeInput{AgeYears: r.AgeYears}
	} else {
		birthdate, err := time.ParseInLocation(birthdateLayout, r.Birthdate, time.UTC)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "birthdate must be formatted YYYY-MM-DD")
		}
		r.parsedAge = compliance.AgeInput{Birthdate: &birthdate}
	}

	categories, err := parseCategories(r.DataCategories)
	if err != nil {
		return err
	}
	r.parsedCategories = categories

	if len(r.GrantedConsents) > maxGranted {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d granted_consents per request", maxGranted)
	}
	granted := make([]id.ConsentType, 0, len(r.GrantedConsents))
	for _, g := range r.GrantedConsents {
		consentType, err := id.ParseConsentType(g)
		if err != nil {
			return err
		}
		granted = append(granted, consentType)
	}
	r.parsedGranted = granted
	return nil
}

// ParsedAge returns the validated age input.
func (r *PreviewRequest) ParsedAge() compliance.AgeInput { return r.parsedAge }

// ParsedCategories returns the validated data categories.
func (r *PreviewRequest) ParsedCategories() []id.DataCategory { return r.parsedCategories }

// ParsedGranted returns the validated granted consent set.
func (r *PreviewRequest) ParsedGranted() []id.ConsentType { return r.parsedGranted }
