package handler

import (
	"strings"
	"time"

	"cubby/internal/children/models"
	dErrors "cubby/pkg/domain-errors"
)

// birthdateLayout is the wire format: date precision only, no time of day.
const birthdateLayout = "2006-01-02"

// RegisterChildRequest is the HTTP request body for POST /children.
type RegisterChildRequest struct {
	Nickname  string `json:"nickname"`
	Birthdate string `json:"birthdate"` // YYYY-MM-DD

	parsedBirthdate time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterChildRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Nickname = strings.TrimSpace(r.Nickname)
	if err := models.ValidateNickname(r.Nickname); err != nil {
		return err
	}

	if r.Birthdate == "" {
		return dErrors.New(dErrors.CodeValidation, "birthdate is required")
	}
	birthdate, err := time.ParseInLocation(birthdateLayout, r.Birthdate, time.UTC)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "birthdate must be formatted YYYY-MM-DD")
	}
	r.parsedBirthdate = birthdate

	return nil
}

// ParsedBirthdate returns the validated birthdate.
func (r *RegisterChildRequest) ParsedBirthdate() time.Time {
	return r.parsedBirthdate
}
