package handler

import (
	"strings"

	"cubby/internal/parent/models"
	dErrors "cubby/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /parents/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = models.NormalizeEmail(r.Email)
	if err := models.ValidateEmail(r.Email); err != nil {
		return err
	}
	return models.ValidatePassword(r.Password)
}

// LoginRequest is the HTTP request body for POST /parents/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields. Credential checks happen in the service;
// this only rejects obviously malformed input.
func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = models.NormalizeEmail(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(r.Password) == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}
