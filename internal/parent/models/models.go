// Package models holds parent account types and their validation rules.
package models

import (
	"net/mail"
	"strings"
	"time"

	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

// Parent is a guardian account. A parent owns child profiles and is the only
// principal allowed to grant or revoke consent for them.
type Parent struct {
	ID           id.ParentID
	Email        string // normalized lowercase
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that the address is well-formed.
func ValidateEmail(email string) error {
	if email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	return nil
}

// ValidatePassword enforces length bounds on a cleartext password.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return dErrors.Newf(dErrors.CodeValidation, "password must be at most %d characters", maxPasswordLength)
	}
	return nil
}

// DisplayNameFromEmail derives a default display name from the local part of
// an email address.
func DisplayNameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}

// NewParent builds a validated parent account. Password hashing happens in
// the service; this takes the finished hash.
func NewParent(parentID id.ParentID, email, passwordHash string, createdAt time.Time) (*Parent, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	return &Parent{
		ID:           parentID,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  DisplayNameFromEmail(email),
		CreatedAt:    createdAt,
	}, nil
}
