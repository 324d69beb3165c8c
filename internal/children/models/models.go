// Package models holds child profile types and their validation rules.
package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

const (
	maxNicknameLength = 64
	maxAgeYears       = 130
)

// Child is a child profile. Profiles carry a nickname rather than a legal
// name: the system stores the minimum needed to apply age rules.
type Child struct {
	ID        id.ChildID
	ParentID  id.ParentID
	Nickname  string
	Birthdate time.Time // date precision, stored UTC
	CreatedAt time.Time
}

// ValidateNickname enforces the 1-64 character bound.
func ValidateNickname(nickname string) error {
	if nickname == "" {
		return dErrors.New(dErrors.CodeValidation, "nickname is required")
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLength {
		return dErrors.Newf(dErrors.CodeValidation, "nickname must be at most %d characters", maxNicknameLength)
	}
	return nil
}

// ValidateBirthdate rejects future dates and ages beyond the supported range.
func ValidateBirthdate(birthdate, now time.Time) error {
	if birthdate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "birthdate is required")
	}
	if birthdate.After(now) {
		return dErrors.New(dErrors.CodeInvalidAge, "birthdate cannot be in the future")
	}
	if birthdate.Before(now.AddDate(-maxAgeYears-1, 0, 0)) {
		return dErrors.Newf(dErrors.CodeInvalidAge, "birthdate implies age over %d", maxAgeYears)
	}
	return nil
}

// NewChild builds a validated child profile.
func NewChild(childID id.ChildID, parentID id.ParentID, nickname string, birthdate, now time.Time) (*Child, error) {
	nickname = strings.TrimSpace(nickname)
	if err := ValidateNickname(nickname); err != nil {
		return nil, err
	}
	if err := ValidateBirthdate(birthdate, now); err != nil {
		return nil, err
	}
	if parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "parent_id is required")
	}
	return &Child{
		ID:        childID,
		ParentID:  parentID,
		Nickname:  nickname,
		Birthdate: birthdate.UTC(),
		CreatedAt: now,
	}, nil
}
