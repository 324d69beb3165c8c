package compliance

import (
	"time"

	"cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

// Age sanity bounds. Ages outside this range are caller errors, not data.
const (
	MinAgeYears = 0
	MaxAgeYears = 130
)

// AgeClassifier maps a raw age or a birthdate to the compliance bracket.
// This is pure domain logic - no I/O, no side effects.
type AgeClassifier struct{}

// Classify maps whole years of age to a bracket.
//
// Boundary policy is COPPA-literal: exactly 13 is TEEN (the statute protects
// "under 13"), exactly 18 is ADULT.
//
// Errors: CodeInvalidAge when ageYears is outside [0, 130].
func (AgeClassifier) Classify(ageYears int) (domain.ComplianceBracket, error) {
	if ageYears < MinAgeYears || ageYears > MaxAgeYears {
		return "", dErrors.Newf(dErrors.CodeInvalidAge, "age must be between %d and %d, got %d", MinAgeYears, MaxAgeYears, ageYears)
	}
	switch {
	case ageYears < 13:
		return domain.BracketChild, nil
	case ageYears < 18:
		return domain.BracketTeen, nil
	default:
		return domain.BracketAdult, nil
	}
}

// ClassifyFromBirthdate derives the age at the reference date and classifies
// it. Whole-years-elapsed semantics: a birthday counts on the exact
// anniversary date, not before, so a child born 2013-06-01 is 12 on
// 2026-05-31 and 13 on 2026-06-01.
//
// Errors: CodeInvalidAge when birthdate is after the reference date or the
// derived age exceeds the sanity bound.
func (c AgeClassifier) ClassifyFromBirthdate(birthdate, reference time.Time) (domain.ComplianceBracket, error) {
	age, err := AgeAt(birthdate, reference)
	if err != nil {
		return "", err
	}
	return c.Classify(age)
}

// AgeAt computes whole years elapsed between birthdate and reference.
// Calendar dates are compared in UTC; time-of-day is ignored.
func AgeAt(birthdate, reference time.Time) (int, error) {
	by, bm, bd := birthdate.UTC().Date()
	ry, rm, rd := reference.UTC().Date()

	if by > ry || (by == ry && (bm > rm || (bm == rm && bd > rd))) {
		return 0, dErrors.New(dErrors.CodeInvalidAge, "birthdate cannot be in the future")
	}

	age := ry - by
	// The anniversary has not arrived yet this year.
	if rm < bm || (rm == bm && rd < bd) {
		age--
	}
	if age > MaxAgeYears {
		return 0, dErrors.Newf(dErrors.CodeInvalidAge, "derived age %d exceeds sanity bound %d", age, MaxAgeYears)
	}
	return age, nil
}
