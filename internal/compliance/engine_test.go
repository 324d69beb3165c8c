package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultPolicyConfig())
	require.NoError(t, err)
	return e
}

func intPtr(v int) *int { return &v }

var testReference = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

// TestEvaluate_ChildScenarios walks the canonical denial/grant pair: an
// eight-year-old's voice recording is blocked without verifiable parental
// consent and unblocked with it.
func TestEvaluate_ChildScenarios(t *testing.T) {
	e := newEngine(t)

	t.Run("denied without consent, reason names the missing consent", func(t *testing.T) {
		decision, err := e.Evaluate(EvaluateInput{
			Age:        AgeInput{AgeYears: intPtr(8)},
			Categories: []domain.DataCategory{domain.CategoryVoiceRecording},
			Reference:  testReference,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.BracketChild, decision.Bracket)
		assert.False(t, decision.Allowed)
		assert.Contains(t, decision.DenialReason, "verifiable_parental_consent")
		assert.Contains(t, decision.DenialReason, "voice_recording")
		assert.Equal(t, 90, decision.Retention.MaxRetentionDays)
		assert.Equal(t, domain.TriggerOnExpiry, decision.Retention.DeletionTrigger)
	})

	t.Run("allowed once consent is granted", func(t *testing.T) {
		decision, err := e.Evaluate(EvaluateInput{
			Age:        AgeInput{AgeYears: intPtr(8)},
			Categories: []domain.DataCategory{domain.CategoryVoiceRecording},
			Granted:    []domain.ConsentType{domain.ConsentVerifiableParental},
			Reference:  testReference,
		})
		require.NoError(t, err)

		assert.True(t, decision.Allowed)
		assert.Empty(t, decision.DenialReason)
	})
}

// TestEvaluate_AdultNeedsNoConsent: adults with no grants at all sail
// through, and the decision carries standard retention.
func TestEvaluate_AdultNeedsNoConsent(t *testing.T) {
	e := newEngine(t)

	decision, err := e.Evaluate(EvaluateInput{
		Age:        AgeInput{AgeYears: intPtr(25)},
		Categories: []domain.DataCategory{domain.CategoryVoiceRecording, domain.CategoryContactInfo},
		Reference:  testReference,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.BracketAdult, decision.Bracket)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.RequiredConsents)
	assert.Equal(t, domain.TriggerOnAccountClosure, decision.Retention.DeletionTrigger)
}

// TestEvaluate_ExactThirteen: age 13 is TEEN, teen consent rules apply, and
// contact info stays blocked until assent is granted.
func TestEvaluate_ExactThirteen(t *testing.T) {
	e := newEngine(t)

	input := EvaluateInput{
		Age:        AgeInput{AgeYears: intPtr(13)},
		Categories: []domain.DataCategory{domain.CategoryContactInfo},
		Reference:  testReference,
	}

	decision, err := e.Evaluate(input)
	require.NoError(t, err)
	assert.Equal(t, domain.BracketTeen, decision.Bracket)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.DenialReason, "teen_assent")

	input.Granted = []domain.ConsentType{domain.ConsentTeenAssent}
	decision, err = e.Evaluate(input)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

// TestEvaluate_BirthdateBoundary: a birthdate exactly 13 years before the
// reference lands in TEEN, not CHILD.
func TestEvaluate_BirthdateBoundary(t *testing.T) {
	e := newEngine(t)
	birthdate := testReference.AddDate(-13, 0, 0)

	decision, err := e.Evaluate(EvaluateInput{
		Age:        AgeInput{Birthdate: &birthdate},
		Categories: []domain.DataCategory{domain.CategoryPreferences},
		Reference:  testReference,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BracketTeen, decision.Bracket)
}

// TestEvaluate_Idempotence: identical inputs yield field-for-field equal
// decisions. Compliance decisions must be reproducible for audit.
func TestEvaluate_Idempotence(t *testing.T) {
	e := newEngine(t)
	input := EvaluateInput{
		Age:        AgeInput{AgeYears: intPtr(10)},
		Categories: []domain.DataCategory{domain.CategoryVoiceRecording, domain.CategoryPreferences},
		Granted:    []domain.ConsentType{domain.ConsentParentalNotice},
		Reference:  testReference,
	}

	first, err := e.Evaluate(input)
	require.NoError(t, err)
	second, err := e.Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestEvaluate_DenialNamesHighestPriorityMiss: with several consents
// missing, the reason names the most sensitive category's consent.
func TestEvaluate_DenialNamesHighestPriorityMiss(t *testing.T) {
	e := newEngine(t)

	decision, err := e.Evaluate(EvaluateInput{
		Age:        AgeInput{AgeYears: intPtr(8)},
		Categories: []domain.DataCategory{domain.CategoryPreferences, domain.CategoryUsageAnalytics, domain.CategoryVoiceRecording},
		Reference:  testReference,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.DenialReason, "voice_recording")
}

// TestEvaluate_InputValidation: every invalid input surfaces its taxonomy
// code and never produces a decision.
func TestEvaluate_InputValidation(t *testing.T) {
	e := newEngine(t)
	future := testReference.AddDate(1, 0, 0)

	tests := []struct {
		name  string
		input EvaluateInput
		code  dErrors.Code
	}{
		{
			name:  "no age at all",
			input: EvaluateInput{Categories: []domain.DataCategory{domain.CategoryPreferences}, Reference: testReference},
			code:  dErrors.CodeInvalidAge,
		},
		{
			name: "both age forms",
			input: EvaluateInput{
				Age:       AgeInput{AgeYears: intPtr(8), Birthdate: &future},
				Reference: testReference,
			},
			code: dErrors.CodeInvalidAge,
		},
		{
			name:  "age out of range",
			input: EvaluateInput{Age: AgeInput{AgeYears: intPtr(131)}, Reference: testReference},
			code:  dErrors.CodeInvalidAge,
		},
		{
			name:  "birthdate in the future",
			input: EvaluateInput{Age: AgeInput{Birthdate: &future}, Reference: testReference},
			code:  dErrors.CodeInvalidAge,
		},
		{
			name: "unknown category",
			input: EvaluateInput{
				Age:        AgeInput{AgeYears: intPtr(8)},
				Categories: []domain.DataCategory{domain.DataCategory("gait_signature")},
				Reference:  testReference,
			},
			code: dErrors.CodeUnknownCategory,
		},
		{
			name: "unknown granted consent type",
			input: EvaluateInput{
				Age:       AgeInput{AgeYears: intPtr(8)},
				Granted:   []domain.ConsentType{domain.ConsentType("pinky_promise")},
				Reference: testReference,
			},
			code: dErrors.CodeInvalidConsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := e.Evaluate(tt.input)
			require.Error(t, err)
			assert.Nil(t, decision)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

// TestNewEngine_RejectsNonCompliantPolicy: the facade refuses to exist with
// a policy that retains child data longer than adult data.
func TestNewEngine_RejectsNonCompliantPolicy(t *testing.T) {
	cfg := DefaultPolicyConfig()
	cfg.Retention.ChildRetentionDays = 500

	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPolicyConfig))
}
