package domain

import dErrors "cubby/pkg/domain-errors"

// ConsentMethod records how a consent grant was captured. COPPA recognizes a
// fixed set of acceptable verification mechanisms; only some of them are
// strong enough to back verifiable parental consent.
type ConsentMethod string

const (
	// MethodCreditCard is a small charge against a payment card.
	MethodCreditCard ConsentMethod = "credit_card"
	// MethodSignedForm is a signed consent form returned by mail or scan.
	MethodSignedForm ConsentMethod = "signed_form"
	// MethodVideoVerification is a live video call with the parent.
	MethodVideoVerification ConsentMethod = "video_verification"
	// MethodKnowledgeBasedID is a knowledge-based identity quiz.
	MethodKnowledgeBasedID ConsentMethod = "knowledge_based_id"
	// MethodEmailPlus is email consent plus a delayed confirmation, valid
	// only for the lighter consent tiers.
	MethodEmailPlus ConsentMethod = "email_plus"
)

// methodVerifiable is the single source of truth for the method set and
// which methods satisfy the verifiable-parental-consent bar.
var methodVerifiable = map[ConsentMethod]bool{
	MethodCreditCard:        true,
	MethodSignedForm:        true,
	MethodVideoVerification: true,
	MethodKnowledgeBasedID:  true,
	MethodEmailPlus:         false,
}

// ParseConsentMethod constructs a ConsentMethod from external input.
func ParseConsentMethod(s string) (ConsentMethod, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidConsent, "consent method cannot be empty")
	}
	m := ConsentMethod(s)
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidConsent, "unknown consent method: "+s)
	}
	return m, nil
}

// IsValid checks if the method is one of the supported enum values.
func (m ConsentMethod) IsValid() bool {
	_, ok := methodVerifiable[m]
	return ok
}

// Verifiable reports whether the method is strong enough to back
// verifiable parental consent.
func (m ConsentMethod) Verifiable() bool {
	return methodVerifiable[m]
}

// Satisfies reports whether a grant captured with this method can carry the
// given consent type.
func (m ConsentMethod) Satisfies(t ConsentType) bool {
	if t == ConsentVerifiableParental {
		return m.Verifiable()
	}
	return m.IsValid()
}

// String returns the string representation of the method.
func (m ConsentMethod) String() string {
	return string(m)
}
