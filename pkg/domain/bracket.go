package domain

// ComplianceBracket is the age-derived category that drives which collection
// rules apply. It is always recomputed from the age that produced it and is
// never stored on its own; a stored bracket would silently go stale the day
// a child turns 13.
type ComplianceBracket string

const (
	// BracketChild covers ages 0-12: COPPA applies in full.
	BracketChild ComplianceBracket = "child"
	// BracketTeen covers ages 13-17: outside COPPA, teen consent rules apply.
	BracketTeen ComplianceBracket = "teen"
	// BracketAdult covers ages 18 and up.
	BracketAdult ComplianceBracket = "adult"
)

// validBrackets is the single source of truth for valid brackets.
var validBrackets = map[ComplianceBracket]bool{
	BracketChild: true,
	BracketTeen:  true,
	BracketAdult: true,
}

// IsValid checks if the bracket is one of the supported enum values.
func (b ComplianceBracket) IsValid() bool {
	return validBrackets[b]
}

// String returns the string representation of the bracket.
func (b ComplianceBracket) String() string {
	return string(b)
}
