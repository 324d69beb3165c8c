package domain

import (
	"sort"

	dErrors "cubby/pkg/domain-errors"
)

// DataCategory labels a kind of data the companion may collect about a
// child. The set is closed: an unknown category is rejected at the trust
// boundary, never silently accepted, because dropping one could understate
// the consent a collection operation needs.
type DataCategory string

const (
	// CategoryVoiceRecording covers raw audio and transcripts of the child's
	// speech.
	CategoryVoiceRecording DataCategory = "voice_recording"
	// CategoryContactInfo covers anything that can reach the household:
	// email, phone, address.
	CategoryContactInfo DataCategory = "contact_info"
	// CategoryUsageAnalytics covers interaction counts, session lengths,
	// feature usage.
	CategoryUsageAnalytics DataCategory = "usage_analytics"
	// CategoryPreferences covers the child's chosen name for the bear,
	// favourite stories, volume settings.
	CategoryPreferences DataCategory = "preferences"
)

// categoryTraits is the single source of truth for the category set, its
// ordering, and its sensitivity. Priority 1 is the most sensitive; callers
// that short-circuit on the first missing consent rely on this ordering.
var categoryTraits = map[DataCategory]struct {
	priority  int
	sensitive bool
}{
	CategoryVoiceRecording: {priority: 1, sensitive: true},
	CategoryContactInfo:    {priority: 2, sensitive: true},
	CategoryUsageAnalytics: {priority: 3, sensitive: false},
	CategoryPreferences:    {priority: 4, sensitive: false},
}

// ParseDataCategory constructs a DataCategory from external input.
//
// Errors: returns CodeUnknownCategory when the value is empty or outside the
// closed set; no other errors are expected.
func ParseDataCategory(s string) (DataCategory, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeUnknownCategory, "data category cannot be empty")
	}
	c := DataCategory(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeUnknownCategory, "unknown data category: "+s)
	}
	return c, nil
}

// IsValid checks if the category is one of the supported enum values.
func (c DataCategory) IsValid() bool {
	_, ok := categoryTraits[c]
	return ok
}

// Priority returns the category's declared priority; 1 is most sensitive.
// Unknown categories sort last.
func (c DataCategory) Priority() int {
	if t, ok := categoryTraits[c]; ok {
		return t.priority
	}
	return len(categoryTraits) + 1
}

// Sensitive reports whether the category needs consent beyond the child
// bracket (teens included).
func (c DataCategory) Sensitive() bool {
	return categoryTraits[c].sensitive
}

// String returns the string representation of the category.
func (c DataCategory) String() string {
	return string(c)
}

// AllDataCategories returns the closed category set in priority order.
func AllDataCategories() []DataCategory {
	out := make([]DataCategory, 0, len(categoryTraits))
	for c := range categoryTraits {
		out = append(out, c)
	}
	SortCategoriesByPriority(out)
	return out
}

// SortCategoriesByPriority sorts categories in place, most sensitive first.
// Ties cannot occur: priorities are unique by construction.
func SortCategoriesByPriority(categories []DataCategory) {
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Priority() < categories[j].Priority()
	})
}
