package models

import "strings"

// SanitizeKeySegment escapes the key delimiter in user-controlled segments
// so an identifier containing ':' cannot collide with an adjacent bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// RequestKey builds the bucket key for a per-IP class limit.
func RequestKey(class EndpointClass, ip string) string {
	return "rl:" + string(class) + ":" + SanitizeKeySegment(ip)
}

// QuotaKey builds the bucket key for a child's daily interaction quota.
func QuotaKey(childID string) string {
	return "quota:child:" + SanitizeKeySegment(childID)
}

// LockoutKey builds the lockout key for a login identifier.
func LockoutKey(identifier string) string {
	return "lockout:" + SanitizeKeySegment(identifier)
}
