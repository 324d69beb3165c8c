// Package device summarizes the client device from the User-Agent header.
// The summary ends up in security audit events for parent logins, where
// "new device" is a meaningful signal.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"cubby/pkg/requestcontext"
)

// DeviceInfo parses the User-Agent and stores a compact description in the
// context. Unparseable agents produce an empty description, never an error.
func DeviceInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		desc := Describe(r.Header.Get("User-Agent"))
		if desc != "" {
			r = r.WithContext(requestcontext.WithDevice(r.Context(), desc))
		}
		next.ServeHTTP(w, r)
	})
}

// Describe reduces a raw User-Agent to "browser on os", the only level of
// detail the audit trail keeps.
func Describe(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)

	name, _ := ua.Browser()
	os := ua.OS()

	parts := make([]string, 0, 2)
	if name != "" {
		parts = append(parts, name)
	}
	if os != "" {
		parts = append(parts, os)
	}
	if len(parts) == 0 {
		if ua.Bot() {
			return "bot"
		}
		return ""
	}
	return strings.Join(parts, " on ")
}
