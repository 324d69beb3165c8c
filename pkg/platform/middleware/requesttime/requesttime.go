// Package requesttime pins a single clock reading to each request.
//
// Every compliance-relevant read of "now" during a request goes through
// requestcontext.Now, so one request sees exactly one time: a child cannot
// flip brackets between the classifier and the retention resolver because
// midnight passed mid-request.
package requesttime

import (
	"net/http"
	"time"

	"cubby/pkg/requestcontext"
)

// RequestTime stores the arrival time in the request context.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
