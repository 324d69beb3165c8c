package testutil

import (
	"net/http"
	"time"

	id "cubby/pkg/domain"
	"cubby/pkg/requestcontext"
)

// AsParent stamps the request with an authenticated parent ID, simulating
// what the auth middleware does for requests carrying a valid token.
func AsParent(req *http.Request, parentID id.ParentID) *http.Request {
	return req.WithContext(requestcontext.WithParentID(req.Context(), parentID))
}

// AtTime pins the request clock, simulating the request-time middleware.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID stamps a request ID onto the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
