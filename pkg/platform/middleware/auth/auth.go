// Package auth gates parent-scoped endpoints behind a Bearer access token.
package auth

import (
	"net/http"
	"strings"

	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/httputil"
	"cubby/pkg/requestcontext"
)

// Verifier validates an access token and returns the parent it belongs to.
// Implemented by internal/token; kept as an interface here so transport
// code never depends on the JWT library.
type Verifier interface {
	ParentIDFromToken(tokenString string) (id.ParentID, error)
}

// RequireParent returns middleware that rejects requests without a valid
// Bearer token and injects the authenticated parent ID into the context.
func RequireParent(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			parentID, err := verifier.ParentIDFromToken(tokenString)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			ctx := requestcontext.WithParentID(r.Context(), parentID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
