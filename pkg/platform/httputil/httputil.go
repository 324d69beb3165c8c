// Package httputil centralizes JSON encoding/decoding and error envelopes for
// HTTP handlers. Handlers call WriteJSON/WriteError instead of touching the
// encoder directly so every endpoint speaks the same envelope:
//
//	{"error": "<code>", "error_description": "<human text>"}
//
// Descriptions are suppressed for 5xx responses so internal details never
// leak to clients; the full error still reaches the logs at the call site.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "cubby/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies to keep decode costs predictable.
const maxBodyBytes = 1 << 20 // 1 MiB

// ErrorResponse is the wire shape of every error this service returns.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// Encoding failures at this point cannot be reported to the client; the
	// status line is already committed.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its HTTP status and writes the error envelope.
// Non-domain errors are treated as internal. Server-side codes omit the
// description so clients only ever see the stable code.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	resp := ErrorResponse{Error: string(code)}
	if dErrors.IsClientError(code) {
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			resp.ErrorDescription = dErr.Message
		}
	}
	WriteJSON(w, status, resp)
}

// Validatable is implemented by request types that validate and parse
// themselves after JSON decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T, runs its validation, and
// writes the error response itself on failure. Handlers check the ok flag and
// return early, keeping decode boilerplate out of every endpoint.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is required"))
			return nil, false
		}
		if logger != nil {
			logger.DebugContext(ctx, "request decode failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is not valid JSON"))
		return nil, false
	}

	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}

	return req, true
}
