package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cubby/pkg/domain-errors"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantStatus      int
		wantCode        string
		wantDescription string
	}{
		{
			name:            "missing consent carries the reason",
			err:             dErrors.New(dErrors.CodeMissingConsent, "voice_recording requires verifiable_parental_consent"),
			wantStatus:      http.StatusForbidden,
			wantCode:        "missing_consent",
			wantDescription: "voice_recording requires verifiable_parental_consent",
		},
		{
			name:            "invalid age is a client error",
			err:             dErrors.New(dErrors.CodeInvalidAge, "age must be between 0 and 130"),
			wantStatus:      http.StatusBadRequest,
			wantCode:        "invalid_age",
			wantDescription: "age must be between 0 and 130",
		},
		{
			name:       "internal error hides the message",
			err:        dErrors.New(dErrors.CodeInternal, "pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "plain errors are treated as internal",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeEnvelope(t, w)
			assert.Equal(t, tt.wantCode, body["error"])
			if tt.wantDescription == "" {
				_, present := body["error_description"]
				assert.False(t, present, "server-side errors must not leak detail")
			} else {
				assert.Equal(t, tt.wantDescription, body["error_description"])
			}
		})
	}
}

func TestWriteJSONNilBody(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
}

type stubRequest struct {
	Name string `json:"name"`
}

func (r *stubRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	newRequest := func(body string) (*httptest.ResponseRecorder, *http.Request) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return httptest.NewRecorder(), r
	}

	t.Run("valid body passes validation", func(t *testing.T) {
		w, r := newRequest(`{"name":"bedtime"}`)

		req, ok := DecodeAndPrepare[stubRequest](w, r, nil, r.Context(), "")

		require.True(t, ok)
		assert.Equal(t, "bedtime", req.Name)
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		w, r := newRequest("")

		_, ok := DecodeAndPrepare[stubRequest](w, r, nil, r.Context(), "")

		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeEnvelope(t, w)["error"])
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		w, r := newRequest(`{"name":`)

		_, ok := DecodeAndPrepare[stubRequest](w, r, nil, r.Context(), "")

		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation failure surfaces the domain code", func(t *testing.T) {
		w, r := newRequest(`{"name":""}`)

		_, ok := DecodeAndPrepare[stubRequest](w, r, nil, r.Context(), "")

		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_failed", decodeEnvelope(t, w)["error"])
	})
}
