package testutils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// DecodeJSON decodes the recorded body into a generic map.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "response is not a JSON object: %s", rec.Body.String())
	return body
}

// RequireJSON asserts the status and JSON content type and returns the body.
func RequireJSON(t *testing.T, rec *httptest.ResponseRecorder, status int) map[string]any {
	t.Helper()
	require.Equal(t, status, rec.Code, "unexpected status, body: %s", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	return DecodeJSON(t, rec)
}
