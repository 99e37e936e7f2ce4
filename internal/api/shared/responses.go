package shared

import (
	"encoding/json"
	"net/http"
)

// EncodeJSON encodes data before anything is written, so a caller can still
// choose another response when encoding fails.
func EncodeJSON(data any) ([]byte, error) {
	return json.Marshal(data)
}

// RespondWithRawJSON writes an already encoded JSON document with the given
// status code.
func RespondWithRawJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(payload, '\n'))
}
