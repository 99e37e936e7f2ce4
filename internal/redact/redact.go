// Package redact scrubs credentials from strings and request payloads before
// they reach a log record. API error logs include the request body and query
// string, so anything that looks like a password, a token or a secret must be
// masked on the way out.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
)

type pattern struct {
	re          *regexp.Regexp
	placeholder string
}

// patterns are applied in order; JWTs go first so the key pattern does not
// swallow half a token.
var patterns = []pattern{
	{
		re:          regexp.MustCompile(`(?i)(postgres|postgresql|mysql|redis|mongodb)://[^@\s]+@`),
		placeholder: RedactedCredentialPlaceholder,
	},
	{
		re:          regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		placeholder: RedactedJWTPlaceholder,
	},
	{
		re:          regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`),
		placeholder: RedactedCredentialPlaceholder,
	},
	{
		re:          regexp.MustCompile(`(?i)(api[_-]?key|secret|access[_-]?key)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		placeholder: RedactedKeyPlaceholder,
	},
}

// sensitiveKeys are matched as substrings of lower-cased payload keys.
var sensitiveKeys = []string{"password", "passwd", "secret", "token", "authorization", "api_key", "apikey"}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, p := range patterns {
		result = p.re.ReplaceAllString(result, p.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

// IsSensitiveKey reports whether a payload key names a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Value returns a copy of a decoded request payload with credential-looking
// keys masked. Maps and slices are walked recursively; strings go through String.
// The input is never modified.
func Value(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return String(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if IsSensitiveKey(k) {
				out[k] = RedactionPlaceholder
				continue
			}
			out[k] = Value(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Value(item)
		}
		return out
	case url.Values:
		out := make(url.Values, len(val))
		for k, items := range val {
			if IsSensitiveKey(k) {
				out[k] = []string{RedactionPlaceholder}
				continue
			}
			cleaned := make([]string, len(items))
			for i, item := range items {
				cleaned[i] = String(item)
			}
			out[k] = cleaned
		}
		return out
	default:
		return v
	}
}
