package apierr

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/phrazzld/apiview/internal/config"
	"github.com/phrazzld/apiview/internal/platform/logger"
)

// Entry is the canonical description of one failure class.
type Entry struct {
	Status   int
	Code     int
	UserHint string
	LogHint  string
	Severity slog.Level
}

// Taxonomy maps kinds to entries. It is built once at startup and only read
// afterwards.
type Taxonomy struct {
	entries  map[Kind]Entry
	messages map[int]string
}

// statusMessages are the fallback hints used when neither the error nor its
// kind supplies one.
var statusMessages = map[int]string{
	http.StatusNotFound:            "not found",
	http.StatusBadRequest:          "bad request",
	http.StatusForbidden:           "permission denied",
	http.StatusInternalServerError: "internal server error",
}

// DefaultTaxonomy returns the built-in entries. Client errors log at warn,
// internal errors at error. Application codes equal the HTTP status.
func DefaultTaxonomy() *Taxonomy {
	entries := map[Kind]Entry{
		KindInternal:         entry(http.StatusInternalServerError, "internal error", slog.LevelError),
		KindBadRequest:       entry(http.StatusBadRequest, "invalid request body", slog.LevelWarn),
		KindParams:           entry(http.StatusBadRequest, "invalid request params", slog.LevelWarn),
		KindValidation:       entry(http.StatusUnprocessableEntity, "validation failed", slog.LevelWarn),
		KindUnauthorized:     entry(http.StatusUnauthorized, "unauthorized", slog.LevelWarn),
		KindForbidden:        entry(http.StatusForbidden, "permission denied", slog.LevelWarn),
		KindNotFound:         entry(http.StatusNotFound, "not found", slog.LevelWarn),
		KindMethodNotAllowed: entry(http.StatusMethodNotAllowed, "method not allowed", slog.LevelWarn),
	}

	messages := make(map[int]string, len(statusMessages))
	for status, msg := range statusMessages {
		messages[status] = msg
	}

	return &Taxonomy{entries: entries, messages: messages}
}

func entry(status int, hint string, severity slog.Level) Entry {
	return Entry{
		Status:   status,
		Code:     status,
		UserHint: hint,
		LogHint:  hint,
		Severity: severity,
	}
}

// NewTaxonomy builds the default taxonomy and applies operator overrides.
func NewTaxonomy(cfg config.ErrorsConfig) (*Taxonomy, error) {
	return DefaultTaxonomy().WithOverrides(cfg.Overrides)
}

// WithOverrides returns a copy of t with the given per-kind overrides applied.
// Zero-valued override fields keep the current value. Unknown kind names are
// rejected so that typos in configuration fail at startup.
func (t *Taxonomy) WithOverrides(overrides map[string]config.ErrorOverride) (*Taxonomy, error) {
	out := &Taxonomy{
		entries:  make(map[Kind]Entry, len(t.entries)),
		messages: make(map[int]string, len(t.messages)),
	}
	for k, e := range t.entries {
		out.entries[k] = e
	}
	for s, m := range t.messages {
		out.messages[s] = m
	}

	// Sorted so the first reported error is deterministic.
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind, ok := ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown error kind %q in overrides", name)
		}
		ov := overrides[name]
		e := out.entries[kind]
		if ov.Status != 0 {
			e.Status = ov.Status
		}
		if ov.Code != 0 {
			e.Code = ov.Code
		}
		if ov.UserHint != "" {
			e.UserHint = ov.UserHint
		}
		if ov.LogHint != "" {
			e.LogHint = ov.LogHint
		}
		if ov.Severity != "" {
			level, err := logger.ParseLevel(ov.Severity)
			if err != nil {
				return nil, fmt.Errorf("override %q: %w", name, err)
			}
			e.Severity = level
		}
		out.entries[kind] = e
	}

	return out, nil
}

// Entry returns the entry for k. Unknown kinds resolve to the internal entry.
func (t *Taxonomy) Entry(k Kind) Entry {
	if e, ok := t.entries[k]; ok {
		return e
	}
	return t.entries[KindInternal]
}

// StatusMessage returns the default hint for an HTTP status, or "".
func (t *Taxonomy) StatusMessage(status int) string {
	return t.messages[status]
}
