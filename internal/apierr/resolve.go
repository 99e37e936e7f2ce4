package apierr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Resolved is an error reduced to everything needed to render a response and
// a log record.
type Resolved struct {
	Entry
	Kind   Kind
	Fields map[string]string
	// Known is false for errors the taxonomy does not recognise.
	Known bool
}

// Resolve classifies err against the taxonomy.
//
// The user hint falls back from the error's own hint to the kind's entry and
// then to the status default message. Unknown errors resolve to the internal
// entry and never expose their text.
func (t *Taxonomy) Resolve(err error) Resolved {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return t.resolveError(apiErr)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return t.resolveError(FromValidation(verrs))
	}

	e := t.Entry(KindInternal)
	if e.UserHint == "" {
		e.UserHint = t.StatusMessage(e.Status)
	}
	return Resolved{Entry: e, Kind: KindInternal}
}

func (t *Taxonomy) resolveError(apiErr *Error) Resolved {
	base := t.Entry(apiErr.Kind)
	out := Resolved{Entry: base, Kind: apiErr.Kind, Fields: apiErr.Fields, Known: true}

	if apiErr.status != 0 {
		out.Status = apiErr.status
	}
	if apiErr.code != 0 {
		out.Code = apiErr.code
	}
	if apiErr.severity != nil {
		out.Severity = *apiErr.severity
	}

	switch {
	case apiErr.Hint != "":
		out.UserHint = apiErr.Hint
	case base.UserHint != "":
		out.UserHint = base.UserHint
	default:
		out.UserHint = t.StatusMessage(out.Status)
	}

	switch {
	case apiErr.LogHint != "":
		out.LogHint = apiErr.LogHint
	case apiErr.Hint != "":
		out.LogHint = apiErr.Hint
	}

	return out
}

// FromValidation converts validator errors into a KindValidation error with
// one message per field.
func FromValidation(verrs validator.ValidationErrors) *Error {
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		if _, seen := fields[name]; !seen {
			names = append(names, name)
		}
		fields[name] = validationTagMessage(fe.Tag())
	}
	return New(KindValidation, "",
		WithFields(fields),
		WithLogHint(fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))),
		WithCause(verrs),
	)
}

// fieldName prefers the JSON name registered on the validator and falls back
// to the lower-cased struct field name.
func fieldName(fe validator.FieldError) string {
	if fe.Field() != "" && fe.Field() != fe.StructField() {
		return fe.Field()
	}
	return strings.ToLower(fe.StructField())
}

// validationTagMessage maps validation tags to user-friendly error messages
func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}
