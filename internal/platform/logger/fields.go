package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Field is one entry of an ordered log context.
type Field struct {
	Key   string
	Value any
}

// Fields is an insertion-ordered set of key/value pairs rendered as
// "[key: value] [key: value]". Setting an existing key replaces its value in place.
type Fields struct {
	items     []Field
	Delimiter string
}

// NewFields returns an empty Fields using a single space as delimiter.
func NewFields() *Fields {
	return &Fields{Delimiter: " "}
}

// Set adds or replaces key, keeping its first insertion position.
func (f *Fields) Set(key string, value any) *Fields {
	for i := range f.items {
		if f.items[i].Key == key {
			f.items[i].Value = value
			return f
		}
	}
	f.items = append(f.items, Field{Key: key, Value: value})
	return f
}

// Get returns the value stored for key.
func (f *Fields) Get(key string) (any, bool) {
	for _, item := range f.items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

// Len reports the number of fields.
func (f *Fields) Len() int {
	return len(f.items)
}

// Items returns the fields in insertion order.
func (f *Fields) Items() []Field {
	out := make([]Field, len(f.items))
	copy(out, f.items)
	return out
}

// String renders the fields as "[key: value]" segments.
func (f *Fields) String() string {
	parts := make([]string, 0, len(f.items))
	for _, item := range f.items {
		parts = append(parts, fmt.Sprintf("[%s: %v]", item.Key, item.Value))
	}
	return strings.Join(parts, f.Delimiter)
}

// Attrs converts the fields to slog attributes, preserving order.
func (f *Fields) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(f.items))
	for _, item := range f.items {
		attrs = append(attrs, slog.Any(item.Key, item.Value))
	}
	return attrs
}
