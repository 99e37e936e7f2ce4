// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, context-scoped loggers, and the ordered "[key: value]"
// request context used by API error logs.
package logger
