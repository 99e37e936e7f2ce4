// Package apierr is the API error taxonomy.
//
// Every failure that crosses the HTTP boundary is described by a Kind. A
// Taxonomy maps each Kind to an Entry holding the status code, application
// error code, user-facing hint, operator hint and log severity. The built-in
// entries can be remapped at startup from configuration (errors.overrides).
//
// Handlers and guards return *Error values; anything else that reaches the
// dispatcher is treated as KindInternal and never shown to the caller.
package apierr
