// Package store defines the user persistence contract used by authentication
// and the login endpoint, plus an in-memory implementation. The Postgres
// implementation lives in internal/platform/postgres.
package store
