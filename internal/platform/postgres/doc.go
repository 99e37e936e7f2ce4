// Package postgres provides the PostgreSQL implementation of store.UserStore,
// connection setup through the pgx stdlib driver, and the goose migrations
// that create its schema.
package postgres
