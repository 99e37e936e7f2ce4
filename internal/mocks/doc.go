// Package mocks provides shared test doubles for interfaces defined in store
// and service/auth. UserStore is a testify mock; PasswordHasher records its
// calls and can be steered through function fields.
package mocks
