package mocks

import "errors"

// ErrPasswordMismatch is returned by PasswordHasher.Compare when ShouldSucceed is false.
var ErrPasswordMismatch = errors.New("password mismatch")

// PasswordHasher implements auth.PasswordHasher for testing.
type PasswordHasher struct {
	// ShouldSucceed determines whether the password comparison should succeed
	ShouldSucceed bool

	CompareFn func(hashedPassword, password string) error
	HashFn    func(password string) (string, error)

	// CompareCalledWith stores the arguments of the last Compare call
	CompareCalledWith struct {
		HashedPassword string
		Password       string
	}
	CompareCallCount int
}

// Compare implements auth.PasswordHasher.
func (m *PasswordHasher) Compare(hashedPassword, password string) error {
	m.CompareCalledWith.HashedPassword = hashedPassword
	m.CompareCalledWith.Password = password
	m.CompareCallCount++

	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if m.ShouldSucceed {
		return nil
	}
	return ErrPasswordMismatch
}

// Hash implements auth.PasswordHasher. The default returns "hashed:" + password.
func (m *PasswordHasher) Hash(password string) (string, error) {
	if m.HashFn != nil {
		return m.HashFn(password)
	}
	return "hashed:" + password, nil
}
