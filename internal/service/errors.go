package service

import "errors"

// Service errors. The API layer maps these to HTTP responses.
var (
	// ErrUserExists indicates the requested username is already taken.
	// API layer should map this to HTTP 400 with a field hint.
	ErrUserExists = errors.New("username already taken")

	// ErrInvalidCredentials indicates a username/password pair did not match.
	// Unknown usernames and wrong passwords are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
