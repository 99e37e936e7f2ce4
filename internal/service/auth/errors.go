package auth

import "errors"

// Token decoding errors. Every Decode failure wraps exactly one of these.
var (
	// ErrDecode indicates the token is malformed or its signature does not verify.
	ErrDecode = errors.New("authentication token could not be decoded")

	// ErrExpiredToken indicates expiry checking is on and the exp claim has passed.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrInvalidToken covers every other structural problem, such as a token
	// signed with a different algorithm or a non-numeric time claim.
	ErrInvalidToken = errors.New("invalid authentication token")
)

var (
	// ErrUnsupportedAlgorithm is returned by NewCodec for algorithms outside the HMAC family.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

	// errAlgorithmMismatch is raised from the key func so it can be told apart
	// from a bad signature.
	errAlgorithmMismatch = errors.New("token algorithm does not match configuration")
)
