// Package testutils provides shared helpers for package tests: a capturing
// slog handler, auth fixtures (codec, users, Authorization headers) and
// small HTTP response helpers.
//
//	codec := testutils.NewCodec(t)
//	users := store.NewMemoryUserStore()
//	john := testutils.MustCreateUser(t, users, "john", false)
//	req.Header.Set("Authorization", testutils.AuthHeader(t, codec, john))
package testutils
