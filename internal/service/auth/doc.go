// Package auth issues and verifies JWTs and resolves the principal behind a
// request.
//
// Resolution never fails on a bad credential. A missing, malformed, expired
// or otherwise unusable token yields the anonymous principal together with an
// Outcome naming what went wrong; permission guards turn that into a 401.
package auth
