// Package service contains the application use cases that sit between the
// HTTP handlers and the stores: creating accounts and checking credentials
// for the login endpoint. Token handling lives in service/auth.
package service
