// Package common defines sentinel errors and small helpers shared by the
// docsync packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Synchronization errors. Every failed engine operation maps to one of these.
	ErrRemoteUnavailable   = errors.New("remote store unavailable")
	ErrReferenceResolution = errors.New("client reference could not be resolved")
	ErrRemoteWrite         = errors.New("remote write failed")
	ErrInconsistentRecord  = errors.New("local and remote records disagree")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
