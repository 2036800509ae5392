// Package apperrors holds the error taxonomy shared by stores, services and transports.
// Store packages wrap these sentinels so callers can classify with errors.Is.
package apperrors

import "errors"

var (
	// ErrValidation indicates malformed input. Not retried.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates an unknown account or deposit.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicate indicates an attempt to create a resource that already exists.
	ErrDuplicate = errors.New("resource already exists")

	// ErrConflict is returned by conditional writes whose predicate did not hold.
	ErrConflict = errors.New("conflict")

	// ErrAlreadySettled is the idempotent outcome of settling a terminal deposit.
	ErrAlreadySettled = errors.New("deposit already settled")

	// ErrPartialFailure marks a settled deposit whose credit could not be applied.
	// It requires out-of-band reconciliation.
	ErrPartialFailure = errors.New("partial failure: reconciliation required")

	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
)
