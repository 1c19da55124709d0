package service

import "errors"

var (
	// ErrInvalidInput is matched by every input rejection, including malformed
	// review identifiers and *ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden indicates the caller does not own the review.
	ErrForbidden = errors.New("forbidden")
)
