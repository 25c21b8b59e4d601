package filedrop

import "errors"

var (
	// ErrNotFound is returned when a record or blob is not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when the admin secret does not match
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnsupported is returned when the deployed schema lacks the column an operation needs
	ErrUnsupported = errors.New("not supported by schema")
)
