package file

import "errors"

var (
	// ErrInvalidName indicates an empty or path-escaping object name.
	ErrInvalidName = errors.New("invalid filename")
	// ErrInvalidCode indicates a malformed access code.
	ErrInvalidCode = errors.New("invalid code format")
	// ErrAlreadyExists signals that an object with the same name is already stored.
	ErrAlreadyExists = errors.New("file already exists")
	// ErrTooLarge signals that the upload exceeds configured limits.
	ErrTooLarge = errors.New("file too large")
	// ErrNotFound signals that the object could not be located.
	ErrNotFound = errors.New("file not found")
	// ErrNotFoundOrInvalidCode is returned when no live record carries the code.
	ErrNotFoundOrInvalidCode = errors.New("file not found or code invalid")
	// ErrNotFoundOnDisk is returned when a record exists but its payload does not.
	ErrNotFoundOnDisk = errors.New("file not found on disk")
	// ErrIO wraps failures of the underlying store or catalog persistence.
	ErrIO = errors.New("storage i/o failure")
	// ErrTokenTaken is returned by a catalog asked to store a live code twice.
	ErrTokenTaken = errors.New("code already in use")
)
