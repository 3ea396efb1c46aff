package files

import "errors"

var (
	// ErrNoPayload is returned when an upload carries no usable file.
	ErrNoPayload = errors.New("no file uploaded")
	// ErrNotFound is returned when no record matches the requested id.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidRecord is returned when a record fails validation on insert.
	ErrInvalidRecord = errors.New("invalid file record")
)
