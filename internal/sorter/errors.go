package sorter

import "errors"

var (
	// ErrSourceNotFound is returned when the source directory does not exist.
	ErrSourceNotFound = errors.New("source directory not found")

	// ErrSourceEmpty is returned when the source directory has no entries.
	ErrSourceEmpty = errors.New("source directory is empty")
)
