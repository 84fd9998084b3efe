package document

import "errors"

var (
	// ErrUnknownFormat is returned for unsupported format names or extensions.
	ErrUnknownFormat = errors.New("unknown document format")
	// ErrNotMapping is returned when a document's root is not a mapping.
	ErrNotMapping = errors.New("document root must be a mapping")
	// ErrNoSources is returned when LoadAll is called without paths.
	ErrNoSources = errors.New("no document sources provided")
)
