package alarm

import "errors"

var (
	// ErrDuplicateID is returned when an insert names an id that is already registered.
	ErrDuplicateID = errors.New("alarm id already registered")
	// ErrNotFound is returned when an update names an id that is not registered.
	ErrNotFound = errors.New("alarm not found")
	// ErrInvalidRequest is returned for requests with an interval out of range.
	ErrInvalidRequest = errors.New("invalid alarm request")
)
