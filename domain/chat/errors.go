package chat

import "errors"

// Error classes surfaced to the originating session. Services wrap these
// with fmt.Errorf("%w: ...") so callers can classify with errors.Is.
var (
	// ErrValidation marks a request rejected before any persistence
	// attempt (missing required field, malformed payload).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced user, group or message id that does
	// not resolve.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized marks a non-admin attempting an admin-only group
	// operation, or a non-privileged user attempting group creation.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrPersistence marks an underlying store failure. Logged server
	// side, surfaced to the originating session as a generic failure.
	ErrPersistence = errors.New("persistence failure")
)
