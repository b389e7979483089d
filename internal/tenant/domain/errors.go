package domain

import "errors"

var (
	ErrMissingID     = errors.New("missing_id")
	ErrMissingName   = errors.New("missing_name")
	ErrMissingDomain = errors.New("missing_domain")
	ErrMissingKeys   = errors.New("missing_keys")

	// ErrConflict signals an id or domain uniqueness violation on add.
	ErrConflict = errors.New("tenant_conflict")

	// ErrNotFound signals an absent tenant where absence is an error for the
	// caller (admin surface). Directory reads report absence as nil, nil.
	ErrNotFound = errors.New("tenant_not_found")
)

// IsValidationError reports whether err is one of the add/update input
// errors.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrMissingID),
		errors.Is(err, ErrMissingName),
		errors.Is(err, ErrMissingDomain),
		errors.Is(err, ErrMissingKeys):
		return true
	default:
		return false
	}
}
