package digipin

import "errors"

// ValidationError reports caller input the codec cannot accept: a malformed
// code, an out-of-range coordinate or an empty candidate list.
type ValidationError struct {
	Field  string // "pin", "latitude", "longitude" or "candidates"
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
