package registration

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("registration not found")

	// Submission validation
	ErrMissingField          = errors.New("missing required field")
	ErrTeamSizeRange         = errors.New("team size out of range")
	ErrParticipantsMalformed = errors.New("participants payload is malformed")
	ErrParticipantCount      = errors.New("participant count does not match team size")
	ErrParticipantIncomplete = errors.New("first participant is incomplete")
	ErrAttachmentMissing     = errors.New("payment screenshot missing")
	ErrInvalidStatus         = errors.New("invalid status")

	// Attachment checks
	ErrFileTooLarge         = errors.New("file too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// Storage
	ErrDuplicateID = errors.New("registration id already exists")
)

// ErrNoInlineAttachment is returned when a record's payment screenshot is not
// held inline, so there are no bytes to serve.
var ErrNoInlineAttachment = fmt.Errorf("%w: payment screenshot not stored inline", ErrNotFound)

// ValidationError carries a user-facing message for a rejected input.
// Reason is one of the sentinel errors above.
type ValidationError struct {
	Reason  error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Reason }

// Invalid builds a ValidationError.
func Invalid(reason error, message string) error {
	return &ValidationError{Reason: reason, Message: message}
}
