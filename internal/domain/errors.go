package domain

import "errors"

var (
	// ErrNotFound is returned when a participant, event or certificate does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists signals that a non-revoked certificate already exists for the
	// (participant, event) pair. The application layer attaches the existing identifier
	// so callers can redirect to it instead of retrying.
	ErrAlreadyExists = errors.New("certificate already exists")
	// ErrInvalidState is returned when an issuance precondition is not met, e.g. the
	// participant never registered for the event, or a status transition is not allowed.
	ErrInvalidState = errors.New("invalid state")
	// ErrGenerationFailed covers identifier collision exhaustion and rendering failure
	// after the plain-text fallback also failed.
	ErrGenerationFailed = errors.New("certificate generation failed")
	// ErrForbidden is an authorization failure on download or lifecycle operations.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable marks transient storage failures; callers may retry.
	ErrUnavailable  = errors.New("storage unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("rate limited")
)

// DuplicateError carries the identifier of the certificate that already covers
// the (participant, event) pair, so issuance failures point callers at the
// existing record instead of inviting blind retries.
type DuplicateError struct {
	CertificateID string
}

func (e *DuplicateError) Error() string {
	return "certificate already exists: " + e.CertificateID
}

func (e *DuplicateError) Unwrap() error { return ErrAlreadyExists }
