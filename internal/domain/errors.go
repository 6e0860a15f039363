package domain

import "errors"

// Domain errors
var (
	// Session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionFull       = errors.New("session is at capacity")
	ErrSessionNotFull    = errors.New("session is not full, book directly")
	ErrWaitlistDisabled  = errors.New("waitlist is not enabled for this session")
	ErrCapacityExhausted = errors.New("no seats remaining")

	// Booking errors
	ErrBookingNotFound      = errors.New("booking not found")
	ErrAlreadyConfirmed     = errors.New("booking already confirmed")
	ErrInvalidBookingStatus = errors.New("invalid booking status transition")
	ErrNotBooked            = errors.New("user has no seat on this session")

	// Waitlist errors
	ErrAlreadyOnWaitlist = errors.New("user already on waitlist")
	ErrNoPendingEntries  = errors.New("no pending waitlist entries")

	// Validation errors
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrInvalidBookingID = errors.New("invalid booking id")
	ErrUnauthenticated  = errors.New("caller identity required")

	// Persistence errors
	ErrTxConflict = errors.New("transaction conflict, retries exhausted")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrBookingNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidSessionID) ||
		errors.Is(err, ErrInvalidBookingID)
}

// IsPreconditionError checks if the error is a policy precondition failure
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrSessionFull) ||
		errors.Is(err, ErrSessionNotFull) ||
		errors.Is(err, ErrWaitlistDisabled) ||
		errors.Is(err, ErrNotBooked) ||
		errors.Is(err, ErrAlreadyOnWaitlist) ||
		errors.Is(err, ErrAlreadyConfirmed)
}
