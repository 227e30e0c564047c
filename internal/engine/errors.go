package engine

import (
	"errors"

	"campushub/internal/repo"
)

// Domain error taxonomy. Every one of these is an expected, caller-recoverable
// outcome; the engine has no fatal error class. Storage-constraint violations
// that race past a precondition check are folded into the same set so raw
// store errors never reach a caller.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrRegistrationClosed = errors.New("registration closed")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrEventFull          = errors.New("event full")
	ErrNotRegistered      = errors.New("not registered")
	ErrAlreadyCheckedIn   = errors.New("already checked in")
	ErrCheckInRequired    = errors.New("check-in required")
	ErrAlreadySubmitted   = errors.New("feedback already submitted")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("already exists")
	ErrAccountHasEvents   = errors.New("account still owns events")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrAccountNotFound),
		errors.Is(err, repo.ErrEventNotFound),
		errors.Is(err, repo.ErrOrganizationNotFound),
		errors.Is(err, repo.ErrRegistrationNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrWrongOrganization):
		return ErrForbidden
	case errors.Is(err, repo.ErrRegistrationClosed):
		return ErrRegistrationClosed
	case errors.Is(err, repo.ErrDuplicateRegistration):
		return ErrAlreadyRegistered
	case errors.Is(err, repo.ErrEventFull):
		return ErrEventFull
	case errors.Is(err, repo.ErrDuplicateCheckIn):
		return ErrAlreadyCheckedIn
	case errors.Is(err, repo.ErrDuplicateFeedback):
		return ErrAlreadySubmitted
	case errors.Is(err, repo.ErrDuplicateOrganization),
		errors.Is(err, repo.ErrDuplicateAccount):
		return ErrConflict
	case errors.Is(err, repo.ErrAccountHasEvents):
		return ErrAccountHasEvents
	default:
		return err
	}
}
