package participation

import "errors"

// Operation errors. Handlers map these to HTTP statuses; they are never
// collapsed into a generic failure.
var (
	ErrEventNotFound  = errors.New("event not found")
	ErrRecordNotFound = errors.New("attendance record not found")

	// ErrAlreadyRegistered covers re-join after any prior outcome, including a
	// disapproved registration: the path back is ReinstateRegistration, not a
	// second join.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrAlreadyRecorded   = errors.New("timestamp already recorded")

	ErrEventFull     = errors.New("event has reached its slot capacity")
	ErrEventInactive = errors.New("event is not accepting registrations")
	ErrNotEligible   = errors.New("user is not eligible for this event")
	ErrNotRegistered = errors.New("registration is not approved")

	ErrTimeRecordIncomplete = errors.New("time-in and time-out must both be recorded")

	ErrReasonRequired = errors.New("a disapproval reason is required")
	ErrInvalidReason  = errors.New("disapproval reason is not in the accepted list")
)
