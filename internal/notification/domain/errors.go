package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the record id does not exist.
	ErrNotFound = errors.New("notification_not_found")

	// ErrImmutableRecord is returned on any edit attempt against a SENT record.
	ErrImmutableRecord = errors.New("notification_immutable")

	// ErrDuplicateNotification indicates a conditional create hit the cycle
	// uniqueness constraint. The scheduler swallows it; it never reaches callers.
	ErrDuplicateNotification = errors.New("notification_duplicate")

	// ErrInvalidStatusTransition is returned when a manual edit asks for a
	// status change the lifecycle does not allow.
	ErrInvalidStatusTransition = errors.New("notification_invalid_status_transition")

	// ErrUpdateConflict is returned when a manual edit loses the race against
	// the delivery worker: the record changed status between load and write.
	// The caller must reload and decide again.
	ErrUpdateConflict = errors.New("notification_update_conflict")
)

// DeliveryError wraps a mailer failure. It is recorded on the record and
// drives retry accounting; ProcessDue never returns it to the caller.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
