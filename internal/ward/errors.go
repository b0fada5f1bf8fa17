package ward

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState marks a broken ownership invariant, such as attaching
	// an organ that already has a location.
	ErrInvalidState = errors.New("invalid ward state")
	// ErrBedOccupied is returned when a patient is generated into a bed that
	// already holds one.
	ErrBedOccupied = errors.New("bed already occupied")
)

// InvalidStateError describes a rejected organ relocation.
type InvalidStateError struct {
	Op      string
	OrganID string
	Reason  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s organ %s: %s", e.Op, e.OrganID, e.Reason)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

func invalidState(op string, organ *Organ, format string, args ...any) error {
	id := ""
	if organ != nil {
		id = organ.id
	}
	return &InvalidStateError{Op: op, OrganID: id, Reason: fmt.Sprintf(format, args...)}
}
