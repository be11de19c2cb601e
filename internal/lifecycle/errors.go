package lifecycle

import (
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/booking/entity"
)

var (
	ErrBookingNotFound   = errors.New("Booking not found")
	ErrRentalBlocked     = errors.New("rental blocked")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrActorRequired     = errors.New("override requires an actor")
	ErrPersistFailed     = errors.New("booking could not be persisted")
)

// BlockedError carries the eligibility denial reason.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string { return "Rental Blocked: " + e.Reason }

func (e *BlockedError) Is(target error) bool { return target == ErrRentalBlocked }

type IllegalTransitionError struct {
	From entity.Status
	To   entity.Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }
