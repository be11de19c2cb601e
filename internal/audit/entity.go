package audit

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/booking/entity"
)

// SystemActor marks transitions not initiated by a human admin.
const SystemActor = "system"

var ErrInvalidEntry = errors.New("invalid audit entry")

// Entry is an immutable record of one status transition.
type Entry struct {
	ID             string        `json:"id"`
	BookingID      string        `json:"booking_id"`
	ActorID        string        `json:"actor_id"`
	Action         string        `json:"action"`
	PreviousStatus entity.Status `json:"previous_status"`
	NewStatus      entity.Status `json:"new_status"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	Digest         string        `json:"digest"`
}

// NewEntry validates the fields and seals the entry with its digest.
func NewEntry(id, bookingID, actorID, action string, prev, next entity.Status, notes string, at time.Time) (Entry, error) {
	if actorID == "" {
		actorID = SystemActor
	}
	e := Entry{
		ID:             id,
		BookingID:      bookingID,
		ActorID:        actorID,
		Action:         action,
		PreviousStatus: prev,
		NewStatus:      next,
		Notes:          notes,
		CreatedAt:      at.UTC(),
	}
	if err := e.validate(); err != nil {
		return Entry{}, err
	}
	e.Digest = e.digest()
	return e, nil
}

func (e Entry) validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidEntry)
	case e.BookingID == "":
		return fmt.Errorf("%w: booking_id is required", ErrInvalidEntry)
	case !e.PreviousStatus.Valid() || !e.NewStatus.Valid():
		return fmt.Errorf("%w: unknown status %q -> %q", ErrInvalidEntry, e.PreviousStatus, e.NewStatus)
	case e.CreatedAt.IsZero():
		return fmt.Errorf("%w: created_at is required", ErrInvalidEntry)
	}
	return nil
}

func (e Entry) digest() string {
	fields := []string{
		e.ID,
		e.BookingID,
		e.ActorID,
		e.Action,
		string(e.PreviousStatus),
		string(e.NewStatus),
		e.Notes,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	sum := blake2b.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the entry still matches its digest.
func (e Entry) Verify() bool {
	return e.Digest != "" && e.Digest == e.digest()
}
