package entity

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrUnknownStatus  = errors.New("unknown booking status")
	ErrInvalidBooking = errors.New("invalid booking")
)

// Booking is a single rental order and its current lifecycle state.
type Booking struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`

	UserID      string `json:"user_id"`
	UnitID      string `json:"unit_id,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	HandlerID   string `json:"handler_id,omitempty"`
	LastActorID string `json:"last_actor_id,omitempty"`

	RentalStart time.Time `json:"rental_start"`
	RentalEnd   time.Time `json:"rental_end"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	TotalAmount   float64       `json:"total_amount"`
	DepositAmount float64       `json:"deposit_amount"`
	TaxAmount     float64       `json:"tax_amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	Status  Status `json:"status"`
	Version int64  `json:"version"`

	Risk
}

// Risk holds caller-computed trust inputs. They are stored, never derived here.
type Risk struct {
	RiskScore            float64 `json:"risk_score"`
	LocationMismatch     bool    `json:"location_mismatch"`
	KYCVerified          bool    `json:"kyc_verified"`
	PaymentBehaviorScore float64 `json:"payment_behavior_score"`
	RentalHistoryScore   float64 `json:"rental_history_score"`
}

// Draft is a booking creation request.
type Draft struct {
	UserID        string        `json:"user_id"`
	UnitID        string        `json:"unit_id,omitempty"`
	CategoryID    string        `json:"category_id,omitempty"`
	RentalStart   time.Time     `json:"rental_start"`
	RentalEnd     time.Time     `json:"rental_end"`
	TotalAmount   float64       `json:"total_amount"`
	DepositAmount float64       `json:"deposit_amount"`
	TaxAmount     float64       `json:"tax_amount"`
	PaymentStatus PaymentStatus `json:"payment_status,omitempty"`
	Risk
}

func (d Draft) Validate() error {
	var problems []string
	if strings.TrimSpace(d.UserID) == "" {
		problems = append(problems, "user_id is required")
	}
	if d.RentalStart.IsZero() || d.RentalEnd.IsZero() {
		problems = append(problems, "rental_start and rental_end are required")
	} else if !d.RentalEnd.After(d.RentalStart) {
		problems = append(problems, "rental_end must be after rental_start")
	}
	if d.TotalAmount < 0 || d.DepositAmount < 0 || d.TaxAmount < 0 {
		problems = append(problems, "amounts must not be negative")
	}
	if d.PaymentStatus != "" && !d.PaymentStatus.Valid() {
		problems = append(problems, fmt.Sprintf("unknown payment_status %q", d.PaymentStatus))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidBooking, strings.Join(problems, "; "))
	}
	return nil
}

// NewBooking builds a booking in the entry state from a validated draft.
func NewBooking(id, reference string, d Draft, now time.Time) (*Booking, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidBooking)
	}
	pay := d.PaymentStatus
	if pay == "" {
		pay = PaymentUnpaid
	}
	return &Booking{
		ID:            id,
		Reference:     reference,
		UserID:        d.UserID,
		UnitID:        d.UnitID,
		CategoryID:    d.CategoryID,
		RentalStart:   d.RentalStart.UTC(),
		RentalEnd:     d.RentalEnd.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
		TotalAmount:   d.TotalAmount,
		DepositAmount: d.DepositAmount,
		TaxAmount:     d.TaxAmount,
		PaymentStatus: pay,
		Status:        EntryStatus,
		Version:       1,
		Risk:          d.Risk,
	}, nil
}

// Validate checks a stored record read back from either store.
func (b *Booking) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidBooking)
	}
	if !b.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, b.Status)
	}
	if !b.RentalEnd.After(b.RentalStart) {
		return fmt.Errorf("%w: rental_end must be after rental_start", ErrInvalidBooking)
	}
	return nil
}

// Apply moves the booking to next and stamps the write.
func (b *Booking) Apply(next Status, actorID string, now time.Time) {
	b.Status = next
	b.UpdatedAt = now
	if actorID != "" {
		b.LastActorID = actorID
	}
	b.Version++
}

// RentalDays is the rental duration in whole days, rounded up, minimum 1.
func (b *Booking) RentalDays() int {
	days := int(math.Ceil(b.RentalEnd.Sub(b.RentalStart).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// Newer reports whether b supersedes other as the current copy.
func (b *Booking) Newer(other *Booking) bool {
	if !b.UpdatedAt.Equal(other.UpdatedAt) {
		return b.UpdatedAt.After(other.UpdatedAt)
	}
	return b.Version > other.Version
}
