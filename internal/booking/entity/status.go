package entity

import "fmt"

// Status is a booking lifecycle state.
type Status string

const (
	StatusBookingPending     Status = "BOOKING_PENDING"
	StatusPaymentProcessing  Status = "PAYMENT_PROCESSING"
	StatusPaymentSuccess     Status = "PAYMENT_SUCCESS"
	StatusUnderReview        Status = "UNDER_REVIEW"
	StatusApproved           Status = "APPROVED"
	StatusRejected           Status = "REJECTED"
	StatusAssigned           Status = "ASSIGNED"
	StatusOutForDelivery     Status = "OUT_FOR_DELIVERY"
	StatusRentalActive       Status = "RENTAL_ACTIVE"
	StatusExtensionRequested Status = "EXTENSION_REQUESTED"
	StatusReturnRequested    Status = "RETURN_REQUESTED"
	StatusInspectionPending  Status = "INSPECTION_PENDING"
	StatusRefundProcessing   Status = "REFUND_PROCESSING"
	StatusCompleted          Status = "COMPLETED"
	StatusCancelled          Status = "CANCELLED"
)

// EntryStatus is the state every new booking starts in.
const EntryStatus = StatusBookingPending

var allStatuses = []Status{
	StatusBookingPending,
	StatusPaymentProcessing,
	StatusPaymentSuccess,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusAssigned,
	StatusOutForDelivery,
	StatusRentalActive,
	StatusExtensionRequested,
	StatusReturnRequested,
	StatusInspectionPending,
	StatusRefundProcessing,
	StatusCompleted,
	StatusCancelled,
}

// Statuses returns every defined status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// ParseStatus validates a caller-supplied status name.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, v)
	}
	return s, nil
}

// PaymentStatus tracks payment capture for a booking.
type PaymentStatus string

const (
	PaymentUnpaid     PaymentStatus = "unpaid"
	PaymentPaid       PaymentStatus = "paid"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentFailed     PaymentStatus = "failed"
	PaymentProcessing PaymentStatus = "processing"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded, PaymentFailed, PaymentProcessing:
		return true
	}
	return false
}
