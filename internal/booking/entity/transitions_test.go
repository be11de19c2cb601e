package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHappyPathIsLegal(t *testing.T) {
	path := []Status{
		StatusBookingPending,
		StatusPaymentProcessing,
		StatusPaymentSuccess,
		StatusUnderReview,
		StatusApproved,
		StatusAssigned,
		StatusOutForDelivery,
		StatusRentalActive,
		StatusExtensionRequested,
		StatusRentalActive,
		StatusReturnRequested,
		StatusInspectionPending,
		StatusRefundProcessing,
		StatusCompleted,
	}
	for i := 1; i < len(path); i++ {
		assert.True(t, CanTransition(path[i-1], path[i]), "%s -> %s", path[i-1], path[i])
	}
	assert.True(t, CanTransition(StatusInspectionPending, StatusCompleted))
	assert.True(t, CanTransition(StatusUnderReview, StatusRejected))
}

func TestIllegalEdges(t *testing.T) {
	assert.False(t, CanTransition(StatusBookingPending, StatusCompleted))
	assert.False(t, CanTransition(StatusApproved, StatusApproved))
	assert.False(t, CanTransition(StatusExtensionRequested, StatusReturnRequested))
	assert.False(t, CanTransition(StatusPaymentSuccess, StatusApproved))
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusRejected} {
		assert.True(t, s.Terminal())
		assert.Empty(t, NextStatuses(s), "%s", s)
	}
}

func TestEveryNonTerminalCanCancel(t *testing.T) {
	for _, s := range Statuses() {
		if s.Terminal() {
			continue
		}
		assert.True(t, CanTransition(s, StatusCancelled), "%s", s)
	}
}

func TestTransitionsTableConsistent(t *testing.T) {
	table := Transitions()
	require.NotEmpty(t, table)
	for _, tr := range table {
		assert.True(t, tr.From.Valid())
		assert.True(t, tr.To.Valid())
		assert.False(t, tr.From.Terminal())
		assert.True(t, CanTransition(tr.From, tr.To))
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("APPROVED")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)

	_, err = ParseStatus("approved")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
