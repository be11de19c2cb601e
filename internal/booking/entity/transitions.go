package entity

// Transition is one legal edge of the booking state machine.
type Transition struct {
	From Status
	To   Status
}

// forward lists the non-cancellation edges. Every non-terminal state may
// also move to CANCELLED.
var forward = []Transition{
	{StatusBookingPending, StatusPaymentProcessing},
	{StatusPaymentProcessing, StatusPaymentSuccess},
	{StatusPaymentSuccess, StatusUnderReview},
	{StatusUnderReview, StatusApproved},
	{StatusUnderReview, StatusRejected},
	{StatusApproved, StatusAssigned},
	{StatusAssigned, StatusOutForDelivery},
	{StatusOutForDelivery, StatusRentalActive},
	{StatusRentalActive, StatusExtensionRequested},
	{StatusRentalActive, StatusReturnRequested},
	{StatusExtensionRequested, StatusRentalActive},
	{StatusReturnRequested, StatusInspectionPending},
	{StatusInspectionPending, StatusRefundProcessing},
	{StatusInspectionPending, StatusCompleted},
	{StatusRefundProcessing, StatusCompleted},
}

var adjacency = buildAdjacency()

func buildAdjacency() map[Status][]Status {
	adj := make(map[Status][]Status, len(allStatuses))
	for _, t := range forward {
		adj[t.From] = append(adj[t.From], t.To)
	}
	for _, s := range allStatuses {
		if !s.Terminal() {
			adj[s] = append(adj[s], StatusCancelled)
		}
	}
	return adj
}

// Transitions returns the full transition table.
func Transitions() []Transition {
	var out []Transition
	for _, from := range allStatuses {
		for _, to := range adjacency[from] {
			out = append(out, Transition{From: from, To: to})
		}
	}
	return out
}

// NextStatuses lists the states reachable from s in one step.
func NextStatuses(s Status) []Status {
	next := adjacency[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, s := range adjacency[from] {
		if s == to {
			return true
		}
	}
	return false
}
