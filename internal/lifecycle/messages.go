package lifecycle

import (
	"fmt"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/booking/entity"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/notification"
)

// XPPerDay is the loyalty accrual per rental day on completion.
const XPPerDay = 10

const (
	ActionStatusChange = "status change"
	ActionOverride     = "administrative override"
)

type message struct {
	typ   notification.Type
	title string
	body  string
}

var statusMessages = map[entity.Status]message{
	entity.StatusApproved: {
		typ:   notification.TypeSuccess,
		title: "Booking Approved",
		body:  "Your booking has been approved and is being prepared.",
	},
	entity.StatusOutForDelivery: {
		typ:   notification.TypeSuccess,
		title: "Rider On The Way",
		body:  "Your equipment is out for delivery.",
	},
	entity.StatusCompleted: {
		typ:   notification.TypeSuccess,
		title: "Rental Complete",
		body:  "Thank you for renting with us.",
	},
	entity.StatusRejected: {
		typ:   notification.TypeError,
		title: "Booking Not Approved",
		body:  "Your booking could not be approved.",
	},
}

func statusNotification(b *entity.Booking) notification.Notification {
	m, ok := statusMessages[b.Status]
	if !ok {
		m = message{
			typ:   notification.TypeInfo,
			title: "Booking Update",
			body:  fmt.Sprintf("Booking %s status updated to %s", b.Reference, b.Status),
		}
	}
	return notification.New(b.UserID, m.typ, m.title, m.body)
}

func bookedNotification(b *entity.Booking) notification.Notification {
	return notification.New(b.UserID, notification.TypeSuccess, "Booking Received",
		fmt.Sprintf("Booking %s has been received and is pending payment.", b.Reference))
}

func pointsNotification(userID string, earned, total int) notification.Notification {
	return notification.New(userID, notification.TypeSuccess, "Loyalty Points",
		fmt.Sprintf("You earned %d XP. Total: %d XP.", earned, total))
}
