package notification

import (
	"errors"
	"fmt"
	"time"
)

// Type is the severity of a notification.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

var ErrInvalidNotification = errors.New("invalid notification")

// Notification is a message to one user, or to everyone when UserID is empty.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Offline   bool      `json:"offline,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds an unsent notification.
func New(userID string, typ Type, title, message string) Notification {
	return Notification{UserID: userID, Type: typ, Title: title, Message: message}
}

func (n Notification) Validate() error {
	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, n.Type)
	}
	if n.Title == "" && n.Message == "" {
		return fmt.Errorf("%w: title or message is required", ErrInvalidNotification)
	}
	return nil
}

func (n Notification) Broadcast() bool { return n.UserID == "" }

// placeholders is served in place of a listing while the store is unreachable.
func placeholders(now time.Time) []Notification {
	return []Notification{
		{
			ID:        "offline-1",
			Type:      TypeWarning,
			Title:     "Notifications unavailable",
			Message:   "We can't reach the notification service right now. Your updates are safe and will show up once the connection is back.",
			Offline:   true,
			CreatedAt: now,
		},
		{
			ID:        "offline-2",
			Type:      TypeInfo,
			Title:     "Working offline",
			Message:   "Recent booking updates may appear with a delay.",
			Offline:   true,
			CreatedAt: now,
		},
	}
}
