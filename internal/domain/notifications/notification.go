package notifications

import (
	"context"
	"time"
)

type Type string

const (
	TypeBookingReceived  Type = "booking_received"
	TypeBookingMade      Type = "booking_made"
	TypeBookingConfirmed Type = "booking_confirmed"
	TypeBookingCancelled Type = "booking_cancelled"
)

// Notification is an in-app message for a host or guest. Delivery is
// fire-and-forget: nothing in the booking flow waits on it.
type Notification struct {
	ID        string
	Recipient string
	Type      Type
	Title     string
	Message   string
	BookingID string
	ListingID string
	Read      bool
	CreatedAt time.Time
}

type Store interface {
	Add(ctx context.Context, n Notification) error
	ByRecipient(ctx context.Context, recipient string) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
}
