package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"

	domainlistings "staybook/internal/domain/listings"
	domainnotifications "staybook/internal/domain/notifications"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/storage/memory"
)

func newHandler(t *testing.T) (*Handler, *memory.NotificationStore) {
	t.Helper()
	listings := memory.NewListingRepository()
	store := memory.NewNotificationStore()
	if err := listings.Save(context.Background(), &domainlistings.Listing{
		ID:          "ls-1",
		Owner:       "owner-1",
		Title:       "Forest cabin",
		GuestsLimit: 2,
		NightlyRate: money.Must(1200, "USD"),
		State:       domainlistings.ListingActive,
	}); err != nil {
		t.Fatal(err)
	}
	return &Handler{Listings: listings, Notifications: store}, store
}

func cloudEvent(t *testing.T, eventType string) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"specversion": "1.0",
		"type":        eventType,
		"data": map[string]any{
			"BookingID": "bk-1",
			"ListingID": "ls-1",
			"GuestID":   "guest-1",
			"Range": map[string]any{
				"CheckIn":  time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
				"CheckOut": time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC),
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &sarama.ConsumerMessage{Topic: "booking.events.v1", Value: payload}
}

func byRecipient(t *testing.T, store *memory.NotificationStore, recipient string) []domainnotifications.Notification {
	t.Helper()
	out, err := store.ByRecipient(context.Background(), recipient)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestBookingCreatedNotifiesBothParties(t *testing.T) {
	h, store := newHandler(t)

	if err := h.Handle(context.Background(), cloudEvent(t, "booking.created.v1")); err != nil {
		t.Fatal(err)
	}

	owner := byRecipient(t, store, "owner-1")
	if len(owner) != 1 || owner[0].Type != domainnotifications.TypeBookingReceived {
		t.Fatalf("owner notifications = %+v", owner)
	}
	if owner[0].BookingID != "bk-1" || owner[0].ListingID != "ls-1" {
		t.Fatalf("owner notification references = %+v", owner[0])
	}

	guest := byRecipient(t, store, "guest-1")
	if len(guest) != 1 || guest[0].Type != domainnotifications.TypeBookingMade {
		t.Fatalf("guest notifications = %+v", guest)
	}
}

func TestBookingConfirmedNotifiesGuest(t *testing.T) {
	h, store := newHandler(t)

	if err := h.Handle(context.Background(), cloudEvent(t, "booking.confirmed.v1")); err != nil {
		t.Fatal(err)
	}

	guest := byRecipient(t, store, "guest-1")
	if len(guest) != 1 || guest[0].Type != domainnotifications.TypeBookingConfirmed {
		t.Fatalf("guest notifications = %+v", guest)
	}
	if len(byRecipient(t, store, "owner-1")) != 0 {
		t.Fatal("owner must not be notified on confirmation")
	}
}

func TestBookingCancelledNotifiesOwner(t *testing.T) {
	h, store := newHandler(t)

	if err := h.Handle(context.Background(), cloudEvent(t, "booking.cancelled.v1")); err != nil {
		t.Fatal(err)
	}

	owner := byRecipient(t, store, "owner-1")
	if len(owner) != 1 || owner[0].Type != domainnotifications.TypeBookingCancelled {
		t.Fatalf("owner notifications = %+v", owner)
	}
	if len(byRecipient(t, store, "guest-1")) != 0 {
		t.Fatal("guest must not be notified on cancellation")
	}
}

func TestUnknownAndMalformedEventsAreSkipped(t *testing.T) {
	h, store := newHandler(t)

	if err := h.Handle(context.Background(), cloudEvent(t, "listing.updated.v1")); err != nil {
		t.Fatal(err)
	}
	if err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("junk")}); err != nil {
		t.Fatal(err)
	}
	if len(byRecipient(t, store, "owner-1"))+len(byRecipient(t, store, "guest-1")) != 0 {
		t.Fatal("no notifications expected")
	}
}
