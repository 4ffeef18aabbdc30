package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	domainlistings "staybook/internal/domain/listings"
	domainnotifications "staybook/internal/domain/notifications"
)

// Handler turns booking events into stored in-app notifications for the
// host and the guest. It consumes the same stream the outbox worker
// publishes; a failure here never reaches the booking flow.
type Handler struct {
	Listings      domainlistings.Repository
	Notifications domainnotifications.Store
	Logger        *slog.Logger
}

type envelope struct {
	Type string           `json:"type"`
	Data bookingEventData `json:"data"`
}

type bookingEventData struct {
	BookingID string `json:"BookingID"`
	ListingID string `json:"ListingID"`
	GuestID   string `json:"GuestID"`
	Range     struct {
		CheckIn  time.Time `json:"CheckIn"`
		CheckOut time.Time `json:"CheckOut"`
	} `json:"Range"`
}

func (h *Handler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt envelope
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("dropping malformed event", "topic", msg.Topic, "error", err)
		}
		return nil
	}

	switch evt.Type {
	case "booking.created.v1":
		return h.onCreated(ctx, evt.Data)
	case "booking.confirmed.v1":
		return h.onConfirmed(ctx, evt.Data)
	case "booking.cancelled.v1":
		return h.onCancelled(ctx, evt.Data)
	default:
		return nil
	}
}

func (h *Handler) onCreated(ctx context.Context, data bookingEventData) error {
	listing, title := h.resolveListing(ctx, data.ListingID)

	if listing != nil {
		ownerMsg := fmt.Sprintf("Your listing %q has been booked from %s to %s",
			title, data.Range.CheckIn.Format("2006-01-02"), data.Range.CheckOut.Format("2006-01-02"))
		if err := h.store(ctx, string(listing.Owner), domainnotifications.TypeBookingReceived, "New Booking Received", ownerMsg, data); err != nil {
			return err
		}
	}

	guestMsg := fmt.Sprintf("Your booking for %s has been confirmed!", title)
	return h.store(ctx, data.GuestID, domainnotifications.TypeBookingMade, "Booking Confirmed", guestMsg, data)
}

func (h *Handler) onConfirmed(ctx context.Context, data bookingEventData) error {
	_, title := h.resolveListing(ctx, data.ListingID)
	msg := fmt.Sprintf("Your booking for %s has been confirmed by the host!", title)
	return h.store(ctx, data.GuestID, domainnotifications.TypeBookingConfirmed, "Booking Confirmed", msg, data)
}

func (h *Handler) onCancelled(ctx context.Context, data bookingEventData) error {
	listing, title := h.resolveListing(ctx, data.ListingID)
	if listing == nil {
		return nil
	}
	msg := fmt.Sprintf("A booking for %q (%s to %s) was cancelled",
		title, data.Range.CheckIn.Format("2006-01-02"), data.Range.CheckOut.Format("2006-01-02"))
	return h.store(ctx, string(listing.Owner), domainnotifications.TypeBookingCancelled, "Booking Cancelled", msg, data)
}

func (h *Handler) resolveListing(ctx context.Context, id string) (*domainlistings.Listing, string) {
	listing, err := h.Listings.ByID(ctx, domainlistings.ListingID(id))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("listing lookup failed", "listing_id", id, "error", err)
		}
		return nil, "your stay"
	}
	return listing, listing.Title
}

func (h *Handler) store(ctx context.Context, recipient string, typ domainnotifications.Type, title, message string, data bookingEventData) error {
	if recipient == "" {
		return nil
	}
	return h.Notifications.Add(ctx, domainnotifications.Notification{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Type:      typ,
		Title:     title,
		Message:   message,
		BookingID: data.BookingID,
		ListingID: data.ListingID,
		CreatedAt: time.Now().UTC(),
	})
}
