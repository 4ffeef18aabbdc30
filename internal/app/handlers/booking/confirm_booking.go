package booking

import (
	"context"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

const confirmBookingKey = "booking.confirm"

type ConfirmBookingCommand struct {
	BookingID string
	ActorID   string
	ActorRole string
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

type ConfirmBookingResult struct {
	BookingID        string `json:"booking_id"`
	Status           string `json:"status"`
	AlreadyConfirmed bool   `json:"already_confirmed"`
}

// ConfirmBookingHandler handles the host-side confirmation of a pending
// booking. Repeated confirmations report AlreadyConfirmed instead of
// failing, matching the endpoint's idempotent contract.
type ConfirmBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*ConfirmBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}
	if string(listing.Owner) != cmd.ActorID && cmd.ActorRole != RoleAdmin {
		return nil, ErrNotAllowed
	}

	changed, err := booking.Confirm(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := unit.Booking().Save(ctx, booking); err != nil {
			return nil, err
		}
		pending := booking.PendingEvents()
		booking.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
			return nil, err
		}
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &ConfirmBookingResult{
		BookingID:        string(booking.ID),
		Status:           string(booking.Status),
		AlreadyConfirmed: !changed,
	}, nil
}

func (h *ConfirmBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[ConfirmBookingCommand, *ConfirmBookingResult] = (*ConfirmBookingHandler)(nil)
