package booking

import (
	"context"
	"errors"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
	domainrange "staybook/internal/domain/shared/daterange"
)

const createBookingKey = "booking.create"

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

type CreateBookingCommand struct {
	CommandID       string
	ListingID       string
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

type CreateBookingResult struct {
	Booking dto.BookingDetail `json:"booking"`
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	TaxRate    float64
}

// Handle runs the availability check and insert inside one unit of work.
// The conflict test itself is pure; holding the fetch, the check and the
// save in a single transaction is what stops two concurrent requests for
// the same dates from both committing.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
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

	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if listing.GuestsLimit > 0 && cmd.Guests > listing.GuestsLimit {
		return nil, domainlistings.ErrGuestsLimit
	}

	active, err := unit.Booking().ActiveByListing(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	result, err := domainbooking.FindConflicts(dr, active)
	if err != nil {
		return nil, err
	}
	if !result.Available {
		return nil, &domainbooking.ConflictError{ListingID: listing.ID, Conflicts: result.Conflicts}
	}

	price, err := domainpricing.Quote(listing.NightlyRate, dr, h.taxRate())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(cmd.CommandID),
		ListingID: listing.ID,
		GuestID:   cmd.GuestID,
		Range:     dr,
		Guests:    cmd.Guests,
		Price:     price,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Booking().Save(ctx, booking); err != nil {
		return nil, err
	}

	pending := booking.PendingEvents()
	booking.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &CreateBookingResult{Booking: dto.MapBookingDetail(booking, listing)}, nil
}

func (h *CreateBookingHandler) taxRate() float64 {
	if h.TaxRate > 0 {
		return h.TaxRate
	}
	return domainpricing.DefaultTaxRate
}

func (h *CreateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
