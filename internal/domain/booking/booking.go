package booking

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

var (
	ErrInvalidGuests            = errors.New("booking: guests count must be positive")
	ErrInvalidState             = errors.New("booking: invalid state transition")
	ErrCancellationWindowClosed = errors.New("booking: cannot cancel a stay that has already started")
	ErrBookingNotFound          = errors.New("booking: not found")
)

type BookingID string

// Status values are stored lowercase for compatibility with historical
// booking records.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Occupying reports whether a booking in this status holds its dates on
// the calendar. Only cancelled bookings release their range.
func (s Status) Occupying() bool {
	return s != StatusCancelled
}

type Booking struct {
	ID        BookingID
	ListingID listings.ListingID
	GuestID   string
	Range     daterange.DateRange
	Guests    int
	Price     pricing.PriceBreakdown
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	// ActiveByListing returns every booking for the listing whose status
	// still occupies the calendar (cancelled bookings excluded).
	ActiveByListing(ctx context.Context, listingID listings.ListingID) ([]*Booking, error)
	// DeleteByListing removes bookings when their listing is destroyed,
	// the only deletion path; cancelled bookings are otherwise retained.
	DeleteByListing(ctx context.Context, listingID listings.ListingID) error
}

type CreateParams struct {
	ID        BookingID
	ListingID listings.ListingID
	GuestID   string
	Range     daterange.DateRange
	Guests    int
	Price     pricing.PriceBreakdown
	CreatedAt time.Time
}

// NewBooking creates a confirmed booking. The marketplace auto-confirms
// at creation; StatusPending exists only for callers that gate on an
// explicit host confirmation step.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.GuestID == "" {
		return nil, errors.New("booking: guest id required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := params.Price.RecalculateTotal(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		ListingID: params.ListingID,
		GuestID:   params.GuestID,
		Range:     params.Range,
		Guests:    params.Guests,
		Price:     params.Price,
		Status:    StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(BookingCreated{
		BookingID: b.ID,
		ListingID: b.ListingID,
		GuestID:   b.GuestID,
		Range:     b.Range,
		Guests:    b.Guests,
		Total:     b.Price.Total,
		At:        now,
	})
	return b, nil
}

// Confirm moves a pending booking to confirmed. Confirming an already
// confirmed booking is reported as unchanged rather than an error so the
// host endpoint stays idempotent.
func (b *Booking) Confirm(now time.Time) (bool, error) {
	switch b.Status {
	case StatusConfirmed:
		return false, nil
	case StatusPending:
	default:
		return false, ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, At: b.UpdatedAt})
	return true, nil
}

// Cancel releases the booking's dates. Only future stays can be
// cancelled; cancelled is terminal.
func (b *Booking) Cancel(now time.Time) error {
	switch b.Status {
	case StatusPending, StatusConfirmed:
	default:
		return ErrInvalidState
	}
	now = now.UTC()
	if !b.Range.CheckIn.After(now) {
		return ErrCancellationWindowClosed
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, At: now})
	return nil
}
