package booking

import (
	"context"
	"errors"
	"sort"

	"staybook/internal/app/dto"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
)

const listGuestBookingsKey = "booking.list_guest"

type ListGuestBookingsQuery struct {
	GuestID string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns the guest's bookings, newest check-in first, each with
// a listing snapshot for display. A booking whose listing has since been
// removed still appears, with a bare snapshot.
func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.GuestBookingCollection, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.GuestBookingCollection{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.GuestBookingCollection{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	bookings, err := unit.Booking().ListByGuest(ctx, q.GuestID)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].Range.CheckIn.After(bookings[j].Range.CheckIn)
	})

	out := dto.GuestBookingCollection{Items: make([]dto.GuestBookingSummary, 0, len(bookings))}
	for _, b := range bookings {
		listing, err := unit.Listings().ByID(ctx, b.ListingID)
		if err != nil {
			if !errors.Is(err, domainlistings.ErrNotFound) {
				return dto.GuestBookingCollection{}, err
			}
			listing = nil
		}
		out.Items = append(out.Items, dto.MapGuestBookingSummary(b, listing))
	}
	return out, nil
}

var _ queries.Handler[ListGuestBookingsQuery, dto.GuestBookingCollection] = (*ListGuestBookingsHandler)(nil)
