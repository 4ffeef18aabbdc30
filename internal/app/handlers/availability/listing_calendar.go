package availability

import (
	"context"
	"sort"

	"staybook/internal/app/dto"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
)

const (
	getCalendarKey     = "availability.calendar"
	listingBookingsKey = "availability.listing_bookings"
)

type GetCalendarQuery struct {
	ListingID string
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

// GetCalendarHandler serves the merged taken-dates view the UI uses to
// grey out a listing's calendar. It reads the same active-booking set
// the create path checks against, so preview and enforcement agree.
type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.Calendar{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.Calendar{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	active, err := unit.Booking().ActiveByListing(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(q.ListingID, active), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)

type ListingBookingsQuery struct {
	ListingID string
}

func (q ListingBookingsQuery) Key() string { return listingBookingsKey }

// ListingBookingsHandler returns the raw non-cancelled ranges for a
// listing, sorted by check-in, without guest identities.
type ListingBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListingBookingsHandler) Handle(ctx context.Context, q ListingBookingsQuery) (dto.TakenRangeCollection, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.TakenRangeCollection{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.TakenRangeCollection{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	active, err := unit.Booking().ActiveByListing(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.TakenRangeCollection{}, err
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].Range.CheckIn.Before(active[j].Range.CheckIn)
	})
	return dto.MapTakenRanges(active), nil
}

var _ queries.Handler[ListingBookingsQuery, dto.TakenRangeCollection] = (*ListingBookingsHandler)(nil)
