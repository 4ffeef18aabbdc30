package booking

import (
	"context"
	"errors"

	"staybook/internal/app/dto"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

const getBookingKey = "booking.get"

type GetBookingQuery struct {
	BookingID string
	ActorID   string
	ActorRole string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingDetail, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.BookingDetail{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.BookingDetail{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.BookingDetail{}, err
	}
	if booking.GuestID != q.ActorID && q.ActorRole != RoleAdmin {
		return dto.BookingDetail{}, ErrNotAllowed
	}

	listing, err := unit.Listings().ByID(ctx, booking.ListingID)
	if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
		return dto.BookingDetail{}, err
	}
	return dto.MapBookingDetail(booking, listing), nil
}

var _ queries.Handler[GetBookingQuery, dto.BookingDetail] = (*GetBookingHandler)(nil)
