package uow

import (
	"context"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainnotifications "staybook/internal/domain/notifications"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
// The create-booking flow relies on it: fetching active bookings,
// checking for conflicts and inserting must commit as one unit, so two
// concurrent requests for the same dates cannot both observe "available"
// and both land.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Booking() domainbooking.Repository
	Notifications() domainnotifications.Store

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
