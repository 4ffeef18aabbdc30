package memory

import (
	"context"
	"errors"
	"sync"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainnotifications "staybook/internal/domain/notifications"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
// Write units are serialized through a single mutex: the availability
// check and the booking insert of concurrent requests can never
// interleave, which is the storage-side guarantee the booking flow
// depends on.
type Factory struct {
	ListingsRepo      domainlistings.Repository
	BookingRepo       domainbooking.Repository
	NotificationsRepo domainnotifications.Store

	writeMu sync.Mutex
}

// Begin starts a transaction boundary. Read-only units run concurrently;
// write units take the factory's write lock until Commit or Rollback.
func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.BookingRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	unit := &Unit{
		listings:      f.ListingsRepo,
		booking:       f.BookingRepo,
		notifications: f.NotificationsRepo,
	}
	if !opts.ReadOnly {
		f.writeMu.Lock()
		unit.release = f.writeMu.Unlock
	}
	return unit, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	listings      domainlistings.Repository
	booking       domainbooking.Repository
	notifications domainnotifications.Store

	releaseOnce sync.Once
	release     func()
}

func (u *Unit) Listings() domainlistings.Repository {
	return u.listings
}

func (u *Unit) Booking() domainbooking.Repository {
	return u.booking
}

func (u *Unit) Notifications() domainnotifications.Store {
	return u.notifications
}

func (u *Unit) Commit(ctx context.Context) error {
	u.unlock()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.unlock()
	return nil
}

func (u *Unit) unlock() {
	if u.release == nil {
		return
	}
	u.releaseOnce.Do(u.release)
}

var _ uow.UoWFactory = (*Factory)(nil)
