package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainnotifications "staybook/internal/domain/notifications"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires MongoDB sessions into the generic UnitOfWork interface.
// The transaction alone does not serialize two check-then-insert
// sequences: they write distinct booking documents, so neither aborts.
// BookingRepository.Save therefore bumps a per-listing guard document
// inside the same transaction; concurrent creates for one listing
// collide on it and the loser surfaces ErrConcurrentUpdate.
type Factory struct {
	DB *mongo.Database

	ListingsRepo      domainlistings.Repository
	BookingRepo       domainbooking.Repository
	NotificationsRepo domainnotifications.Store
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(f.DB.ReadConcern()).
		SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:            f.DB,
		session:       session,
		listings:      f.ListingsRepo,
		booking:       f.BookingRepo,
		notifications: f.NotificationsRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

	listings      domainlistings.Repository
	booking       domainbooking.Repository
	notifications domainnotifications.Store
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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
