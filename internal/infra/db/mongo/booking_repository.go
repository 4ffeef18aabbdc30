package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

// ErrConcurrentUpdate surfaces a lost optimistic-versioning race; the
// caller translates it into a booking conflict.
var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

// Server code for a WiredTiger write conflict inside a transaction.
const writeConflictCode = 112

type BookingRepository struct {
	col    *mongo.Collection
	guards *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("bookings")
	// Supports ActiveByListing's overlap scans.
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), idx)
	return &BookingRepository{col: col, guards: db.Collection("listing_guards")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	if b.Version == 0 {
		if err := r.touchGuard(ctx, doc.ListingID); err != nil {
			return err
		}
	}
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

// touchGuard bumps the listing's guard document before a booking insert.
// Bookings for the same listing land in distinct documents, so the
// availability scan plus insert alone would let two concurrent
// transactions both commit overlapping ranges; sharing one guard write
// per listing forces the later transaction to abort instead.
func (r *BookingRepository) touchGuard(ctx context.Context, listingID string) error {
	_, err := r.guards.UpdateOne(ctx,
		bson.M{"_id": listingID},
		bson.M{"$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	return nil
}

func isWriteConflict(err error) bool {
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) {
		return srvErr.HasErrorCode(writeConflictCode) || srvErr.HasErrorLabel("TransientTransactionError")
	}
	return false
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, bson.M{"guest_id": guestID})
	if err != nil {
		return nil, err
	}
	return decodeBookings(ctx, cur)
}

// ActiveByListing excludes cancelled bookings in the query itself so the
// conflict check never sees a released range.
func (r *BookingRepository) ActiveByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$ne": string(domainbooking.StatusCancelled)},
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return decodeBookings(ctx, cur)
}

func (r *BookingRepository) DeleteByListing(ctx context.Context, listingID domainlistings.ListingID) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"listing_id": string(listingID)}); err != nil {
		return err
	}
	_, err := r.guards.DeleteOne(ctx, bson.M{"_id": string(listingID)})
	return err
}

func decodeBookings(ctx context.Context, cur *mongo.Cursor) ([]*domainbooking.Booking, error) {
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)

type bookingDocument struct {
	ID        string        `bson:"_id"`
	ListingID string        `bson:"listing_id"`
	GuestID   string        `bson:"guest_id"`
	Range     rangeDocument `bson:"range"`
	Guests    int           `bson:"guests"`
	Price     priceDocument `bson:"price"`
	Status    string        `bson:"status"`
	CreatedAt int64         `bson:"created_at"`
	UpdatedAt int64         `bson:"updated_at"`
	Version   int64         `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

type priceDocument struct {
	Nights   int     `bson:"nights"`
	Nightly  int64   `bson:"nightly"`
	TaxRate  float64 `bson:"tax_rate"`
	Subtotal int64   `bson:"subtotal"`
	Taxes    int64   `bson:"taxes"`
	Total    int64   `bson:"total"`
	Currency string  `bson:"currency"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:        string(b.ID),
		ListingID: string(b.ListingID),
		GuestID:   b.GuestID,
		Range:     rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:    b.Guests,
		Price: priceDocument{
			Nights:   b.Price.Nights,
			Nightly:  b.Price.Nightly.Amount,
			TaxRate:  b.Price.TaxRate,
			Subtotal: b.Price.Subtotal.Amount,
			Taxes:    b.Price.Taxes.Amount,
			Total:    b.Price.Total.Amount,
			Currency: b.Price.Nightly.Currency,
		},
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.UnixMilli(),
		UpdatedAt: b.UpdatedAt.UnixMilli(),
		Version:   b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: domainlistings.ListingID(d.ListingID),
		GuestID:   d.GuestID,
		Range: domainrange.DateRange{
			CheckIn:  timestampToTime(d.Range.CheckIn),
			CheckOut: timestampToTime(d.Range.CheckOut),
		},
		Guests: d.Guests,
		Price: domainpricing.PriceBreakdown{
			Nights:   d.Price.Nights,
			Nightly:  money.Money{Amount: d.Price.Nightly, Currency: d.Price.Currency},
			TaxRate:  d.Price.TaxRate,
			Subtotal: money.Money{Amount: d.Price.Subtotal, Currency: d.Price.Currency},
			Taxes:    money.Money{Amount: d.Price.Taxes, Currency: d.Price.Currency},
			Total:    money.Money{Amount: d.Price.Total, Currency: d.Price.Currency},
		},
		Status:    domainbooking.Status(d.Status),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
