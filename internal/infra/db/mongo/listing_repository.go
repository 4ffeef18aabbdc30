package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("listings")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	filter := bson.M{"_id": doc.ID, "version": listing.Version}
	doc.Version = listing.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	listing.Version = doc.Version
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)

type listingDocument struct {
	ID           string  `bson:"_id"`
	Owner        string  `bson:"owner_id"`
	Title        string  `bson:"title"`
	Description  string  `bson:"description"`
	Line1        string  `bson:"address_line1"`
	City         string  `bson:"city"`
	Region       string  `bson:"region"`
	Country      string  `bson:"country"`
	Lat          float64 `bson:"lat"`
	Lon          float64 `bson:"lon"`
	GuestsLimit  int     `bson:"guests_limit"`
	NightlyRate  int64   `bson:"nightly_rate"`
	Currency     string  `bson:"currency"`
	State        string  `bson:"state"`
	ThumbnailURL string  `bson:"thumbnail_url"`
	Version      int64   `bson:"version"`
	CreatedAt    int64   `bson:"created_at"`
	UpdatedAt    int64   `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:           string(l.ID),
		Owner:        string(l.Owner),
		Title:        l.Title,
		Description:  l.Description,
		Line1:        l.Address.Line1,
		City:         l.Address.City,
		Region:       l.Address.Region,
		Country:      l.Address.Country,
		Lat:          l.Address.Lat,
		Lon:          l.Address.Lon,
		GuestsLimit:  l.GuestsLimit,
		NightlyRate:  l.NightlyRate.Amount,
		Currency:     l.NightlyRate.Currency,
		State:        string(l.State),
		ThumbnailURL: l.ThumbnailURL,
		Version:      l.Version,
		CreatedAt:    l.CreatedAt.UnixMilli(),
		UpdatedAt:    l.UpdatedAt.UnixMilli(),
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		Owner:       domainlistings.OwnerID(d.Owner),
		Title:       d.Title,
		Description: d.Description,
		Address: domainlistings.Address{
			Line1:   d.Line1,
			City:    d.City,
			Region:  d.Region,
			Country: d.Country,
			Lat:     d.Lat,
			Lon:     d.Lon,
		},
		GuestsLimit:  d.GuestsLimit,
		NightlyRate:  money.Money{Amount: d.NightlyRate, Currency: d.Currency},
		State:        domainlistings.ListingState(d.State),
		ThumbnailURL: d.ThumbnailURL,
		Version:      d.Version,
		CreatedAt:    time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt:    time.UnixMilli(d.UpdatedAt).UTC(),
	}
}
