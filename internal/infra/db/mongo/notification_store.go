package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainnotifications "staybook/internal/domain/notifications"
)

type NotificationStore struct {
	col *mongo.Collection
}

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	col := db.Collection("notifications")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "created_at", Value: -1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &NotificationStore{col: col}
}

func (s *NotificationStore) Add(ctx context.Context, n domainnotifications.Notification) error {
	doc := bson.M{
		"_id":        n.ID,
		"recipient":  n.Recipient,
		"type":       string(n.Type),
		"title":      n.Title,
		"message":    n.Message,
		"booking_id": n.BookingID,
		"listing_id": n.ListingID,
		"read":       n.Read,
		"created_at": n.CreatedAt.UnixMilli(),
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

func (s *NotificationStore) ByRecipient(ctx context.Context, recipient string) ([]domainnotifications.Notification, error) {
	cur, err := s.col.Find(ctx, bson.M{"recipient": recipient})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainnotifications.Notification
	for cur.Next(ctx) {
		var doc notificationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainnotifications.Notification{
			ID:        doc.ID,
			Recipient: doc.Recipient,
			Type:      domainnotifications.Type(doc.Type),
			Title:     doc.Title,
			Message:   doc.Message,
			BookingID: doc.BookingID,
			ListingID: doc.ListingID,
			Read:      doc.Read,
			CreatedAt: time.UnixMilli(doc.CreatedAt).UTC(),
		})
	}
	return out, cur.Err()
}

func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	return err
}

var _ domainnotifications.Store = (*NotificationStore)(nil)

type notificationDocument struct {
	ID        string `bson:"_id"`
	Recipient string `bson:"recipient"`
	Type      string `bson:"type"`
	Title     string `bson:"title"`
	Message   string `bson:"message"`
	BookingID string `bson:"booking_id"`
	ListingID string `bson:"listing_id"`
	Read      bool   `bson:"read"`
	CreatedAt int64  `bson:"created_at"`
}
