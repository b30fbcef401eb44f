package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/palletspace/booking-service/pkg/outbox"
)

// DefaultCollectionName holds booking and warehouse messages alike
const DefaultCollectionName = "outbox_events"

// Delivered messages expire through a TTL index after this long
const publishedRetention = 7 * 24 * time.Hour

var oldestFirst = bson.D{{Key: "createdAt", Value: 1}}

// pending matches messages not yet delivered that still have retries left
var pending = bson.M{
	"publishedAt": bson.M{"$exists": false},
	"$expr":       bson.M{"$lt": bson.A{"$retryCount", "$maxRetries"}},
}

// OutboxRepository is the Mongo outbox. Writes made with a session context
// take part in the caller's transaction.
type OutboxRepository struct {
	collection *mongo.Collection
}

func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{collection: db.Collection(DefaultCollectionName)}
}

func (r *OutboxRepository) SaveAll(ctx context.Context, messages []*outbox.Message) error {
	if len(messages) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		docs = append(docs, m)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert %d outbox messages: %w", len(messages), err)
	}
	return nil
}

func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return r.find(ctx, pending, options.Find().SetSort(oldestFirst).SetLimit(int64(limit)))
}

func (r *OutboxRepository) CountUnpublished(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, pending)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox messages: %w", err)
	}
	return n, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"publishedAt": time.Now().UTC()}})
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, id string, lastError string) error {
	return r.updateOne(ctx, id, bson.M{
		"$inc": bson.M{"retryCount": 1},
		"$set": bson.M{"lastError": lastError},
	})
}

func (r *OutboxRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*outbox.Message, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*outbox.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update outbox message %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("outbox message %s does not exist", id)
	}
	return nil
}

// EnsureIndexes backs the pending scan and the retention TTL. Only documents
// carrying publishedAt ever expire.
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "publishedAt", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("pending_scan"),
		},
		{
			Keys:    bson.D{{Key: "publishedAt", Value: 1}},
			Options: options.Index().SetName("published_ttl").SetExpireAfterSeconds(int32(publishedRetention.Seconds())),
		},
	})
	if err != nil {
		return fmt.Errorf("outbox indexes: %w", err)
	}
	return nil
}
