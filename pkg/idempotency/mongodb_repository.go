package idempotency

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgmongo "github.com/palletspace/booking-service/pkg/mongodb"
)

const idempotencyKeysCollection = "idempotency_keys"

// MongoKeyRepository keeps Records in idempotency_keys. Expired records are
// removed by a TTL index on expiresAt.
type MongoKeyRepository struct {
	collection *mongo.Collection
}

func NewMongoKeyRepository(db *mongo.Database) (*MongoKeyRepository, error) {
	collection := db.Collection(idempotencyKeysCollection)
	err := pkgmongo.EnsureIndexes(collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serviceId", Value: 1}, {Key: "userId", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetName("scope_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expires_ttl").SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return nil, err
	}
	return &MongoKeyRepository{collection: collection}, nil
}

func scope(serviceID, userID, key string) bson.M {
	return bson.M{"serviceId": serviceID, "userId": userID, "key": key}
}

// AcquireLock upserts candidate with $setOnInsert, so concurrent requests
// carrying the same key all read back the first writer's record.
func (r *MongoKeyRepository) AcquireLock(ctx context.Context, candidate *Record) (*Record, bool, error) {
	candidate.CreatedAt = candidate.CreatedAt.UTC().Truncate(time.Millisecond)

	insert := scope(candidate.ServiceID, candidate.UserID, candidate.Key)
	insert["requestPath"] = candidate.RequestPath
	insert["requestMethod"] = candidate.RequestMethod
	insert["requestFingerprint"] = candidate.RequestFingerprint
	insert["lockedAt"] = candidate.CreatedAt
	insert["createdAt"] = candidate.CreatedAt
	insert["expiresAt"] = candidate.ExpiresAt

	stored := &Record{}
	err := r.collection.FindOneAndUpdate(ctx,
		scope(candidate.ServiceID, candidate.UserID, candidate.Key),
		bson.M{"$setOnInsert": insert},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(stored)
	if err != nil {
		return nil, false, fmt.Errorf("acquire idempotency key %q: %w", candidate.Key, err)
	}

	created := stored.CompletedAt == nil && stored.CreatedAt.Equal(candidate.CreatedAt)
	return stored, created, nil
}

// ReleaseLock deletes an unfinished record so the retry starts clean,
// fingerprint included.
func (r *MongoKeyRepository) ReleaseLock(ctx context.Context, keyID string) error {
	id, err := primitive.ObjectIDFromHex(keyID)
	if err != nil {
		return fmt.Errorf("idempotency key id %q: %w", keyID, err)
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": id, "completedAt": bson.M{"$exists": false}})
	return err
}

func (r *MongoKeyRepository) StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error {
	id, err := primitive.ObjectIDFromHex(keyID)
	if err != nil {
		return fmt.Errorf("idempotency key id %q: %w", keyID, err)
	}
	res, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"responseCode":    responseCode,
			"responseBody":    responseBody,
			"responseHeaders": headers,
			"completedAt":     pkgmongo.Now(),
		},
		"$unset": bson.M{"lockedAt": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
