package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/palletspace/booking-service/pkg/outbox"
)

func TestOutboxRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save find and mark", func(mt *mtest.T) {
		repo := NewOutboxRepository(mt.DB)
		ctx := context.Background()
		ns := mt.DB.Name() + "." + DefaultCollectionName

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(t, repo.SaveAll(ctx, []*outbox.Message{
			{ID: "evt-1", AggregateID: "b-1", EventType: "booking.created", MaxRetries: 10, CreatedAt: time.Now()},
		}))

		require.NoError(t, repo.SaveAll(ctx, nil), "empty batches never reach the server")

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "evt-1"},
			{Key: "aggregateId", Value: "b-1"},
			{Key: "eventType", Value: "booking.created"},
			{Key: "topic", Value: "palletspace.bookings"},
			{Key: "maxRetries", Value: 10},
		}))
		events, err := repo.FindUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "palletspace.bookings", events[0].Topic)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int64(4)}}))
		pending, err := repo.CountUnpublished(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), pending)

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		require.NoError(t, repo.MarkPublished(ctx, "evt-1"))

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		assert.Error(t, repo.IncrementRetry(ctx, "missing", "boom"))
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		repo := NewOutboxRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(t, repo.EnsureIndexes(context.Background()))
	})
}
