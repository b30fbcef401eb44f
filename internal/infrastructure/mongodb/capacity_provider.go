package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/metrics"
	pkgmongo "github.com/palletspace/booking-service/pkg/mongodb"
)

// holdingStatuses are the statuses whose bookings occupy warehouse space
var holdingStatuses = []domain.BookingStatus{
	domain.StatusAwaitingTimeSlot,
	domain.StatusPaymentPending,
	domain.StatusConfirmed,
	domain.StatusActive,
	domain.StatusCancelRequest,
}

// CapacityProvider derives remaining capacity from stored bookings
type CapacityProvider struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

// NewCapacityProvider creates a new CapacityProvider
func NewCapacityProvider(db *mongo.Database, m *metrics.Metrics) *CapacityProvider {
	return &CapacityProvider{
		collection: db.Collection(bookingsCollection),
		metrics:    m,
	}
}

// Capacity subtracts the space held on date from the warehouse totals.
// Warehouses without totals have unknown capacity.
func (p *CapacityProvider) Capacity(ctx context.Context, warehouse *domain.Warehouse, date time.Time) (*domain.Capacity, error) {
	if warehouse.TotalPalletSlots <= 0 && warehouse.TotalSqFt <= 0 {
		return nil, domain.ErrCapacityUnknown
	}

	day := domain.DateOnly(date)
	used, err := p.usage(ctx, warehouse.ID, day)
	if err != nil {
		return nil, err
	}
	dropIns, err := p.dropIns(ctx, warehouse.ID, day)
	if err != nil {
		return nil, err
	}

	capacity := &domain.Capacity{Date: day, DropIns: dropIns}
	if warehouse.TotalPalletSlots > 0 {
		remaining := max(warehouse.TotalPalletSlots-used.Pallets, 0)
		capacity.PalletSlotsRemaining = &remaining
	}
	if warehouse.TotalSqFt > 0 {
		remaining := max(warehouse.TotalSqFt-used.SqFt, 0)
		capacity.SqFtRemaining = &remaining
	}
	return capacity, nil
}

type usage struct {
	Pallets int `bson:"pallets"`
	SqFt    int `bson:"sqft"`
}

func (p *CapacityProvider) usage(ctx context.Context, warehouseID string, day time.Time) (usage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"warehouseId": warehouseID,
			"status":      bson.M{"$in": holdingStatuses},
			"startDate":   bson.M{"$lt": day.AddDate(0, 0, 1)},
			"endDate":     bson.M{"$gte": day},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"pallets": bson.M{"$sum": "$palletCount"},
			"sqft":    bson.M{"$sum": "$areaSqFt"},
		}}},
	}

	var row usage
	err := pkgmongo.Observe(ctx, p.metrics, bookingsCollection, "capacity_usage", func(ctx context.Context) error {
		cursor, err := p.collection.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		if cursor.Next(ctx) {
			return cursor.Decode(&row)
		}
		return cursor.Err()
	})
	if err != nil {
		return usage{}, fmt.Errorf("failed to aggregate capacity usage: %w", err)
	}
	return row, nil
}

func (p *CapacityProvider) dropIns(ctx context.Context, warehouseID string, day time.Time) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"warehouseId":        warehouseID,
			"status":             bson.M{"$in": holdingStatuses},
			"confirmedSlot.date": day,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$confirmedSlot.time",
			"count": bson.M{"$sum": 1},
		}}},
	}

	counts := make(map[string]int)
	err := pkgmongo.Observe(ctx, p.metrics, bookingsCollection, "capacity_drop_ins", func(ctx context.Context) error {
		cursor, err := p.collection.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var row struct {
				Time  string `bson:"_id"`
				Count int    `bson:"count"`
			}
			if err := cursor.Decode(&row); err != nil {
				return err
			}
			counts[row.Time] = row.Count
		}
		return cursor.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count drop-ins: %w", err)
	}
	return counts, nil
}
