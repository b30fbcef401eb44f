package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/cloudevents"
	"github.com/palletspace/booking-service/pkg/kafka"
	"github.com/palletspace/booking-service/pkg/metrics"
	pkgmongo "github.com/palletspace/booking-service/pkg/mongodb"
	"github.com/palletspace/booking-service/pkg/outbox"
	outboxMongo "github.com/palletspace/booking-service/pkg/outbox/mongodb"
	"github.com/palletspace/booking-service/pkg/tenant"
)

const bookingsCollection = "bookings"

// sortFields maps list sort keys to document fields
var sortFields = map[string]string{
	domain.SortByCreatedAt:    "createdAt",
	domain.SortByStartDate:    "startDate",
	domain.SortByEndDate:      "endDate",
	domain.SortByTotalAmount:  "totalAmount",
	domain.SortByStatus:       "status",
	domain.SortByCustomerName: "customerName",
}

// BookingRepository implements domain.BookingRepository
type BookingRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	tenantHelper *tenant.RepositoryHelper
	metrics      *metrics.Metrics
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, m *metrics.Metrics) *BookingRepository {
	collection := db.Collection(bookingsCollection)
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "warehouseId", Value: 1}, {Key: "status", Value: 1}, {Key: "startDate", Value: 1}}},
		{Keys: bson.D{{Key: "warehouseId", Value: 1}, {Key: "confirmedSlot.date", Value: 1}}},
	}
	for _, keys := range tenant.TenantIndexes() {
		indexes = append(indexes, mongo.IndexModel{Keys: keys})
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = outboxRepo.EnsureIndexes(ctx)

	return &BookingRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		tenantHelper: tenant.NewRepositoryHelper(false),
		metrics:      m,
	}
}

// GetOutboxRepository returns the outbox the repository writes to
func (r *BookingRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}

// Save persists a booking and its pending events in one transaction. The
// write only succeeds against the version the booking was loaded at.
func (r *BookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	expected := booking.Version
	booking.Version = expected + 1
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = pkgmongo.Now()
	}

	err := pkgmongo.Observe(ctx, r.metrics, bookingsCollection, "save", func(ctx context.Context) error {
		return pkgmongo.WithTransaction(ctx, r.db, func(sessCtx mongo.SessionContext) error {
			if err := r.write(sessCtx, booking, expected); err != nil {
				return err
			}

			outboxEvents, err := r.outboxEvents(sessCtx, booking)
			if err != nil {
				return err
			}
			if len(outboxEvents) > 0 {
				if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
					return fmt.Errorf("failed to save outbox events: %w", err)
				}
			}
			return nil
		})
	})
	if err != nil {
		booking.Version = expected
		return err
	}

	booking.ClearDomainEvents()
	return nil
}

func (r *BookingRepository) write(ctx context.Context, booking *domain.Booking, expected int) error {
	if expected == 0 {
		if _, err := r.collection.InsertOne(ctx, booking); err != nil {
			if pkgmongo.IsDuplicateKey(err) {
				return domain.ErrVersionConflict
			}
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		return nil
	}

	filter := bson.M{"_id": booking.ID, "version": expected}
	res, err := r.collection.ReplaceOne(ctx, filter, booking)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *BookingRepository) outboxEvents(ctx context.Context, booking *domain.Booking) ([]*outbox.Message, error) {
	domainEvents := booking.DomainEvents()
	outboxEvents := make([]*outbox.Message, 0, len(domainEvents))

	for _, event := range domainEvents {
		cloudEvent := r.eventFactory.
			CreateEvent(ctx, event.EventType(), "booking/"+booking.ID, event).
			WithWarehouse(booking.WarehouseID, booking.CompanyID)

		outboxEvent, err := outbox.NewMessage(booking.ID, "Booking", kafka.Topics.BookingEvents, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	return outboxEvents, nil
}

// FindByID retrieves a booking by ID
func (r *BookingRepository) FindByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	var booking domain.Booking
	err := pkgmongo.Observe(ctx, r.metrics, bookingsCollection, "find_one", func(ctx context.Context) error {
		return r.collection.FindOne(ctx, bson.M{"_id": bookingID}).Decode(&booking)
	})
	if err != nil {
		if pkgmongo.IsNotFound(err) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

// List returns one page of bookings matching filter and the total count
func (r *BookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, int64, error) {
	if err := filter.Normalize(); err != nil {
		return nil, 0, err
	}

	query, err := r.tenantHelper.WithTenantFilter(ctx, buildFilter(filter))
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = pkgmongo.Observe(ctx, r.metrics, bookingsCollection, "count", func(ctx context.Context) error {
		var err error
		total, err = r.collection.CountDocuments(ctx, query)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	direction := 1
	if filter.SortDesc {
		direction = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortFields[filter.SortBy], Value: direction}, {Key: "_id", Value: 1}}).
		SetSkip(filter.Offset()).
		SetLimit(filter.PageSize)

	var bookings []*domain.Booking
	err = pkgmongo.Observe(ctx, r.metrics, bookingsCollection, "find", func(ctx context.Context) error {
		cursor, err := r.collection.Find(ctx, query, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &bookings)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, total, nil
}

// buildFilter translates the staff list filter. A start date bound keeps
// bookings starting on or after it, an end date bound keeps bookings ending
// at any time up to the end of that day.
func buildFilter(filter domain.BookingFilter) bson.M {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.WarehouseID != "" {
		query["warehouseId"] = filter.WarehouseID
	}
	if filter.CompanyID != "" {
		query["companyId"] = filter.CompanyID
	}
	if filter.CustomerID != "" {
		query["customerId"] = filter.CustomerID
	}
	if filter.StartDate != nil {
		query["startDate"] = bson.M{"$gte": *filter.StartDate}
	}
	if filter.EndDate != nil {
		query["endDate"] = bson.M{"$lt": filter.EndDate.AddDate(0, 0, 1)}
	}
	if filter.CustomerSearch != "" {
		pattern := regexp.QuoteMeta(filter.CustomerSearch)
		query["$or"] = bson.A{
			bson.M{"customerName": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"customerEmail": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return query
}
