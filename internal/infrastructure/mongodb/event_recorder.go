package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/cloudevents"
	"github.com/palletspace/booking-service/pkg/kafka"
	"github.com/palletspace/booking-service/pkg/outbox"
	outboxMongo "github.com/palletspace/booking-service/pkg/outbox/mongodb"
)

// outboxStore is the part of the outbox repository the recorder writes to
type outboxStore interface {
	SaveAll(ctx context.Context, events []*outbox.Message) error
}

// EventRecorder writes warehouse events straight to the outbox
type EventRecorder struct {
	outbox       outboxStore
	eventFactory *cloudevents.EventFactory
}

// NewEventRecorder creates a new EventRecorder
func NewEventRecorder(db *mongo.Database, eventFactory *cloudevents.EventFactory) *EventRecorder {
	return &EventRecorder{
		outbox:       outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
}

// Record stores events raised outside the booking aggregate
func (r *EventRecorder) Record(ctx context.Context, aggregateID, warehouseID, companyID string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.Message, 0, len(events))
	for _, event := range events {
		cloudEvent := r.eventFactory.
			CreateEvent(ctx, event.EventType(), "warehouse/"+warehouseID, event).
			WithWarehouse(warehouseID, companyID)

		outboxEvent, err := outbox.NewMessage(aggregateID, "Warehouse", kafka.Topics.WarehouseEvents, cloudEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := r.outbox.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}
