package asyncapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apispec "github.com/palletspace/booking-service/api"
	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/cloudevents"
)

var changedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestValidator(t *testing.T) *EventValidator {
	t.Helper()
	v, err := NewEventValidatorFromBytes(apispec.AsyncAPI)
	require.NoError(t, err)
	return v
}

func event(eventType string, data interface{}) *cloudevents.CloudEvent {
	return cloudevents.NewEventFactory(cloudevents.SourceBookingService).
		CreateEvent(context.Background(), eventType, "b-1", data)
}

func statusChange(eventType string, from, to domain.BookingStatus) *domain.BookingStatusChangedEvent {
	return &domain.BookingStatusChangedEvent{
		Type:        eventType,
		BookingID:   "b-1",
		WarehouseID: "wh-1",
		From:        from,
		To:          to,
		ActorID:     "staff-1",
		ActorRole:   domain.ActorStaff,
		ChangedAt:   changedAt,
	}
}

func TestNewEventValidatorFromBytes_SupportedTypes(t *testing.T) {
	v := newTestValidator(t)

	assert.Equal(t, []string{
		cloudevents.BookingAwaitingTimeSlot,
		cloudevents.BookingCancellationRejected,
		cloudevents.BookingCancellationRequested,
		cloudevents.BookingCancelled,
		cloudevents.BookingCheckedIn,
		cloudevents.BookingCompleted,
		cloudevents.BookingConfirmed,
		cloudevents.BookingCreated,
		cloudevents.BookingPaymentPending,
		cloudevents.BookingTimeProposed,
		cloudevents.BookingTimeSlotConfirmed,
		cloudevents.WarehousePricingUpdated,
	}, v.SupportedEventTypes())
	assert.NotContains(t, v.SupportedEventTypes(), "booking.deleted")
}

func TestNewEventValidatorFromBytes_Invalid(t *testing.T) {
	_, err := NewEventValidatorFromBytes([]byte("components: ["))
	assert.Error(t, err)

	_, err = NewEventValidatorFromBytes([]byte(`
components:
  schemas:
    Broken:
      x-event-type: booking.broken
      type: 12
`))
	assert.Error(t, err)
}

func TestEventValidator_DomainEvents(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name  string
		event domain.DomainEvent
	}{
		{"created", &domain.BookingCreatedEvent{
			BookingID: "b-1", CustomerID: "u-1", CompanyID: "c-1", WarehouseID: "wh-1",
			Type:      domain.BookingTypePallet, Flow: domain.FlowMarketplace, Status: domain.StatusPreOrder,
			StartDate: changedAt, EndDate: changedAt.AddDate(0, 1, 0), TotalAmount: 310.5, CreatedAt: changedAt,
		}},
		{"awaiting time slot", statusChange(domain.EventBookingAwaitingTimeSlot, domain.StatusPreOrder, domain.StatusAwaitingTimeSlot)},
		{"cancelled with reason", func() domain.DomainEvent {
			e := statusChange(domain.EventBookingCancelled, domain.StatusCancelRequest, domain.StatusCancelled)
			e.Reason = "plans changed"
			return e
		}()},
		{"time proposed", &domain.TimeProposedEvent{
			BookingID:  "b-1", WarehouseID: "wh-1", ProposedStartDate: "2025-03-03", ProposedStartTime: "10:00",
			ProposedBy: "staff-1", ProposedAt: changedAt,
		}},
		{"time slot confirmed", &domain.TimeSlotConfirmedEvent{
			BookingID: "b-1", WarehouseID: "wh-1", Date: "2025-03-03", Time: "10:00",
			Status:    domain.StatusPaymentPending, ConfirmedAt: changedAt,
		}},
		{"pricing updated", &domain.PricingUpdatedEvent{
			WarehouseID: "wh-1", EntryCount: 4, UpdatedBy: "owner-1", UpdatedAt: changedAt,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, v.ValidateEvent(event(tt.event.EventType(), tt.event)))
		})
	}
}

func TestEventValidator_Rejects(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name  string
		event *cloudevents.CloudEvent
	}{
		{"nil event", nil},
		{"unknown type", event("booking.deleted", map[string]interface{}{"bookingId": "b-1"})},
		{"missing data", event(cloudevents.BookingConfirmed, nil)},
		{"unknown status", event(cloudevents.BookingConfirmed, statusChange(domain.EventBookingConfirmed, domain.StatusPaymentPending, "shipped"))},
		{"missing actor", event(cloudevents.BookingCheckedIn, map[string]interface{}{
			"bookingId": "b-1", "warehouseId": "wh-1", "from": "confirmed", "to": "active", "changedAt": changedAt,
		})},
		{"slot time format", event(cloudevents.BookingTimeProposed, &domain.TimeProposedEvent{
			BookingID:  "b-1", WarehouseID: "wh-1", ProposedStartDate: "2025-03-03", ProposedStartTime: "10am",
			ProposedBy: "staff-1", ProposedAt: changedAt,
		})},
		{"negative entry count", event(cloudevents.WarehousePricingUpdated, &domain.PricingUpdatedEvent{
			WarehouseID: "wh-1", EntryCount: -1, UpdatedBy: "owner-1", UpdatedAt: changedAt,
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, v.ValidateEvent(tt.event))
		})
	}
}

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	p.topics = append(p.topics, topic)
	return nil
}

func TestValidatingPublisher(t *testing.T) {
	next := &recordingPublisher{}
	publisher := NewValidatingPublisher(next, newTestValidator(t))
	ctx := context.Background()

	valid := event(cloudevents.WarehousePricingUpdated, &domain.PricingUpdatedEvent{
		WarehouseID: "wh-1", EntryCount: 2, UpdatedBy: "owner-1", UpdatedAt: changedAt,
	})
	require.NoError(t, publisher.PublishEvent(ctx, "palletspace.warehouses", valid))

	invalid := event(cloudevents.WarehousePricingUpdated, map[string]interface{}{"warehouseId": "wh-1"})
	err := publisher.PublishEvent(ctx, "palletspace.warehouses", invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract violation")

	assert.Equal(t, []string{"palletspace.warehouses"}, next.topics)
}
