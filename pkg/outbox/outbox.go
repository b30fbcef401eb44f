package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/palletspace/booking-service/pkg/cloudevents"
)

// DefaultMaxRetries is the delivery budget of a message before it is parked
const DefaultMaxRetries = 10

// Message is a CloudEvent written in the same transaction as the booking or
// pricing change that produced it. The publisher moves it to Kafka later.
type Message struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// NewMessage serialises event for aggregateID and addresses it to topic
func NewMessage(aggregateID, aggregateType, topic string, event *cloudevents.CloudEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s for outbox: %w", event.Type, err)
	}
	return &Message{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     event.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

// ShouldRetry is false once the message went out or used up its budget
func (m *Message) ShouldRetry() bool {
	return m.PublishedAt == nil && m.RetryCount < m.MaxRetries
}

// Decode restores the stored CloudEvent
func (m *Message) Decode() (*cloudevents.CloudEvent, error) {
	event := &cloudevents.CloudEvent{}
	if err := json.Unmarshal(m.Payload, event); err != nil {
		return nil, fmt.Errorf("decode outbox message %s: %w", m.ID, err)
	}
	return event, nil
}
