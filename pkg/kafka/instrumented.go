package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/palletspace/booking-service/pkg/cloudevents"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
	"github.com/palletspace/booking-service/pkg/tracing"
)

var producerTracer = otel.Tracer("booking-service/kafka")

// EventPublisher is what the outbox relay needs from a producer
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error
}

// InstrumentedProducer adds a producer span, publish metrics and a log line
// to every write.
type InstrumentedProducer struct {
	producer EventPublisher
	closer   func() error
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

func NewInstrumentedProducer(producer *Producer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{producer: producer, closer: producer.Close, metrics: m, logger: logger}
}

func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	attrs := []attribute.KeyValue{
		semconv.MessagingSystemKey.String("kafka"),
		semconv.MessagingDestinationNameKey.String(topic),
		semconv.MessagingOperationKey.String("publish"),
		attribute.String("messaging.message_id", event.ID),
		attribute.String("messaging.kafka.event_type", event.Type),
	}
	if event.CorrelationID != "" {
		attrs = append(attrs, attribute.String("correlation.id", event.CorrelationID))
	}

	start := time.Now()
	_, err := tracing.TracedOperation(ctx, producerTracer, "kafka.publish "+topic, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.producer.PublishEvent(ctx, topic, event)
	}, trace.WithSpanKind(trace.SpanKindProducer), trace.WithAttributes(attrs...))
	elapsed := time.Since(start)

	p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, elapsed)
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, elapsed)
	}
	return err
}

func (p *InstrumentedProducer) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
