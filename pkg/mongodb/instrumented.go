package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
	"github.com/palletspace/booking-service/pkg/tracing"
)

var tracer = otel.Tracer("booking-service/mongodb")

// InstrumentedClient is the Client the binaries hold. Its health check is
// traced and logged because readiness depends on it.
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
}

func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{client: client, metrics: m, logger: logger.WithComponent("mongodb")}
}

func (c *InstrumentedClient) Database() *mongo.Database {
	return c.client.Database()
}

func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	_, err := tracing.TracedOperation(ctx, tracer, "mongodb.ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.client.HealthCheck(ctx)
	}, trace.WithAttributes(semconv.DBSystemMongoDB, semconv.DBNameKey.String(c.client.config.Database)))
	if err != nil {
		c.logger.WithError(err).Warn("MongoDB health check failed")
	}
	return err
}

// Observe wraps one driver round trip of a repository in a client span and
// records it under mongodb_operation_duration_seconds.
func Observe(ctx context.Context, m *metrics.Metrics, collection, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	_, err := tracing.TracedOperation(ctx, tracer, "mongodb."+operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	},
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", collection),
		),
	)
	m.RecordMongoDBOperation(collection, operation, err == nil, time.Since(start))
	return err
}
