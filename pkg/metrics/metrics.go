// Package metrics owns the Prometheus registry of a booking-service process.
// A nil *Metrics is a valid recorder that drops everything, which keeps
// tests and optional wiring free of nil checks.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	storageBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	pricingBuckets = []float64{.0005, .001, .005, .01, .025, .05, .1, .25}
)

type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	KafkaEventsPublished     *prometheus.CounterVec
	KafkaPublishDuration     *prometheus.HistogramVec
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec
	WorkflowsStarted         *prometheus.CounterVec
	WorkflowsCompleted       *prometheus.CounterVec
	CircuitBreakerState      *prometheus.GaugeVec
	CircuitBreakerTrips      *prometheus.CounterVec

	PriceCalculations       *prometheus.CounterVec
	PriceCalculationLatency *prometheus.HistogramVec
	PricingUnavailable      *prometheus.CounterVec
	PricingCacheRequests    *prometheus.CounterVec
	BookingsCreated         *prometheus.CounterVec
	BookingTransitions      *prometheus.CounterVec
	AvailabilityChecks      *prometheus.CounterVec
	OutboxPendingMessages   prometheus.Gauge
	IdempotencyRequests     *prometheus.CounterVec
}

type Config struct {
	ServiceName string
	Namespace   string
}

func DefaultConfig(serviceName string) *Config {
	return &Config{ServiceName: serviceName, Namespace: "palletspace"}
}

// factory creates collectors already registered under one namespace. Every
// vector gets a leading service label.
type factory struct {
	ns       string
	service  string
	registry *prometheus.Registry
}

func (f factory) counter(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: f.ns, Name: name, Help: help}, append([]string{"service"}, labels...))
	f.registry.MustRegister(c)
	return c
}

func (f factory) histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: f.ns, Name: name, Help: help, Buckets: buckets}, append([]string{"service"}, labels...))
	f.registry.MustRegister(h)
	return h
}

func (f factory) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: f.ns, Name: name, Help: help}, append([]string{"service"}, labels...))
	f.registry.MustRegister(g)
	return g
}

func (f factory) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   f.ns,
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": f.service},
	})
	f.registry.MustRegister(g)
	return g
}

// New builds the collectors on a private registry, next to the Go runtime
// and process collectors.
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := factory{ns: config.Namespace, service: config.ServiceName, registry: registry}
	m := &Metrics{serviceName: config.ServiceName, registry: registry}

	m.HTTPRequestsTotal = f.counter("http_requests_total", "HTTP requests by route and status", "method", "path", "status")
	m.HTTPRequestDuration = f.histogram("http_request_duration_seconds", "HTTP request latency", httpBuckets, "method", "path")
	m.HTTPRequestsInFlight = f.gauge("http_requests_in_flight", "HTTP requests being served")

	m.KafkaEventsPublished = f.counter("kafka_events_published_total", "CloudEvents written to Kafka", "topic", "event_type", "status")
	m.KafkaPublishDuration = f.histogram("kafka_publish_duration_seconds", "Kafka write latency", storageBuckets[:9], "topic")
	m.MongoDBOperations = f.counter("mongodb_operations_total", "MongoDB round trips", "collection", "operation", "status")
	m.MongoDBOperationDuration = f.histogram("mongodb_operation_duration_seconds", "MongoDB round trip latency", storageBuckets, "collection", "operation")
	m.WorkflowsStarted = f.counter("temporal_workflows_started_total", "Temporal workflows started", "workflow_type")
	m.WorkflowsCompleted = f.counter("temporal_workflows_completed_total", "Temporal workflows finished by outcome", "workflow_type", "outcome")
	m.CircuitBreakerState = f.gaugeVec("circuit_breaker_state", "Breaker state: 0 closed, 1 half-open, 2 open", "name")
	m.CircuitBreakerTrips = f.counter("circuit_breaker_trips_total", "Transitions into the open state", "name")

	m.PriceCalculations = f.counter("price_calculations_total", "Price calculations", "booking_type", "period", "status")
	m.PriceCalculationLatency = f.histogram("price_calculation_duration_seconds", "Price calculation latency including the catalogue read", pricingBuckets, "booking_type")
	m.PricingUnavailable = f.counter("pricing_unavailable_total", "Price requests no rate applied to", "reason")
	m.PricingCacheRequests = f.counter("pricing_cache_requests_total", "Warehouse pricing cache lookups", "result")
	m.BookingsCreated = f.counter("bookings_created_total", "Bookings created", "flow", "type")
	m.BookingTransitions = f.counter("booking_status_transitions_total", "Booking status transitions", "from", "to")
	m.AvailabilityChecks = f.counter("availability_checks_total", "Availability gate evaluations", "result")
	m.OutboxPendingMessages = f.gauge("outbox_pending_messages", "Outbox messages waiting for delivery")
	m.IdempotencyRequests = f.counter("idempotency_requests_total", "Idempotency-Key lookups by outcome", "outcome")

	return m
}

// Handler serves the registry in the OpenMetrics format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m != nil {
		m.HTTPRequestsInFlight.Inc()
	}
}

func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m != nil {
		m.HTTPRequestsInFlight.Dec()
	}
}

func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordWorkflowStarted(workflowType string) {
	if m != nil {
		m.WorkflowsStarted.WithLabelValues(m.serviceName, workflowType).Inc()
	}
}

// RecordWorkflowCompleted counts how a workflow ended, for the slot hold
// one of confirmed, released, expired or error.
func (m *Metrics) RecordWorkflowCompleted(workflowType, outcome string) {
	if m != nil {
		m.WorkflowsCompleted.WithLabelValues(m.serviceName, workflowType, outcome).Inc()
	}
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
	}
}

func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	if m != nil {
		m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
	}
}
