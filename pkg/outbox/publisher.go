package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/palletspace/booking-service/pkg/cloudevents"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
)

var (
	errAlreadyRunning = errors.New("outbox publisher already running")
	errNotRunning     = errors.New("outbox publisher not running")
)

// EventPublisher delivers a CloudEvent to a topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error
}

// PublisherConfig tunes the relay loop
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{PollInterval: time.Second, BatchSize: 100}
}

// Publisher polls the outbox and relays pending messages in creation order.
// A failed message stays pending with its retry count bumped.
type Publisher struct {
	repo     Repository
	producer EventPublisher
	logger   *logging.Logger
	metrics  *metrics.Metrics
	config   PublisherConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	published atomic.Int64
	failed    atomic.Int64
}

// NewPublisher wires the relay. A nil config uses DefaultPublisherConfig.
func NewPublisher(repo Repository, producer EventPublisher, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}
	return &Publisher{
		repo:     repo,
		producer: producer,
		logger:   logger.WithComponent("outbox-publisher"),
		metrics:  m,
		config:   *config,
	}
}

// Start launches the relay loop. It runs until Stop or until ctx ends.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Info("Starting outbox publisher", "interval", p.config.PollInterval, "batchSize", p.config.BatchSize)
	go p.loop(loopCtx, p.done)
	return nil
}

// Stop ends the loop and waits for the batch in progress
func (p *Publisher) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return errNotRunning
	}
	cancel()
	<-done
	return nil
}

// IsRunning reports whether the relay loop is active
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stats reports deliveries since start
func (p *Publisher) Stats() map[string]int {
	return map[string]int{
		"published": int(p.published.Load()),
		"failed":    int(p.failed.Load()),
	}
}

func (p *Publisher) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch relays one batch and records the remaining backlog
func (p *Publisher) ProcessBatch(ctx context.Context) {
	if pending, err := p.repo.CountUnpublished(ctx); err == nil {
		p.metrics.SetOutboxPending(pending)
	}

	messages, err := p.repo.FindUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to load outbox batch")
		return
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}
		p.relay(ctx, msg)
	}
}

func (p *Publisher) relay(ctx context.Context, msg *Message) {
	log := p.logger.With("eventId", msg.ID, "eventType", msg.EventType, "aggregateId", msg.AggregateID)

	if err := p.deliver(ctx, msg); err != nil {
		p.failed.Add(1)
		log.WithError(err).Error("Failed to publish outbox message", "retryCount", msg.RetryCount)
		if err := p.repo.IncrementRetry(ctx, msg.ID, err.Error()); err != nil {
			log.WithError(err).Error("Failed to record outbox retry")
			return
		}
		msg.RetryCount++
		if !msg.ShouldRetry() {
			log.Warn("Outbox message parked after exhausting retries", "maxRetries", msg.MaxRetries)
		}
		return
	}

	p.published.Add(1)
	if err := p.repo.MarkPublished(ctx, msg.ID); err != nil {
		log.WithError(err).Error("Failed to mark outbox message published")
	}
}

func (p *Publisher) deliver(ctx context.Context, msg *Message) error {
	event, err := msg.Decode()
	if err != nil {
		return err
	}
	if err := p.producer.PublishEvent(ctx, msg.Topic, event); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Topic, err)
	}
	return nil
}
