package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"

	"github.com/palletspace/booking-service/pkg/metrics"
	pkgtemporal "github.com/palletspace/booking-service/pkg/temporal"
)

// SlotHoldScheduler runs one SlotHoldWorkflow per booking
type SlotHoldScheduler struct {
	client  *pkgtemporal.Client
	metrics *metrics.Metrics
}

// NewSlotHoldScheduler creates a new SlotHoldScheduler. m may be nil.
func NewSlotHoldScheduler(client *pkgtemporal.Client, m *metrics.Metrics) *SlotHoldScheduler {
	return &SlotHoldScheduler{client: client, metrics: m}
}

// WorkflowID is the slot hold workflow id of a booking
func WorkflowID(bookingID string) string {
	return "slot-hold-" + bookingID
}

// StartHold starts the hold timer. A hold already running for the booking is kept.
func (s *SlotHoldScheduler) StartHold(ctx context.Context, bookingID string, holdFor time.Duration) error {
	_, err := s.client.StartWorkflow(ctx, WorkflowID(bookingID), pkgtemporal.TaskQueues.SlotHold,
		pkgtemporal.WorkflowNames.SlotHold, SlotHoldInput{BookingID: bookingID, HoldFor: holdFor})
	if err != nil {
		return fmt.Errorf("failed to start slot hold: %w", err)
	}
	s.metrics.RecordWorkflowStarted(pkgtemporal.WorkflowNames.SlotHold)
	return nil
}

// SlotConfirmed ends the hold because the customer picked a slot
func (s *SlotHoldScheduler) SlotConfirmed(ctx context.Context, bookingID string) error {
	return s.signal(ctx, bookingID, pkgtemporal.SignalNames.SlotConfirmed, "confirmed")
}

// Release ends the hold without a slot
func (s *SlotHoldScheduler) Release(ctx context.Context, bookingID string) error {
	return s.signal(ctx, bookingID, pkgtemporal.SignalNames.HoldReleased, "released")
}

// signal ignores holds that already finished or never started
func (s *SlotHoldScheduler) signal(ctx context.Context, bookingID, name, outcome string) error {
	err := s.client.SignalWorkflow(ctx, WorkflowID(bookingID), name, bookingID)
	if err == nil {
		s.metrics.RecordWorkflowCompleted(pkgtemporal.WorkflowNames.SlotHold, outcome)
		return nil
	}
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to signal slot hold: %w", err)
}
