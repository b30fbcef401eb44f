package workflows

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
	pkgtemporal "github.com/palletspace/booking-service/pkg/temporal"
)

// HoldExpirer is the booking operation run when a hold times out
type HoldExpirer interface {
	ExpireSlotHold(ctx context.Context, bookingID string) (bool, error)
}

// SlotHoldActivities contains the activities of the slot hold workflow
type SlotHoldActivities struct {
	bookings HoldExpirer
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewSlotHoldActivities creates a new SlotHoldActivities instance
func NewSlotHoldActivities(bookings HoldExpirer, logger *logging.Logger, m *metrics.Metrics) *SlotHoldActivities {
	return &SlotHoldActivities{
		bookings: bookings,
		logger:   logger.WithComponent("slot-hold"),
		metrics:  m,
	}
}

// ExpireSlotHold requests cancellation of a booking still waiting for a slot
func (a *SlotHoldActivities) ExpireSlotHold(ctx context.Context, bookingID string) (bool, error) {
	cancelled, err := a.bookings.ExpireSlotHold(ctx, bookingID)
	if err != nil {
		a.logger.WithContext(ctx).WithError(err).Error("Failed to expire slot hold", "bookingId", bookingID)
		a.metrics.RecordWorkflowCompleted(pkgtemporal.WorkflowNames.SlotHold, "error")
		return false, err
	}
	a.metrics.RecordWorkflowCompleted(pkgtemporal.WorkflowNames.SlotHold, "expired")
	if !cancelled {
		a.logger.WithContext(ctx).Info("Slot hold expired after the booking moved on", "bookingId", bookingID)
	}
	return cancelled, nil
}

// Register adds the slot hold workflow and its activities to a worker
func Register(w worker.Registry, activities *SlotHoldActivities) {
	w.RegisterWorkflowWithOptions(SlotHoldWorkflow, workflow.RegisterOptions{Name: pkgtemporal.WorkflowNames.SlotHold})
	w.RegisterActivityWithOptions(activities.ExpireSlotHold, activity.RegisterOptions{Name: ActivityNames.ExpireSlotHold})
}
