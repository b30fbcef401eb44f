package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"

	pkgtemporal "github.com/palletspace/booking-service/pkg/temporal"
)

// DefaultHold is used when a hold is started without a duration
const DefaultHold = 48 * time.Hour

// Hold outcomes
const (
	OutcomeConfirmed = "confirmed"
	OutcomeReleased  = "released"
	OutcomeExpired   = "expired"
)

// ActivityNames contains the registered activity names
var ActivityNames = struct {
	ExpireSlotHold string
}{
	ExpireSlotHold: "ExpireSlotHold",
}

// SlotHoldInput is the input of SlotHoldWorkflow
type SlotHoldInput struct {
	BookingID string        `json:"bookingId"`
	HoldFor   time.Duration `json:"holdFor"`
}

// SlotHoldResult reports how a hold ended
type SlotHoldResult struct {
	BookingID string `json:"bookingId"`
	Outcome   string `json:"outcome"`
	// Cancelled is set when the expiry moved the booking to cancel_request
	Cancelled bool `json:"cancelled"`
}

// SlotHoldWorkflow waits for the customer to pick a drop-in slot. A confirm
// or release signal ends the hold quietly; the timer firing first requests
// cancellation of the booking.
func SlotHoldWorkflow(ctx workflow.Context, input SlotHoldInput) (*SlotHoldResult, error) {
	logger := workflow.GetLogger(ctx)

	holdFor := input.HoldFor
	if holdFor <= 0 {
		holdFor = DefaultHold
	}
	logger.Info("Slot hold started", "bookingId", input.BookingID, "holdFor", holdFor)

	result := &SlotHoldResult{BookingID: input.BookingID}

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()

	selector := workflow.NewSelector(ctx)
	selector.AddReceive(workflow.GetSignalChannel(ctx, pkgtemporal.SignalNames.SlotConfirmed), func(c workflow.ReceiveChannel, more bool) {
		var bookingID string
		c.Receive(ctx, &bookingID)
		result.Outcome = OutcomeConfirmed
	})
	selector.AddReceive(workflow.GetSignalChannel(ctx, pkgtemporal.SignalNames.HoldReleased), func(c workflow.ReceiveChannel, more bool) {
		var bookingID string
		c.Receive(ctx, &bookingID)
		result.Outcome = OutcomeReleased
	})
	selector.AddFuture(workflow.NewTimer(timerCtx, holdFor), func(f workflow.Future) {
		if f.Get(ctx, nil) == nil {
			result.Outcome = OutcomeExpired
		}
	})
	selector.Select(ctx)

	if result.Outcome != OutcomeExpired {
		logger.Info("Slot hold ended", "bookingId", input.BookingID, "outcome", result.Outcome)
		return result, nil
	}

	actCtx := workflow.WithActivityOptions(ctx, pkgtemporal.DefaultActivityOptions())
	if err := workflow.ExecuteActivity(actCtx, ActivityNames.ExpireSlotHold, input.BookingID).Get(ctx, &result.Cancelled); err != nil {
		logger.Error("Slot hold expiry failed", "bookingId", input.BookingID, "error", err)
		return nil, err
	}

	logger.Info("Slot hold expired", "bookingId", input.BookingID, "cancelled", result.Cancelled)
	return result, nil
}
