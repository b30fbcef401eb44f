package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/palletspace/booking-service/pkg/metrics"
	pkgtemporal "github.com/palletspace/booking-service/pkg/temporal"
)

func newTestScheduler() (*SlotHoldScheduler, *mocks.Client) {
	sdk := &mocks.Client{}
	return NewSlotHoldScheduler(pkgtemporal.Wrap(sdk, pkgtemporal.DefaultConfig()), nil), sdk
}

func TestSlotHoldScheduler_StartHold(t *testing.T) {
	scheduler, sdk := newTestScheduler()

	sdk.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.ID == "slot-hold-b-1" && o.TaskQueue == pkgtemporal.TaskQueues.SlotHold
		}),
		pkgtemporal.WorkflowNames.SlotHold,
		SlotHoldInput{BookingID: "b-1", HoldFor: time.Hour},
	).Return(&mocks.WorkflowRun{}, nil).Once()

	assert.NoError(t, scheduler.StartHold(context.Background(), "b-1", time.Hour))
	sdk.AssertExpectations(t)
}

func TestSlotHoldScheduler_StartHoldFails(t *testing.T) {
	scheduler, sdk := newTestScheduler()
	sdk.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("frontend unavailable"))

	assert.Error(t, scheduler.StartHold(context.Background(), "b-1", time.Hour))
}

func TestSlotHoldScheduler_Signals(t *testing.T) {
	scheduler, sdk := newTestScheduler()

	sdk.On("SignalWorkflow", mock.Anything, "slot-hold-b-1", "", pkgtemporal.SignalNames.SlotConfirmed, "b-1").
		Return(nil).Once()
	sdk.On("SignalWorkflow", mock.Anything, "slot-hold-b-2", "", pkgtemporal.SignalNames.HoldReleased, "b-2").
		Return(serviceerror.NewNotFound("workflow execution already completed")).Once()
	sdk.On("SignalWorkflow", mock.Anything, "slot-hold-b-3", "", pkgtemporal.SignalNames.HoldReleased, "b-3").
		Return(errors.New("deadline exceeded")).Once()

	ctx := context.Background()
	assert.NoError(t, scheduler.SlotConfirmed(ctx, "b-1"))
	assert.NoError(t, scheduler.Release(ctx, "b-2"))
	assert.Error(t, scheduler.Release(ctx, "b-3"))
	sdk.AssertExpectations(t)
}

func TestSlotHoldScheduler_RecordsOutcomes(t *testing.T) {
	sdk := &mocks.Client{}
	m := metrics.New(metrics.DefaultConfig("booking-service"))
	scheduler := NewSlotHoldScheduler(pkgtemporal.Wrap(sdk, pkgtemporal.DefaultConfig()), m)

	sdk.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mocks.WorkflowRun{}, nil)
	sdk.On("SignalWorkflow", mock.Anything, mock.Anything, "", mock.Anything, mock.Anything).
		Return(nil)

	ctx := context.Background()
	assert.NoError(t, scheduler.StartHold(ctx, "b-1", time.Hour))
	assert.NoError(t, scheduler.SlotConfirmed(ctx, "b-1"))

	workflowType := pkgtemporal.WorkflowNames.SlotHold
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowsStarted.WithLabelValues("booking-service", workflowType)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowsCompleted.WithLabelValues("booking-service", workflowType, "confirmed")))
}
