package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/palletspace/booking-service/pkg/logging"
	pkgtemporal "github.com/palletspace/booking-service/pkg/temporal"
)

type fakeExpirer struct {
	calls     []string
	cancelled bool
	err       error
}

func (f *fakeExpirer) ExpireSlotHold(ctx context.Context, bookingID string) (bool, error) {
	f.calls = append(f.calls, bookingID)
	return f.cancelled, f.err
}

func newHoldEnv(expirer *fakeExpirer) *testsuite.TestWorkflowEnvironment {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	acts := NewSlotHoldActivities(expirer, logging.NewNop(), nil)
	env.RegisterActivityWithOptions(acts.ExpireSlotHold, activity.RegisterOptions{Name: ActivityNames.ExpireSlotHold})
	return env
}

func TestSlotHoldWorkflow_ExpiresWithoutSignal(t *testing.T) {
	expirer := &fakeExpirer{cancelled: true}
	env := newHoldEnv(expirer)

	env.ExecuteWorkflow(SlotHoldWorkflow, SlotHoldInput{BookingID: "b-1", HoldFor: 2 * time.Hour})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result SlotHoldResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, OutcomeExpired, result.Outcome)
	assert.True(t, result.Cancelled)
	assert.Equal(t, []string{"b-1"}, expirer.calls)
}

func TestSlotHoldWorkflow_ConfirmSignalEndsHold(t *testing.T) {
	expirer := &fakeExpirer{}
	env := newHoldEnv(expirer)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(pkgtemporal.SignalNames.SlotConfirmed, "b-1")
	}, time.Hour)
	env.ExecuteWorkflow(SlotHoldWorkflow, SlotHoldInput{BookingID: "b-1", HoldFor: 2 * time.Hour})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result SlotHoldResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.False(t, result.Cancelled)
	assert.Empty(t, expirer.calls)
}

func TestSlotHoldWorkflow_ReleaseSignalEndsHold(t *testing.T) {
	expirer := &fakeExpirer{}
	env := newHoldEnv(expirer)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(pkgtemporal.SignalNames.HoldReleased, "b-1")
	}, time.Minute)
	env.ExecuteWorkflow(SlotHoldWorkflow, SlotHoldInput{BookingID: "b-1"})

	require.True(t, env.IsWorkflowCompleted())
	var result SlotHoldResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, OutcomeReleased, result.Outcome)
	assert.Empty(t, expirer.calls)
}

func TestSlotHoldWorkflow_ExpiryAfterBookingMovedOn(t *testing.T) {
	expirer := &fakeExpirer{cancelled: false}
	env := newHoldEnv(expirer)

	env.ExecuteWorkflow(SlotHoldWorkflow, SlotHoldInput{BookingID: "b-2", HoldFor: time.Hour})

	require.True(t, env.IsWorkflowCompleted())
	var result SlotHoldResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, OutcomeExpired, result.Outcome)
	assert.False(t, result.Cancelled)
}

func TestSlotHoldWorkflow_ExpiryFails(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("mongo unavailable")}
	env := newHoldEnv(expirer)

	env.ExecuteWorkflow(SlotHoldWorkflow, SlotHoldInput{BookingID: "b-3", HoldFor: time.Hour})

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	assert.NotEmpty(t, expirer.calls)
}
