package testing

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const pollEvery = 10 * time.Millisecond

// AssertEventually stops the test when condition has not held by timeout.
// Integration suites use it to wait for the outbox and the slot-hold worker.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()
	require.Eventually(t, condition, timeout, pollEvery, message)
}

// CreateTestContext bounds container startup and other slow setup
func CreateTestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// UniqueDatabaseName gives every test its own throwaway database
func UniqueDatabaseName(prefix string) string {
	return prefix + "_" + strconv.FormatInt(time.Now().UnixNano(), 36)
}
