// Package temporal holds the Temporal client, worker and naming shared by
// the api process, which starts and signals slot holds, and the worker.
package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type Config struct {
	Enabled   bool
	HostPort  string
	Namespace string
	Identity  string
}

func DefaultConfig() *Config {
	return &Config{
		HostPort:  "localhost:7233",
		Namespace: "default",
		Identity:  "booking-service",
	}
}

var TaskQueues = struct {
	SlotHold string
}{
	SlotHold: "booking-slot-hold-queue",
}

var WorkflowNames = struct {
	SlotHold string
}{
	SlotHold: "SlotHoldWorkflow",
}

// SignalNames are the signals a running slot hold listens on
var SignalNames = struct {
	SlotConfirmed string
	HoldReleased  string
}{
	SlotConfirmed: "slot-confirmed",
	HoldReleased:  "hold-released",
}

var dial = client.Dial

// Client narrows the SDK client to what booking code needs
type Client struct {
	sdk    client.Client
	config *Config
}

func NewClient(config *Config) (*Client, error) {
	sdk, err := dial(client.Options{
		HostPort:  config.HostPort,
		Namespace: config.Namespace,
		Identity:  config.Identity,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal %s/%s: %w", config.HostPort, config.Namespace, err)
	}
	return Wrap(sdk, config), nil
}

// Wrap adopts an already built SDK client such as the SDK mocks
func Wrap(sdk client.Client, config *Config) *Client {
	return &Client{sdk: sdk, config: config}
}

func (c *Client) Close() {
	c.sdk.Close()
}

// StartWorkflow is idempotent per workflowID. A run already open under the
// id is returned instead of an error.
func (c *Client) StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error) {
	return c.sdk.ExecuteWorkflow(ctx, client.StartWorkflowOptions{ID: workflowID, TaskQueue: taskQueue}, workflowName, args...)
}

// SignalWorkflow targets the latest run of workflowID
func (c *Client) SignalWorkflow(ctx context.Context, workflowID, signalName string, arg interface{}) error {
	return c.sdk.SignalWorkflow(ctx, workflowID, "", signalName, arg)
}

func (c *Client) CheckHealth(ctx context.Context) error {
	if _, err := c.sdk.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return fmt.Errorf("temporal frontend: %w", err)
	}
	return nil
}

type WorkerOptions struct {
	TaskQueue               string
	MaxConcurrentActivities int
	MaxConcurrentWorkflows  int
}

// DefaultWorkerOptions sizes a worker for the slot hold load, which is one
// short timer workflow per pre-order.
func DefaultWorkerOptions(taskQueue string) *WorkerOptions {
	return &WorkerOptions{
		TaskQueue:               taskQueue,
		MaxConcurrentActivities: 20,
		MaxConcurrentWorkflows:  50,
	}
}

func (c *Client) NewWorker(opts *WorkerOptions) worker.Worker {
	return worker.New(c.sdk, opts.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     opts.MaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: opts.MaxConcurrentWorkflows,
	})
}

// DefaultActivityOptions retries with exponential backoff for up to five
// attempts, each bounded to a minute.
func DefaultActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}
}
