package services

import (
	"context"
	"fmt"
	"time"

	"agent-relay-gateway/internal/config"
	"agent-relay-gateway/internal/models"

	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
)

type TemporalClient struct {
	client client.Client
	cfg    *config.TemporalConfig
}

func NewTemporalClient(cfg *config.TemporalConfig) (*TemporalClient, error) {
	c, err := client.Dial(client.Options{
		HostPort:  fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}

	return &TemporalClient{
		client: c,
		cfg:    cfg,
	}, nil
}

// Client exposes the underlying SDK client so a worker can share the
// connection.
func (tc *TemporalClient) Client() client.Client {
	return tc.client
}

func (tc *TemporalClient) Close() {
	tc.client.Close()
}

// StartWorkflowRun schedules a registered workflow on the worker task queue.
// The Temporal workflow ID is the run ID.
func (tc *TemporalClient) StartWorkflowRun(ctx context.Context, in models.DurableRunInput) (string, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:        in.RunID,
		TaskQueue: tc.cfg.TaskQueue,
	}

	we, err := tc.client.ExecuteWorkflow(ctx, workflowOptions, models.DurableRunWorkflow, in)
	if err != nil {
		return "", fmt.Errorf("failed to start workflow run %s: %w", in.RunID, err)
	}

	return we.GetID(), nil
}

// QueryWorkflowStatus returns the Temporal execution status, e.g. "Running"
// or "Completed".
func (tc *TemporalClient) QueryWorkflowStatus(ctx context.Context, workflowID string) (string, error) {
	resp, err := tc.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return "", fmt.Errorf("failed to describe workflow %s: %w", workflowID, err)
	}
	return resp.GetWorkflowExecutionInfo().GetStatus().String(), nil
}

func (tc *TemporalClient) CancelWorkflow(ctx context.Context, workflowID string) error {
	return tc.client.CancelWorkflow(ctx, workflowID, "")
}

func (tc *TemporalClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := tc.client.WorkflowService().GetSystemInfo(ctx, &workflowservice.GetSystemInfoRequest{})
	return err
}
