// Package worker executes registered workflows durably on Temporal.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/internal/registry"
	"agent-relay-gateway/internal/repository"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	sdkworker "go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

const executeActivity = "ExecuteRegisteredWorkflow"

// Archiver stores a finished run outside the database and returns its key.
type Archiver interface {
	ArchiveRun(ctx context.Context, run *models.WorkflowRun) (string, error)
}

// RunRegisteredWorkflow is the Temporal workflow behind durable runs. It
// hands the whole registered workflow to one activity so retries restart
// the run from its first step.
func RunRegisteredWorkflow(ctx workflow.Context, in models.DurableRunInput) (*models.WorkflowRun, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})

	var run models.WorkflowRun
	if err := workflow.ExecuteActivity(ctx, executeActivity, in).Get(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

type Activities struct {
	Registry *registry.Registry
	Runs     repository.RunRepository
	Archive  Archiver
	Logger   zerolog.Logger
}

// ExecuteRegisteredWorkflow runs the named workflow to completion, records
// the outcome and archives it when an archiver is configured. A failed step
// is a recorded outcome, not an activity error.
func (a *Activities) ExecuteRegisteredWorkflow(ctx context.Context, in models.DurableRunInput) (*models.WorkflowRun, error) {
	logger := a.Logger.With().Str("run_id", in.RunID).Str("workflow", in.WorkflowName).Logger()

	wf, err := a.Registry.Workflow(in.WorkflowName)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "WorkflowNotFound", err)
	}

	run, err := wf.CreateRunWithID(in.RunID, in.Input)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
	}

	record := &models.WorkflowRun{
		ID:           in.RunID,
		WorkflowName: in.WorkflowName,
		Status:       models.RunStatusRunning,
		Input:        run.Input(),
		CreatedAt:    time.Now(),
	}
	if existing, err := a.Runs.GetRun(ctx, in.RunID); err == nil && existing != nil {
		record.CreatedAt = existing.CreatedAt
	}
	if err := a.Runs.SaveRun(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	stop := heartbeat(ctx)
	res, err := run.Execute(ctx)
	stop()

	finished := time.Now()
	record.FinishedAt = &finished
	switch {
	case res != nil:
		record.Status = res.Status
		record.Result = res.Result
		record.ErrorMessage = res.Error
	case err != nil:
		record.Status = models.RunStatusFailed
		record.ErrorMessage = err.Error()
	}

	if a.Archive != nil {
		key, archiveErr := a.Archive.ArchiveRun(ctx, record)
		if archiveErr != nil {
			logger.Warn().Err(archiveErr).Msg("Failed to archive run")
		} else {
			record.ArchiveKey = key
		}
	}

	// The record is saved with a fresh context so a cancelled run still
	// leaves its final status behind.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if saveErr := a.Runs.SaveRun(saveCtx, record); saveErr != nil {
		return nil, fmt.Errorf("failed to record run result: %w", saveErr)
	}

	logger.Info().Str("status", record.Status).Msg("Durable run finished")

	if errors.Is(err, context.Canceled) {
		return nil, temporal.NewCanceledError(record.ErrorMessage)
	}
	return record, nil
}

func heartbeat(ctx context.Context) (stop func()) {
	if !activity.IsActivity(ctx) {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}

// Registrar is satisfied by a Temporal worker and by the SDK test
// environment.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register adds the durable run workflow and its activity to w.
func Register(w Registrar, activities *Activities) {
	w.RegisterWorkflowWithOptions(RunRegisteredWorkflow, workflow.RegisterOptions{Name: models.DurableRunWorkflow})
	w.RegisterActivityWithOptions(activities.ExecuteRegisteredWorkflow, activity.RegisterOptions{Name: executeActivity})
}

// New creates a worker polling taskQueue with everything registered.
func New(c client.Client, taskQueue string, activities *Activities) sdkworker.Worker {
	w := sdkworker.New(c, taskQueue, sdkworker.Options{})
	Register(w, activities)
	return w
}
