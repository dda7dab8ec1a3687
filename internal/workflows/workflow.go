// Package workflows runs named sequences of steps and reports their progress
// as an ordered event stream.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/pkg/sse"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid workflow input")

// InputStep is the Result.Steps key holding the run input. No step may use it
// as its ID.
const InputStep = "input"

// StepFunc transforms the output of the previous step (or the run input) into
// this step's output. Auxiliary progress events may be sent on out; they are
// relayed in order, before the step result. out must not be used after the
// function returns.
type StepFunc func(ctx context.Context, input map[string]any, out chan<- any) (map[string]any, error)

type Step struct {
	ID          string
	Description string
	Execute     StepFunc
}

type Workflow struct {
	ID          string
	Description string
	Steps       []Step

	// Validate rejects bad input before a run is created. Optional.
	Validate func(input map[string]any) error
}

func (w *Workflow) StepIDs() []string {
	ids := make([]string, len(w.Steps))
	for i, step := range w.Steps {
		ids[i] = step.ID
	}
	return ids
}

// CreateRun validates input and prepares a run that has not started yet.
func (w *Workflow) CreateRun(input map[string]any) (*Run, error) {
	return w.CreateRunWithID(uuid.New().String(), input)
}

// CreateRunWithID is CreateRun for a caller that already assigned the run ID.
func (w *Workflow) CreateRunWithID(id string, input map[string]any) (*Run, error) {
	if input == nil {
		input = map[string]any{}
	}
	if w.Validate != nil {
		if err := w.Validate(input); err != nil {
			return nil, err
		}
	}
	return &Run{
		ID:       id,
		workflow: w,
		input:    input,
	}, nil
}

// StepRecord is the outcome of one step within a Result.
type StepRecord struct {
	Payload   map[string]any `json:"payload"`
	StartedAt int64          `json:"startedAt"`
	Status    string         `json:"status"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	EndedAt   int64          `json:"endedAt"`
}

// Result is the final state of a run.
type Result struct {
	Status string                `json:"status"`
	Steps  map[string]StepRecord `json:"steps"`
	Input  map[string]any        `json:"input"`
	Result map[string]any        `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
	Usage  models.Usage          `json:"usage"`
}

type Run struct {
	ID       string
	workflow *Workflow
	input    map[string]any

	mu     sync.Mutex
	result *Result
}

func (r *Run) WorkflowID() string { return r.workflow.ID }

func (r *Run) Input() map[string]any { return r.input }

// Result returns the final result, or nil while the run has not finished.
func (r *Run) Result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Stream starts the run in the background and returns its event stream.
// Closing the source cancels the run.
func (r *Run) Stream(ctx context.Context) sse.Source {
	return sse.Pipe(ctx, func(ctx context.Context, emit sse.Emit) error {
		_, err := r.execute(ctx, emit)
		return err
	})
}

// Execute runs to completion without publishing events.
func (r *Run) Execute(ctx context.Context) (*Result, error) {
	return r.execute(ctx, func(any) error { return ctx.Err() })
}

func (r *Run) execute(ctx context.Context, emit func(any) error) (*Result, error) {
	res := &Result{
		Status: models.RunStatusRunning,
		Steps:  make(map[string]StepRecord, len(r.workflow.Steps)+1),
		Input:  r.input,
	}
	started := nowMillis()
	res.Steps[InputStep] = StepRecord{
		Payload:   r.input,
		StartedAt: started,
		Status:    models.RunStatusSuccess,
		Output:    r.input,
		EndedAt:   started,
	}

	fail := func(err error) (*Result, error) {
		if ctx.Err() != nil {
			res.Status = models.RunStatusCancelled
			res.Error = ctx.Err().Error()
			r.finish(res)
			return res, ctx.Err()
		}
		return nil, err
	}

	if err := emit(r.event(EventWorkflowStart, FromWorkflow, map[string]any{"workflowId": r.workflow.ID})); err != nil {
		return fail(err)
	}

	current := r.input
	for _, step := range r.workflow.Steps {
		callID := uuid.New().String()
		rec := StepRecord{Payload: current, StartedAt: nowMillis(), Status: "running"}

		if err := emit(r.event(EventStepStart, FromWorkflow, map[string]any{
			"stepName":   step.ID,
			"id":         step.ID,
			"stepCallId": callID,
			"payload":    cloneMap(current),
			"startedAt":  rec.StartedAt,
			"status":     rec.Status,
		})); err != nil {
			return fail(err)
		}

		output, err := r.runStep(ctx, step, current, emit)
		if err != nil && ctx.Err() != nil {
			return fail(err)
		}
		rec.EndedAt = nowMillis()

		payload := map[string]any{
			"stepName":   step.ID,
			"id":         step.ID,
			"stepCallId": callID,
			"endedAt":    rec.EndedAt,
		}
		if err != nil {
			rec.Status = models.RunStatusFailed
			rec.Error = err.Error()
			payload["status"] = rec.Status
			payload["error"] = rec.Error
		} else {
			rec.Status = models.RunStatusSuccess
			rec.Output = output
			payload["status"] = rec.Status
			payload["output"] = cloneMap(output)
		}
		res.Steps[step.ID] = rec

		if err := emit(r.event(EventStepResult, FromWorkflow, payload)); err != nil {
			return fail(err)
		}

		if rec.Status == models.RunStatusFailed {
			res.Status = models.RunStatusFailed
			res.Error = fmt.Sprintf("step %s failed: %s", step.ID, rec.Error)
			break
		}
		current = output
	}

	if res.Status == models.RunStatusRunning {
		res.Status = models.RunStatusSuccess
		res.Result = current
	}

	if err := emit(r.event(EventWorkflowFinish, FromWorkflow, map[string]any{
		"workflowStatus": res.Status,
		"output":         map[string]any{"usage": res.Usage},
		"metadata":       map[string]any{},
	})); err != nil {
		return fail(err)
	}

	if err := emit(CompleteEvent{
		Type:   EventWorkflowComplete,
		RunID:  r.ID,
		Result: res,
		Status: res.Status,
		Usage:  res.Usage,
	}); err != nil {
		return fail(err)
	}

	r.finish(res)
	return res, nil
}

// runStep executes one step while forwarding whatever it sends on its
// output handle. The forwarder keeps draining after an emit failure so the
// step can never block on a send.
func (r *Run) runStep(ctx context.Context, step Step, input map[string]any, emit func(any) error) (output map[string]any, err error) {
	out := make(chan any)
	forwarded := make(chan error, 1)

	go func() {
		var emitErr error
		for payload := range out {
			if emitErr != nil {
				continue
			}
			emitErr = emit(r.event(EventStepOutput, FromUser, map[string]any{
				"output":   payload,
				"runId":    r.ID,
				"stepName": step.ID,
			}))
		}
		forwarded <- emitErr
	}()

	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("step panicked: %v", p)
			}
		}()
		output, err = step.Execute(ctx, input, out)
	}()
	close(out)

	if emitErr := <-forwarded; emitErr != nil && err == nil {
		err = emitErr
	}
	if err == nil && output == nil {
		output = map[string]any{}
	}
	return output, err
}

func (r *Run) finish(res *Result) {
	r.mu.Lock()
	r.result = res
	r.mu.Unlock()
}

func (r *Run) event(eventType, from string, payload map[string]any) Event {
	return Event{Type: eventType, RunID: r.ID, From: from, Payload: payload}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
