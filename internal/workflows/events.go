package workflows

import "agent-relay-gateway/internal/models"

const (
	EventWorkflowStart    = "workflow-start"
	EventStepStart        = "workflow-step-start"
	EventStepOutput       = "workflow-step-output"
	EventStepResult       = "workflow-step-result"
	EventWorkflowFinish   = "workflow-finish"
	EventWorkflowComplete = "workflow-complete"
)

// Event sources. FromUser marks payloads a step pushed on its output handle.
const (
	FromWorkflow = "WORKFLOW"
	FromUser     = "USER"
)

type Event struct {
	Type    string         `json:"type"`
	RunID   string         `json:"runId"`
	From    string         `json:"from"`
	Payload map[string]any `json:"payload,omitempty"`
}

// CompleteEvent is the final summary published after workflow-finish.
type CompleteEvent struct {
	Type   string       `json:"type"`
	RunID  string       `json:"runId"`
	Result *Result      `json:"result"`
	Status string       `json:"status"`
	Usage  models.Usage `json:"usage"`
}
