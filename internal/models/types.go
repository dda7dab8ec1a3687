package models

import "time"

// ChatMessage is one turn of a conversation sent to an agent.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type AgentRequest struct {
	Messages   []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	ThreadID   string        `json:"threadId,omitempty"`
	ResourceID string        `json:"resourceId,omitempty"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type AgentListResponse struct {
	Agents []string `json:"agents"`
}

type AgentDetail struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

type WorkflowRequest struct {
	InputData map[string]any `json:"inputData"`
}

type WorkflowListResponse struct {
	Workflows []string `json:"workflows"`
}

type WorkflowDetail struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Steps       []string `json:"steps"`
}

type StartRunResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// Usage reports token consumption of a run or generation.
type Usage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

type Thread struct {
	ID           string    `json:"id"`
	ResourceID   string    `json:"resourceId,omitempty"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

type ThreadListResponse struct {
	Threads []Thread `json:"threads"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageListResponse struct {
	Messages []Message `json:"messages"`
}

// WorkflowRun is the stored record of a finished or in-flight workflow run.
type WorkflowRun struct {
	ID           string         `json:"runId"`
	WorkflowName string         `json:"workflowName"`
	Status       string         `json:"status"`
	Input        map[string]any `json:"input,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	ErrorMessage string         `json:"error,omitempty"`
	ArchiveKey   string         `json:"archiveKey,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	FinishedAt   *time.Time     `json:"finishedAt,omitempty"`
}

const (
	RunStatusRunning   = "running"
	RunStatusSuccess   = "success"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// DurableRunWorkflow is the Temporal workflow type that executes a
// registered workflow on a worker.
const DurableRunWorkflow = "RunRegisteredWorkflow"

// DurableRunInput is the argument of DurableRunWorkflow.
type DurableRunInput struct {
	RunID        string         `json:"runId"`
	WorkflowName string         `json:"workflowName"`
	Input        map[string]any `json:"input"`
}

type RunListResponse struct {
	Runs   []WorkflowRun `json:"runs"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type RunDetailResponse struct {
	Run           *WorkflowRun `json:"run,omitempty"`
	DurableStatus string       `json:"durableStatus,omitempty"`
}

type ArchiveResponse struct {
	RunID       string `json:"runId"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresIn   string `json:"expiresIn"`
}

// ErrorResponse is the body of every non-streaming failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ReadinessResponse struct {
	Status         string            `json:"status"`
	Dependencies   map[string]string `json:"dependencies"`
	ActiveSessions int               `json:"activeSessions"`
}
