// Package agent implements LLM-backed agents that answer a message list
// either in one piece or as a stream of events.
package agent

import (
	"context"
	"errors"
	"fmt"

	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/pkg/sse"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNoMessages = errors.New("at least one message is required")

// ChatModel is the language model behind an agent.
type ChatModel interface {
	// Generate returns the complete assistant reply.
	Generate(ctx context.Context, messages []models.ChatMessage) (*Completion, error)

	// Stream calls onDelta for every text fragment as it arrives and returns
	// the assembled reply once the model is done. An error from onDelta
	// aborts the call.
	Stream(ctx context.Context, messages []models.ChatMessage, onDelta func(text string) error) (*Completion, error)
}

// Memory supplies conversation history for a thread and stores new turns.
type Memory interface {
	Recall(ctx context.Context, threadID string, query string) ([]models.ChatMessage, error)
	Remember(ctx context.Context, threadID, resourceID string, messages ...models.ChatMessage) error
}

type Completion struct {
	Text         string
	FinishReason string
	Usage        models.Usage
}

type Agent struct {
	ID           string
	Name         string
	Description  string
	Instructions string
	Model        ChatModel
	Memory       Memory
	Logger       zerolog.Logger
}

// Generate answers req with a single completion.
func (a *Agent) Generate(ctx context.Context, req models.AgentRequest) (*Completion, error) {
	messages, err := a.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	completion, err := a.Model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.ID, err)
	}

	a.remember(ctx, req, completion.Text)
	return completion, nil
}

// Stream prepares the conversation and returns a source that emits
// start, text-delta and finish events while the model generates. Errors
// found while preparing are returned before any event is produced.
func (a *Agent) Stream(ctx context.Context, req models.AgentRequest) (sse.Source, error) {
	messages, err := a.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	event := func(eventType string, payload map[string]any) StreamEvent {
		return StreamEvent{Type: eventType, RunID: runID, From: FromAgent, Payload: payload}
	}

	return sse.Pipe(ctx, func(ctx context.Context, emit sse.Emit) error {
		if err := emit(event(EventStart, map[string]any{"agentId": a.ID})); err != nil {
			return err
		}

		textID := uuid.New().String()
		completion, err := a.Model.Stream(ctx, messages, func(text string) error {
			return emit(event(EventTextDelta, map[string]any{"id": textID, "text": text}))
		})
		if err != nil {
			return fmt.Errorf("agent %s: %w", a.ID, err)
		}

		a.remember(ctx, req, completion.Text)

		return emit(event(EventFinish, map[string]any{
			"finishReason": completion.FinishReason,
			"usage":        completion.Usage,
		}))
	}), nil
}

func (a *Agent) prepare(ctx context.Context, req models.AgentRequest) ([]models.ChatMessage, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}

	messages := make([]models.ChatMessage, 0, len(req.Messages)+1)
	if a.Instructions != "" {
		messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: a.Instructions})
	}

	if a.Memory != nil && req.ThreadID != "" {
		history, err := a.Memory.Recall(ctx, req.ThreadID, lastUserText(req.Messages))
		if err != nil {
			return nil, fmt.Errorf("failed to recall thread %s: %w", req.ThreadID, err)
		}
		messages = append(messages, history...)
	}

	return append(messages, req.Messages...), nil
}

// remember persists the turn. Memory failures never fail the reply.
func (a *Agent) remember(ctx context.Context, req models.AgentRequest, reply string) {
	if a.Memory == nil || req.ThreadID == "" {
		return
	}

	turn := make([]models.ChatMessage, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		if m.Role != models.RoleSystem {
			turn = append(turn, m)
		}
	}
	turn = append(turn, models.ChatMessage{Role: models.RoleAssistant, Content: reply})

	if err := a.Memory.Remember(ctx, req.ThreadID, req.ResourceID, turn...); err != nil {
		a.Logger.Warn().Err(err).Str("agent", a.ID).Str("thread_id", req.ThreadID).Msg("Failed to save thread messages")
	}
}

func lastUserText(messages []models.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
