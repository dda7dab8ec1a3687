package agent_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"agent-relay-gateway/internal/agent"
	"agent-relay-gateway/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// scriptedModel replies with fixed deltas and records what it was sent.
type scriptedModel struct {
	deltas []string
	err    error
	seen   []models.ChatMessage
}

func (m *scriptedModel) Generate(ctx context.Context, messages []models.ChatMessage) (*agent.Completion, error) {
	m.seen = messages
	if m.err != nil {
		return nil, m.err
	}
	return &agent.Completion{Text: strings.Join(m.deltas, ""), FinishReason: "stop"}, nil
}

func (m *scriptedModel) Stream(ctx context.Context, messages []models.ChatMessage, onDelta func(string) error) (*agent.Completion, error) {
	m.seen = messages
	for _, d := range m.deltas {
		if err := onDelta(d); err != nil {
			return nil, err
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &agent.Completion{
		Text:         strings.Join(m.deltas, ""),
		FinishReason: "stop",
		Usage:        models.Usage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7},
	}, nil
}

type mockMemory struct {
	mock.Mock
}

func (m *mockMemory) Recall(ctx context.Context, threadID, query string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, threadID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *mockMemory) Remember(ctx context.Context, threadID, resourceID string, messages ...models.ChatMessage) error {
	args := m.Called(ctx, threadID, resourceID, messages)
	return args.Error(0)
}

func userRequest(text string) models.AgentRequest {
	return models.AgentRequest{Messages: []models.ChatMessage{{Role: models.RoleUser, Content: text}}}
}

func collect(t *testing.T, a *agent.Agent, req models.AgentRequest) ([]agent.StreamEvent, error) {
	t.Helper()
	src, err := a.Stream(context.Background(), req)
	require.NoError(t, err)
	defer src.Close()

	var events []agent.StreamEvent
	for {
		ev, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev.(agent.StreamEvent))
	}
}

func TestAgent_Generate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		model := &scriptedModel{deltas: []string{"晴れ", "です"}}
		a := &agent.Agent{ID: "weatherAgent", Instructions: "You are a weather assistant.", Model: model, Logger: zerolog.Nop()}

		completion, err := a.Generate(context.Background(), userRequest("天気は？"))

		require.NoError(t, err)
		assert.Equal(t, "晴れです", completion.Text)
		require.Len(t, model.seen, 2)
		assert.Equal(t, models.RoleSystem, model.seen[0].Role)
		assert.Equal(t, "天気は？", model.seen[1].Content)
	})

	t.Run("NoMessages", func(t *testing.T) {
		a := &agent.Agent{ID: "weatherAgent", Model: &scriptedModel{}, Logger: zerolog.Nop()}

		_, err := a.Generate(context.Background(), models.AgentRequest{})

		assert.ErrorIs(t, err, agent.ErrNoMessages)
	})

	t.Run("ModelError", func(t *testing.T) {
		a := &agent.Agent{ID: "weatherAgent", Model: &scriptedModel{err: errors.New("rate limited")}, Logger: zerolog.Nop()}

		_, err := a.Generate(context.Background(), userRequest("hi"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("WithMemory", func(t *testing.T) {
		mem := new(mockMemory)
		history := []models.ChatMessage{{Role: models.RoleUser, Content: "earlier"}, {Role: models.RoleAssistant, Content: "reply"}}
		mem.On("Recall", mock.Anything, "thread-1", "now").Return(history, nil)
		mem.On("Remember", mock.Anything, "thread-1", "user-1", []models.ChatMessage{
			{Role: models.RoleUser, Content: "now"},
			{Role: models.RoleAssistant, Content: "ok"},
		}).Return(nil)

		model := &scriptedModel{deltas: []string{"ok"}}
		a := &agent.Agent{ID: "subAgent", Model: model, Memory: mem, Logger: zerolog.Nop()}
		req := userRequest("now")
		req.ThreadID = "thread-1"
		req.ResourceID = "user-1"

		_, err := a.Generate(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, []models.ChatMessage{history[0], history[1], {Role: models.RoleUser, Content: "now"}}, model.seen)
		mem.AssertExpectations(t)
	})

	t.Run("RememberFailureIsIgnored", func(t *testing.T) {
		mem := new(mockMemory)
		mem.On("Recall", mock.Anything, "thread-1", "now").Return([]models.ChatMessage{}, nil)
		mem.On("Remember", mock.Anything, "thread-1", "", mock.Anything).Return(errors.New("db down"))

		a := &agent.Agent{ID: "subAgent", Model: &scriptedModel{deltas: []string{"ok"}}, Memory: mem, Logger: zerolog.Nop()}
		req := userRequest("now")
		req.ThreadID = "thread-1"

		completion, err := a.Generate(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "ok", completion.Text)
	})

	t.Run("RecallFailure", func(t *testing.T) {
		mem := new(mockMemory)
		mem.On("Recall", mock.Anything, "thread-1", "now").Return(nil, errors.New("db down"))

		a := &agent.Agent{ID: "subAgent", Model: &scriptedModel{}, Memory: mem, Logger: zerolog.Nop()}
		req := userRequest("now")
		req.ThreadID = "thread-1"

		_, err := a.Generate(context.Background(), req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "thread-1")
	})
}

func TestAgent_Stream(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		a := &agent.Agent{ID: "weatherAgent", Model: &scriptedModel{deltas: []string{"Hello", ", ", "world"}}, Logger: zerolog.Nop()}

		events, err := collect(t, a, userRequest("hi"))

		require.NoError(t, err)
		require.Len(t, events, 5)
		assert.Equal(t, agent.EventStart, events[0].Type)
		assert.Equal(t, "weatherAgent", events[0].Payload["agentId"])

		var text strings.Builder
		for _, e := range events[1:4] {
			assert.Equal(t, agent.EventTextDelta, e.Type)
			assert.Equal(t, events[1].Payload["id"], e.Payload["id"])
			text.WriteString(e.Payload["text"].(string))
		}
		assert.Equal(t, "Hello, world", text.String())

		finish := events[4]
		assert.Equal(t, agent.EventFinish, finish.Type)
		assert.Equal(t, "stop", finish.Payload["finishReason"])
		assert.Equal(t, models.Usage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7}, finish.Payload["usage"])

		for _, e := range events {
			assert.Equal(t, events[0].RunID, e.RunID)
			assert.Equal(t, agent.FromAgent, e.From)
		}
	})

	t.Run("ModelFailsMidStream", func(t *testing.T) {
		a := &agent.Agent{ID: "weatherAgent", Model: &scriptedModel{deltas: []string{"Hel"}, err: errors.New("connection reset")}, Logger: zerolog.Nop()}

		events, err := collect(t, a, userRequest("hi"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		require.Len(t, events, 2)
		assert.Equal(t, agent.EventTextDelta, events[1].Type)
	})

	t.Run("PrepareErrorBeforeStreaming", func(t *testing.T) {
		a := &agent.Agent{ID: "weatherAgent", Model: &scriptedModel{}, Logger: zerolog.Nop()}

		src, err := a.Stream(context.Background(), models.AgentRequest{})

		assert.ErrorIs(t, err, agent.ErrNoMessages)
		assert.Nil(t, src)
	})
}
