package registry_test

import (
	"context"
	"testing"

	"agent-relay-gateway/internal/agent"
	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/internal/registry"
	"agent-relay-gateway/internal/workflows"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoModel struct{}

func (echoModel) Generate(ctx context.Context, messages []models.ChatMessage) (*agent.Completion, error) {
	return &agent.Completion{Text: messages[len(messages)-1].Content}, nil
}

func (echoModel) Stream(ctx context.Context, messages []models.ChatMessage, onDelta func(string) error) (*agent.Completion, error) {
	text := messages[len(messages)-1].Content
	return &agent.Completion{Text: text}, onDelta(text)
}

func TestDefault(t *testing.T) {
	reg, err := registry.Default(echoModel{}, nil, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"subAgent", "weatherAgent"}, reg.AgentNames())
	assert.Equal(t, []string{"testWorkflow"}, reg.WorkflowNames())

	weather, err := reg.Agent("weatherAgent")
	require.NoError(t, err)
	assert.Equal(t, "Weather Agent", weather.Name)

	wf, err := reg.Workflow("testWorkflow")
	require.NoError(t, err)
	assert.Equal(t, []string{"step1", "step2"}, wf.StepIDs())
}

// nopMemory satisfies agent.Memory without storing anything.
type nopMemory struct{}

func (nopMemory) Recall(ctx context.Context, threadID, query string) ([]models.ChatMessage, error) {
	return nil, nil
}

func (nopMemory) Remember(ctx context.Context, threadID, resourceID string, messages ...models.ChatMessage) error {
	return nil
}

func TestDefault_Catalog(t *testing.T) {
	mem := nopMemory{}
	reg, err := registry.Default(echoModel{}, mem, zerolog.Nop())
	require.NoError(t, err)

	weather, err := reg.Agent("weatherAgent")
	require.NoError(t, err)
	assert.Equal(t, agent.Memory(mem), weather.Memory)
	assert.Equal(t, "You are a weather agent that helps users with weather information.", weather.Instructions)

	sub, err := reg.Agent("subAgent")
	require.NoError(t, err)
	assert.Nil(t, sub.Memory)
	assert.Equal(t, "Sub Agent", sub.Name)
	assert.Equal(t, "現在の時刻を確認して適切な挨拶を日本語で返すエージェント", sub.Description)
	assert.Equal(t, "いまが朝か昼か夜かを確認してください。回答に応じて適当なあいさつを日本語でします", sub.Instructions)
}

func TestRegistry_Lookup(t *testing.T) {
	reg, err := registry.Default(echoModel{}, nil, zerolog.Nop())
	require.NoError(t, err)

	t.Run("UnknownAgent", func(t *testing.T) {
		_, err := reg.Agent("nonexistent")
		assert.ErrorIs(t, err, registry.ErrAgentNotFound)
	})

	t.Run("UnknownWorkflow", func(t *testing.T) {
		_, err := reg.Workflow("nonexistent")
		assert.ErrorIs(t, err, registry.ErrWorkflowNotFound)
	})

	t.Run("NamesAreCaseSensitive", func(t *testing.T) {
		_, err := reg.Agent("WeatherAgent")
		assert.ErrorIs(t, err, registry.ErrAgentNotFound)
	})
}

func TestNew_Validation(t *testing.T) {
	t.Run("AgentWithoutModel", func(t *testing.T) {
		_, err := registry.New(map[string]*agent.Agent{"a": {ID: "a"}}, nil)
		assert.Error(t, err)
	})

	t.Run("ReservedStepID", func(t *testing.T) {
		wf := &workflows.Workflow{ID: "w", Steps: []workflows.Step{{ID: workflows.InputStep}}}
		_, err := registry.New(nil, map[string]*workflows.Workflow{"w": wf})
		assert.Error(t, err)
	})

	t.Run("WorkflowWithoutSteps", func(t *testing.T) {
		_, err := registry.New(nil, map[string]*workflows.Workflow{"w": {ID: "w"}})
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		reg, err := registry.New(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, reg.AgentNames())
		assert.Empty(t, reg.WorkflowNames())
	})
}
