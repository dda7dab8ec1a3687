package registry

import (
	"agent-relay-gateway/internal/agent"
	"agent-relay-gateway/internal/workflows"

	"github.com/rs/zerolog"
)

// Default builds the registry the gateway ships with: the weather agent,
// which keeps conversation memory, a sub agent that greets in Japanese
// according to the time of day, and the two-step test workflow. mem may be
// nil.
func Default(model agent.ChatModel, mem agent.Memory, logger zerolog.Logger) (*Registry, error) {
	weather := &agent.Agent{
		ID:           "weatherAgent",
		Name:         "Weather Agent",
		Instructions: "You are a weather agent that helps users with weather information.",
		Model:        model,
		Memory:       mem,
		Logger:       logger,
	}

	sub := &agent.Agent{
		ID:           "subAgent",
		Name:         "Sub Agent",
		Description:  "現在の時刻を確認して適切な挨拶を日本語で返すエージェント",
		Instructions: "いまが朝か昼か夜かを確認してください。回答に応じて適当なあいさつを日本語でします",
		Model:        model,
		Logger:       logger,
	}

	test := workflows.NewTestWorkflow()

	return New(
		map[string]*agent.Agent{weather.ID: weather, sub.ID: sub},
		map[string]*workflows.Workflow{test.ID: test},
	)
}
