package workflows

import (
	"context"
	"fmt"
)

// NewTestWorkflow builds the two-step demo workflow. Input: {"value": string}.
func NewTestWorkflow() *Workflow {
	return &Workflow{
		ID:          "testWorkflow",
		Description: "2つのステップを持つテストワークフロー",
		Steps: []Step{
			{
				ID:          "step1",
				Description: "Reports its start, then prefixes the value",
				Execute: func(ctx context.Context, input map[string]any, out chan<- any) (map[string]any, error) {
					out <- map[string]any{"type": "step-progress", "message": "step1を開始しました"}

					value, _ := input["value"].(string)
					return map[string]any{"result": "Step1: " + value}, nil
				},
			},
			{
				ID:          "step2",
				Description: "Appends a completion marker, then reports its end",
				Execute: func(ctx context.Context, input map[string]any, out chan<- any) (map[string]any, error) {
					result, ok := input["result"].(string)
					if !ok {
						return nil, fmt.Errorf("step2: missing result from step1")
					}
					finalResult := result + " -> Step2完了"

					out <- map[string]any{"type": "step-progress", "message": "step2を終了しました"}
					return map[string]any{"finalResult": finalResult}, nil
				},
			},
		},
		Validate: func(input map[string]any) error {
			if _, ok := input["value"].(string); !ok {
				return fmt.Errorf("%w: value must be a string", ErrInvalidInput)
			}
			return nil
		},
	}
}
