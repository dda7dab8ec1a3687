package agent

const (
	EventStart     = "start"
	EventTextDelta = "text-delta"
	EventFinish    = "finish"
)

const FromAgent = "AGENT"

// StreamEvent is one chunk of an agent's full stream.
type StreamEvent struct {
	Type    string         `json:"type"`
	RunID   string         `json:"runId"`
	From    string         `json:"from"`
	Payload map[string]any `json:"payload,omitempty"`
}
