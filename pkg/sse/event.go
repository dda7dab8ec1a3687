package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	framePrefix = "data: "
	frameSuffix = "\n\n"
)

// DoneFrame is written once after the upstream source completes normally.
var DoneFrame = []byte(framePrefix + "[DONE]" + frameSuffix)

// EncodeFrame serializes one event as a single SSE data frame.
// HTML characters and non-ASCII text are written as-is.
func EncodeFrame(event any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(framePrefix)

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(event); err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	// Encode terminates the value with a single newline.
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
