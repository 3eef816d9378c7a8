// Package agui_adapter converts AG-UI requests received by any transport into
// agent input. It is shared by the SSE and Connect transports.
package agui_adapter

import (
	"encoding/json"
	"strings"

	"agui-platform-runner/internal/agent"
	"agui-platform-runner/internal/agui"
)

// RunAgentInput represents the AG-UI protocol input format
type RunAgentInput struct {
	ThreadID       string           `json:"threadId"`
	RunID          string           `json:"runId"`
	State          map[string]any   `json:"state"`
	Messages       []map[string]any `json:"messages"`
	Tools          []any            `json:"tools"`
	Context        []any            `json:"context"`
	ForwardedProps map[string]any   `json:"forwardedProps"`
}

// ConnectInput asks for the event stream of an existing thread
type ConnectInput struct {
	ThreadID string `json:"threadId"`
}

// ToRunInput converts validated input into agent input
func (in *RunAgentInput) ToRunInput() agent.RunInput {
	messages := make([]agui.Message, 0, len(in.Messages))
	for _, m := range in.Messages {
		id, _ := m["id"].(string)
		role, _ := m["role"].(string)
		messages = append(messages, agui.Message{
			ID:      id,
			Role:    role,
			Content: contentText(m["content"]),
		})
	}

	var forwarded any
	if in.ForwardedProps != nil {
		forwarded = in.ForwardedProps
	}

	return agent.RunInput{
		ThreadID:       in.ThreadID,
		RunID:          in.RunID,
		Messages:       messages,
		State:          in.State,
		Tools:          in.Tools,
		Context:        in.Context,
		ForwardedProps: forwarded,
	}
}

// contentText flattens message content: strings pass through, text parts of
// multimodal content are joined, anything else is JSON encoded
func contentText(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		var b strings.Builder
		for _, part := range c {
			p, ok := part.(map[string]any)
			if !ok || p["type"] != "text" {
				continue
			}
			if text, ok := p["text"].(string); ok {
				b.WriteString(text)
			}
		}
		return b.String()
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
