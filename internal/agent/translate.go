package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"google.golang.org/genai"
)

// translator converts ADK model content into AG-UI events for one assistant
// message.
type translator struct {
	messageID string
	emit      func(events.Event)

	text strings.Builder
	// ADK function call id -> AG-UI tool call id
	toolCalls map[string]string
}

func newTranslator(messageID string, emit func(events.Event)) *translator {
	return &translator{
		messageID: messageID,
		emit:      emit,
		toolCalls: make(map[string]string),
	}
}

// Text returns the text emitted so far.
func (t *translator) Text() string {
	return t.text.String()
}

func (t *translator) translate(content *genai.Content) {
	if content == nil {
		return
	}
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}

		if part.Text != "" {
			t.text.WriteString(part.Text)
			t.emit(events.NewTextMessageContentEvent(t.messageID, part.Text))
		}

		if fc := part.FunctionCall; fc != nil {
			toolCallID := fc.ID
			if toolCallID == "" {
				toolCallID = events.GenerateToolCallID()
			}
			t.toolCalls[fc.ID] = toolCallID

			t.emit(events.NewToolCallStartEvent(toolCallID, fc.Name))
			if fc.Args != nil {
				if args, err := json.Marshal(fc.Args); err == nil {
					t.emit(events.NewToolCallArgsEvent(toolCallID, string(args)))
				}
			}
			t.emit(events.NewToolCallEndEvent(toolCallID))
		}

		if fr := part.FunctionResponse; fr != nil {
			toolCallID, ok := t.toolCalls[fr.ID]
			if !ok {
				toolCallID = events.GenerateToolCallID()
			}

			result := ""
			if fr.Response != nil {
				if b, err := json.Marshal(fr.Response); err == nil {
					result = string(b)
				} else {
					result = fmt.Sprintf("%v", fr.Response)
				}
			}
			t.emit(events.NewToolCallResultEvent(events.GenerateMessageID(), toolCallID, result))
		}
	}
}
