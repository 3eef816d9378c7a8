package runner

import (
	"encoding/json"

	"agui-platform-runner/internal/agui"
)

// Terminal payload values used when a run ends without its own terminal event.
const (
	IncompleteStreamCode    = "INCOMPLETE_STREAM"
	IncompleteStreamMessage = "Run ended without emitting a terminal event"
)

// FinalizeOptions controls FinalizeRunEvents.
type FinalizeOptions struct {
	StopRequested bool
	// ThreadID and RunID label synthesized terminal events when the buffer
	// has no RUN_STARTED.
	ThreadID string
	RunID    string
}

type toolCallState struct {
	ended    bool
	resolved bool
}

// FinalizeRunEvents returns the events needed to close a run whose emitted
// events are events: ends for open text messages and tool calls and, when
// the run has no RUN_FINISHED or RUN_ERROR, results for unresolved tool calls
// and a terminal event. It does not modify events.
func FinalizeRunEvents(events []agui.Event, opts FinalizeOptions) []agui.Event {
	threadID, runID := opts.ThreadID, opts.RunID
	hasTerminal := false

	var openMessages []string
	open := make(map[string]bool)

	var toolOrder []string
	tools := make(map[string]*toolCallState)
	toolCall := func(id string) *toolCallState {
		st, ok := tools[id]
		if !ok {
			st = &toolCallState{}
			tools[id] = st
			toolOrder = append(toolOrder, id)
		}
		return st
	}

	startSeen := false
	for _, ev := range events {
		switch ev.Type {
		case agui.EventTypeRunStarted:
			if !startSeen {
				startSeen = true
				if ev.ThreadID != "" {
					threadID = ev.ThreadID
				}
				if ev.RunID != "" {
					runID = ev.RunID
				}
			}
		case agui.EventTypeRunFinished, agui.EventTypeRunError:
			hasTerminal = true
		case agui.EventTypeTextMessageStart:
			if id := ev.MessageID; id != "" && !open[id] {
				open[id] = true
				openMessages = append(openMessages, id)
			}
		case agui.EventTypeTextMessageEnd:
			delete(open, ev.MessageID)
		case agui.EventTypeToolCallStart:
			if id := ev.StringField("toolCallId"); id != "" {
				toolCall(id)
			}
		case agui.EventTypeToolCallEnd:
			if st, ok := tools[ev.StringField("toolCallId")]; ok {
				st.ended = true
			}
		case agui.EventTypeToolCallResult:
			if st, ok := tools[ev.StringField("toolCallId")]; ok {
				st.resolved = true
			}
		}
	}

	var out []agui.Event
	for _, id := range openMessages {
		if open[id] {
			out = append(out, agui.NewEvent(agui.EventTypeTextMessageEnd, map[string]any{"messageId": id}))
		}
	}

	for _, id := range toolOrder {
		if !tools[id].ended {
			out = append(out, agui.NewEvent(agui.EventTypeToolCallEnd, map[string]any{"toolCallId": id}))
		}
	}

	if hasTerminal {
		return out
	}

	for _, id := range toolOrder {
		if tools[id].resolved {
			continue
		}
		out = append(out, agui.NewEvent(agui.EventTypeToolCallResult, map[string]any{
			"toolCallId": id,
			"messageId":  id + "-result",
			"role":       "tool",
			"content":    unresolvedToolResult(opts.StopRequested),
		}))
	}

	if opts.StopRequested {
		return append(out, agui.NewRunFinished(threadID, runID))
	}
	return append(out, agui.NewRunError(IncompleteStreamMessage, IncompleteStreamCode))
}

func unresolvedToolResult(stopRequested bool) string {
	payload := map[string]string{
		"status":  "error",
		"reason":  "missing_terminal_event",
		"message": IncompleteStreamMessage,
	}
	if stopRequested {
		payload = map[string]string{
			"status":  "cancelled",
			"reason":  "stop_requested",
			"message": "Run stopped by user",
		}
	}
	b, _ := json.Marshal(payload)
	return string(b)
}
