// Package agui defines the AG-UI event vocabulary shared by the run bridge,
// the agent adapters and the transports.
package agui

import (
	"encoding/json"
	"fmt"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
)

// EventType is the AG-UI "type" discriminator of an event.
type EventType string

// Event kinds the bridge knows by name. Any other EventType is forwarded
// untouched.
const (
	EventTypeRunStarted         EventType = "RUN_STARTED"
	EventTypeRunFinished        EventType = "RUN_FINISHED"
	EventTypeRunError           EventType = "RUN_ERROR"
	EventTypeMessagesSnapshot   EventType = "MESSAGES_SNAPSHOT"
	EventTypeStateSnapshot      EventType = "STATE_SNAPSHOT"
	EventTypeTextMessageStart   EventType = "TEXT_MESSAGE_START"
	EventTypeTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	EventTypeTextMessageEnd     EventType = "TEXT_MESSAGE_END"
	EventTypeToolCallStart      EventType = "TOOL_CALL_START"
	EventTypeToolCallArgs       EventType = "TOOL_CALL_ARGS"
	EventTypeToolCallEnd        EventType = "TOOL_CALL_END"
	EventTypeToolCallResult     EventType = "TOOL_CALL_RESULT"
	EventTypeCustom             EventType = "CUSTOM"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Wire field names with a typed home on Event.
const (
	fieldType      = "type"
	fieldThreadID  = "threadId"
	fieldRunID     = "runId"
	fieldMessageID = "messageId"
	fieldMessages  = "messages"
	fieldSnapshot  = "snapshot"
)

// IsTerminal reports whether t ends a run.
func (t EventType) IsTerminal() bool {
	return t == EventTypeRunFinished || t == EventTypeRunError
}

// Event is one AG-UI event. Lifecycle and snapshot kinds have typed fields;
// everything else the agent emits travels in Fields and is forwarded as-is.
//
// Events are shared between subscribers once emitted and must be treated as
// immutable.
type Event struct {
	Type EventType

	// RUN_STARTED / RUN_FINISHED
	ThreadID string
	RunID    string

	// Set on every message-bearing event (text deltas, tool results, ...).
	MessageID string

	// MESSAGES_SNAPSHOT
	Messages []Message

	// STATE_SNAPSHOT
	Snapshot map[string]any

	// Fields holds the remaining wire fields.
	Fields map[string]any
}

// NewEvent builds an event of kind t from wire fields. Known field names are
// routed to their typed counterparts.
func NewEvent(t EventType, fields map[string]any) Event {
	e := Event{Type: t}
	for k, v := range fields {
		e.set(k, v)
	}
	return e
}

// NewRunStarted returns a RUN_STARTED event.
func NewRunStarted(threadID, runID string) Event {
	return Event{Type: EventTypeRunStarted, ThreadID: threadID, RunID: runID}
}

// NewRunFinished returns a RUN_FINISHED event.
func NewRunFinished(threadID, runID string) Event {
	return Event{Type: EventTypeRunFinished, ThreadID: threadID, RunID: runID}
}

// NewRunError returns a RUN_ERROR event. code may be empty.
func NewRunError(message, code string) Event {
	fields := map[string]any{"message": message}
	if code != "" {
		fields["code"] = code
	}
	return Event{Type: EventTypeRunError, Fields: fields}
}

// NewMessagesSnapshot returns a MESSAGES_SNAPSHOT event.
func NewMessagesSnapshot(messages []Message) Event {
	if messages == nil {
		messages = []Message{}
	}
	return Event{Type: EventTypeMessagesSnapshot, Messages: messages}
}

// NewStateSnapshot returns a STATE_SNAPSHOT event.
func NewStateSnapshot(snapshot map[string]any) Event {
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	return Event{Type: EventTypeStateSnapshot, Snapshot: snapshot}
}

// FromAGUI converts an event built with the AG-UI Go SDK.
func FromAGUI(ev events.Event) (Event, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	var out Event
	if err := json.Unmarshal(data, &out); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return out, nil
}

// Field returns a pass-through wire field.
func (e Event) Field(key string) (any, bool) {
	v, ok := e.Fields[key]
	return v, ok
}

// StringField returns a pass-through wire field if it is a string.
func (e Event) StringField(key string) string {
	s, _ := e.Fields[key].(string)
	return s
}

// MessageIDs returns every message id the event carries: its own messageId
// and, for snapshots, the id of each message.
func (e Event) MessageIDs() []string {
	var ids []string
	if e.MessageID != "" {
		ids = append(ids, e.MessageID)
	}
	if e.Type == EventTypeMessagesSnapshot {
		for _, m := range e.Messages {
			if m.ID != "" {
				ids = append(ids, m.ID)
			}
		}
	}
	return ids
}

// MarshalJSON encodes the event in AG-UI wire form.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+6)
	for k, v := range e.Fields {
		m[k] = v
	}
	m[fieldType] = e.Type
	if e.ThreadID != "" {
		m[fieldThreadID] = e.ThreadID
	}
	if e.RunID != "" {
		m[fieldRunID] = e.RunID
	}
	if e.MessageID != "" {
		m[fieldMessageID] = e.MessageID
	}
	if e.Messages != nil || e.Type == EventTypeMessagesSnapshot {
		msgs := e.Messages
		if msgs == nil {
			msgs = []Message{}
		}
		m[fieldMessages] = msgs
	}
	if e.Snapshot != nil {
		m[fieldSnapshot] = e.Snapshot
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an AG-UI wire event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typeRaw, ok := raw[fieldType]
	if !ok {
		return fmt.Errorf("event has no %q field", fieldType)
	}
	var t string
	if err := json.Unmarshal(typeRaw, &t); err != nil || t == "" {
		return fmt.Errorf("event has invalid %q field", fieldType)
	}

	*e = Event{Type: EventType(t)}
	for k, v := range raw {
		if k == fieldType {
			continue
		}
		if err := e.decodeField(k, v); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	return nil
}

func (e *Event) decodeField(key string, raw json.RawMessage) error {
	switch key {
	case fieldThreadID, fieldRunID, fieldMessageID:
		var s string
		if json.Unmarshal(raw, &s) == nil {
			e.set(key, s)
			return nil
		}
	case fieldMessages:
		if e.Type == EventTypeMessagesSnapshot {
			var msgs []Message
			if err := json.Unmarshal(raw, &msgs); err != nil {
				return err
			}
			e.Messages = msgs
			return nil
		}
	case fieldSnapshot:
		if e.Type == EventTypeStateSnapshot {
			var snap map[string]any
			if json.Unmarshal(raw, &snap) == nil && snap != nil {
				e.Snapshot = snap
				return nil
			}
		}
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	e.setExtra(key, v)
	return nil
}

func (e *Event) set(key string, v any) {
	switch key {
	case fieldType:
		return
	case fieldThreadID, fieldRunID, fieldMessageID:
		s, ok := v.(string)
		if !ok {
			break
		}
		switch key {
		case fieldThreadID:
			e.ThreadID = s
		case fieldRunID:
			e.RunID = s
		default:
			e.MessageID = s
		}
		return
	case fieldMessages:
		if msgs, ok := v.([]Message); ok {
			e.Messages = msgs
			return
		}
	case fieldSnapshot:
		if snap, ok := v.(map[string]any); ok {
			e.Snapshot = snap
			return
		}
	}
	e.setExtra(key, v)
}

func (e *Event) setExtra(key string, v any) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = v
}
