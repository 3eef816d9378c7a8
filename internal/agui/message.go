package agui

import (
	"encoding/json"
)

// Message is a chat message as carried by MESSAGES_SNAPSHOT.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts any content payload; non-string content is kept in
// its JSON encoding.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string          `json:"id"`
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message{ID: raw.ID, Role: raw.Role, Content: ContentString(raw.Content)}
	return nil
}

// ContentString coerces a JSON content payload to a string: JSON strings are
// unquoted, null or missing content is empty, anything else stays encoded.
func ContentString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
