package agui_adapter

import (
	"errors"
	"fmt"
)

var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
	"developer": true,
	"tool":      true,
}

// Validate checks the run input before an agent is started
func (in *RunAgentInput) Validate() error {
	if in.ThreadID == "" {
		return errors.New("missing required field 'threadId'")
	}
	if len(in.Messages) == 0 {
		return errors.New("at least one message is required")
	}
	return ValidateMessages(in.Messages)
}

// Validate checks the connect input
func (in *ConnectInput) Validate() error {
	if in.ThreadID == "" {
		return errors.New("missing required field 'threadId'")
	}
	return nil
}

// ValidateMessages validates that messages have the required structure
// This is shared across all transport handlers
func ValidateMessages(messages []map[string]any) error {
	for i, msg := range messages {
		if msg == nil {
			return fmt.Errorf("message at index %d is nil", i)
		}

		id, hasID := msg["id"]
		if !hasID || id == nil || id == "" {
			return fmt.Errorf("message at index %d missing required field 'id'", i)
		}
		if _, ok := id.(string); !ok {
			return fmt.Errorf("message at index %d has invalid 'id' type (expected string)", i)
		}

		role, hasRole := msg["role"]
		if !hasRole || role == nil {
			return fmt.Errorf("message at index %d missing required field 'role'", i)
		}

		roleStr, ok := role.(string)
		if !ok {
			return fmt.Errorf("message at index %d has invalid 'role' type (expected string)", i)
		}
		if !validRoles[roleStr] {
			return fmt.Errorf("message at index %d has invalid 'role' value: %s", i, roleStr)
		}

		// user and assistant messages must carry content
		if roleStr == "user" || roleStr == "assistant" {
			content, hasContent := msg["content"]
			if !hasContent || content == nil {
				return fmt.Errorf("message at index %d missing required field 'content' for role '%s'", i, roleStr)
			}

			if _, ok := content.(string); !ok {
				if _, ok := content.([]any); !ok {
					return fmt.Errorf("message at index %d has invalid 'content' type (expected string or array)", i)
				}
			}
		}
	}

	return nil
}
