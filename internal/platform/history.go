package platform

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agui-platform-runner/internal/agui"
)

// ThreadStore is the read side of the platform the history needs.
type ThreadStore interface {
	GetThreadState(ctx context.Context, threadID string) (*ThreadState, error)
}

// History rebuilds the event sequence of a thread from its stored state.
type History struct {
	store  ThreadStore
	logger zerolog.Logger
	newID  func() string
}

// NewHistory creates a history reader on top of store.
func NewHistory(store ThreadStore, logger zerolog.Logger) *History {
	return &History{
		store:  store,
		logger: logger.With().Str("component", "history").Logger(),
		newID:  uuid.NewString,
	}
}

// HistoricEvents returns the synthetic events of threadID:
// RUN_STARTED, MESSAGES_SNAPSHOT, an optional STATE_SNAPSHOT and RUN_FINISHED.
// Threads without messages, unknown threads and fetch failures all yield no
// events.
func (h *History) HistoricEvents(ctx context.Context, threadID string) []agui.Event {
	state, err := h.store.GetThreadState(ctx, threadID)
	if err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			h.logger.Debug().Str("thread_id", threadID).Msg("no stored state for thread")
		} else {
			h.logger.Warn().Err(err).Str("thread_id", threadID).Msg("failed to load thread history")
		}
		return nil
	}
	if len(state.Messages) == 0 {
		return nil
	}

	runID := state.CheckpointID
	if runID == "" {
		runID = h.newID()
	}

	events := []agui.Event{
		agui.NewRunStarted(threadID, runID),
		agui.NewMessagesSnapshot(h.convertMessages(state.Messages)),
	}

	snapshot := make(map[string]any, len(state.Values))
	for k, v := range state.Values {
		if k == "messages" {
			continue
		}
		snapshot[k] = v
	}
	if len(snapshot) > 0 {
		events = append(events, agui.NewStateSnapshot(snapshot))
	}

	return append(events, agui.NewRunFinished(threadID, runID))
}

func (h *History) convertMessages(stored []StoredMessage) []agui.Message {
	out := make([]agui.Message, 0, len(stored))
	for _, m := range stored {
		role := agui.RoleAssistant
		if m.Type == "human" {
			role = agui.RoleUser
		}
		id := m.ID
		if id == "" {
			id = h.newID()
		}
		out = append(out, agui.Message{
			ID:      id,
			Role:    role,
			Content: agui.ContentString(m.Content),
		})
	}
	return out
}
