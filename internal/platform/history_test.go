package platform

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agui-platform-runner/internal/agui"
)

type fakeStore struct {
	state *ThreadState
	err   error
}

func (f *fakeStore) GetThreadState(context.Context, string) (*ThreadState, error) {
	return f.state, f.err
}

func newHistory(store ThreadStore) *History {
	h := NewHistory(store, zerolog.Nop())
	n := 0
	h.newID = func() string {
		n++
		return "gen-" + string(rune('0'+n))
	}
	return h
}

func TestHistoricEventsHumanMessageWithoutCheckpoint(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"values":{"messages":[{"type":"human","content":"hi"}]}}`)
	h := newHistory(NewClient(Options{BaseURL: srv.URL}))

	evs := h.HistoricEvents(context.Background(), "t1")
	require.Len(t, evs, 3)

	assert.Equal(t, agui.EventTypeRunStarted, evs[0].Type)
	assert.Equal(t, "t1", evs[0].ThreadID)
	assert.Equal(t, "gen-1", evs[0].RunID)

	assert.Equal(t, agui.EventTypeMessagesSnapshot, evs[1].Type)
	require.Len(t, evs[1].Messages, 1)
	assert.Equal(t, agui.RoleUser, evs[1].Messages[0].Role)
	assert.Equal(t, "hi", evs[1].Messages[0].Content)
	assert.NotEmpty(t, evs[1].Messages[0].ID)

	assert.Equal(t, agui.NewRunFinished("t1", "gen-1"), evs[2])
}

func TestHistoricEventsFullState(t *testing.T) {
	h := newHistory(&fakeStore{state: &ThreadState{
		Values: map[string]any{"messages": []any{}, "plan": "ship"},
		Messages: []StoredMessage{
			{ID: "a", Type: "human", Content: []byte(`"q"`)},
			{ID: "b", Type: "ai", Content: []byte(`{"k":1}`)},
			{ID: "c", Type: "tool", Content: nil},
		},
		CheckpointID: "cp",
	}})

	evs := h.HistoricEvents(context.Background(), "t")
	require.Len(t, evs, 4)
	assert.Equal(t, agui.NewRunStarted("t", "cp"), evs[0])
	assert.Equal(t, []agui.Message{
		{ID: "a", Role: agui.RoleUser, Content: "q"},
		{ID: "b", Role: agui.RoleAssistant, Content: `{"k":1}`},
		{ID: "c", Role: agui.RoleAssistant, Content: ""},
	}, evs[1].Messages)
	assert.Equal(t, agui.NewStateSnapshot(map[string]any{"plan": "ship"}), evs[2])
	assert.Equal(t, agui.NewRunFinished("t", "cp"), evs[3])
}

func TestHistoricEventsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
	}{
		{name: "not found", store: &fakeStore{err: ErrThreadNotFound}},
		{name: "wrapped not found", store: &fakeStore{err: errors.Join(errors.New("ctx"), ErrThreadNotFound)}},
		{name: "fetch failure", store: &fakeStore{err: &StatusError{StatusCode: 502}}},
		{name: "malformed", store: &fakeStore{err: ErrMalformedState}},
		{name: "no messages", store: &fakeStore{state: &ThreadState{Values: map[string]any{"plan": "x"}, CheckpointID: "cp"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, newHistory(tt.store).HistoricEvents(context.Background(), "t"))
		})
	}
}
