package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	path   string
	header http.Header
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *seenRequest) {
	t.Helper()
	seen := &seenRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.path = r.URL.EscapedPath()
		seen.header = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestGetThreadState(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{
		"values": {"messages": [
			{"id": "m1", "type": "human", "content": "hi"},
			{"type": "ai", "content": [{"type": "text", "text": "hello"}]}
		], "plan": ["a"]},
		"checkpoint": {"id": "cp-1"}
	}`)

	c := NewClient(Options{BaseURL: srv.URL + "/", APIKey: "secret"})
	state, err := c.GetThreadState(context.Background(), "thread 1")
	require.NoError(t, err)

	assert.Equal(t, "/threads/thread%201/state", seen.path)
	assert.Equal(t, "secret", seen.header.Get("x-api-key"))

	assert.Equal(t, "cp-1", state.CheckpointID)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, StoredMessage{ID: "m1", Type: "human", Content: []byte(`"hi"`)}, state.Messages[0])
	assert.Equal(t, "", state.Messages[1].ID)
	assert.JSONEq(t, `[{"type":"text","text":"hello"}]`, string(state.Messages[1].Content))
	assert.Contains(t, state.Values, "plan")
}

func TestGetThreadStateOmitsKeyWhenUnset(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"values":{}}`)

	_, err := NewClient(Options{BaseURL: srv.URL}).GetThreadState(context.Background(), "t")
	require.NoError(t, err)
	assert.Empty(t, seen.header.Get("x-api-key"))
}

func TestGetThreadStateNotFound(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, `{"detail":"Thread not found"}`)

	_, err := NewClient(Options{BaseURL: srv.URL}).GetThreadState(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestGetThreadStateStatusError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, "boom\n")

	_, err := NewClient(Options{BaseURL: srv.URL}).GetThreadState(context.Background(), "t")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestParseThreadState(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		checkpoint string
		messages   int
	}{
		{name: "empty object", body: `{}`},
		{name: "null values", body: `{"values":null}`},
		{name: "checkpoint_id fallback", body: `{"values":{},"checkpoint":{"checkpoint_id":"cp-2"}}`, checkpoint: "cp-2"},
		{name: "non-string checkpoint ignored", body: `{"checkpoint":{"id":7}}`},
		{name: "messages", body: `{"values":{"messages":[{"type":"human","content":"x"}]}}`, messages: 1},
		{name: "not json", body: `<html>`, wantErr: true},
		{name: "array document", body: `[]`, wantErr: true},
		{name: "values not object", body: `{"values":"x"}`, wantErr: true},
		{name: "messages not array", body: `{"values":{"messages":{}}}`, wantErr: true},
		{name: "message not object", body: `{"values":{"messages":["hi"]}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := ParseThreadState([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedState)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.checkpoint, state.CheckpointID)
			assert.Len(t, state.Messages, tt.messages)
			assert.NotNil(t, state.Values)
		})
	}
}
