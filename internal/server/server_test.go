package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"agui-platform-runner/internal/agent"
	"agui-platform-runner/internal/config"
	"agui-platform-runner/internal/runner"
	"agui-platform-runner/internal/transport/connectrpc"
	"agui-platform-runner/internal/transport/sse"
)

type noAgents struct{}

func (noAgents) NewAgent() agent.Agent { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := runner.New(runner.Options{Logger: zerolog.Nop()})
	srv := New(&config.Config{Port: "0"}, zerolog.Nop(),
		sse.NewHandler(r, noAgents{}, zerolog.Nop()),
		connectrpc.NewHandler(r, noAgents{}, zerolog.Nop()),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutesAreMounted(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/agent/threads/t/running")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/agent/connect", "application/json", strings.NewReader(`{"threadId":"t"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	client := connect.NewClient[structpb.Struct, structpb.Struct](http.DefaultClient, ts.URL+connectrpc.IsRunningProcedure)
	msg, err := structpb.NewStruct(map[string]any{"threadId": "t"})
	require.NoError(t, err)
	res, err := client.CallUnary(context.Background(), connect.NewRequest(msg))
	require.NoError(t, err)
	assert.Equal(t, false, res.Msg.AsMap()["running"])
}
