// Package platform reads durable thread state from a LangGraph Platform
// deployment and turns it into replayable AG-UI events.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// ErrThreadNotFound is returned when the deployment has no such thread.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrMalformedState is returned when the thread state payload does not
	// have the expected shape.
	ErrMalformedState = errors.New("malformed thread state")
)

// StatusError is returned for any non-2xx response other than 404.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("platform returned status %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the deployment URL, e.g. http://localhost:8123.
	BaseURL string
	// APIKey is the optional LangSmith key sent as x-api-key.
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client is a minimal LangGraph Platform threads API client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// StoredMessage is a message as persisted in thread values.
type StoredMessage struct {
	ID string
	// Type is the origin tag: "human", "ai", "tool", ...
	Type    string
	Content json.RawMessage
}

// ThreadState is the parsed state of a thread.
type ThreadState struct {
	// Values holds every state field, messages included.
	Values       map[string]any
	Messages     []StoredMessage
	CheckpointID string
}

// NewClient creates a new platform client
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    hc,
	}
}

// GetThreadState fetches the current state of threadID.
func (c *Client) GetThreadState(ctx context.Context, threadID string) (*ThreadState, error) {
	endpoint := c.baseURL + "/threads/" + url.PathEscape(threadID) + "/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread state: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read thread state: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrThreadNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return ParseThreadState(body)
}

// ParseThreadState validates and converts a raw thread state document.
func ParseThreadState(body []byte) (*ThreadState, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedState)
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformedState)
	}

	state := &ThreadState{Values: map[string]any{}}

	values := doc.Get("values")
	switch {
	case !values.Exists() || values.Type == gjson.Null:
	case values.IsObject():
		if m, ok := values.Value().(map[string]any); ok {
			state.Values = m
		}
	default:
		return nil, fmt.Errorf("%w: values is not an object", ErrMalformedState)
	}

	messages := values.Get("messages")
	switch {
	case !messages.Exists() || messages.Type == gjson.Null:
	case messages.IsArray():
		for i, m := range messages.Array() {
			if !m.IsObject() {
				return nil, fmt.Errorf("%w: message %d is not an object", ErrMalformedState, i)
			}
			state.Messages = append(state.Messages, StoredMessage{
				ID:      stringOf(m.Get("id")),
				Type:    stringOf(m.Get("type")),
				Content: rawOf(m.Get("content")),
			})
		}
	default:
		return nil, fmt.Errorf("%w: messages is not an array", ErrMalformedState)
	}

	state.CheckpointID = stringOf(doc.Get("checkpoint.id"))
	if state.CheckpointID == "" {
		state.CheckpointID = stringOf(doc.Get("checkpoint.checkpoint_id"))
	}
	return state, nil
}

func stringOf(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}

func rawOf(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return nil
	}
	return json.RawMessage(r.Raw)
}
