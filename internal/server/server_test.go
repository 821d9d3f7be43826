package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torq-ai/torq/internal/dispatch"
	"github.com/torq-ai/torq/internal/provider"
	"github.com/torq-ai/torq/internal/router"
	"github.com/torq-ai/torq/internal/tools"
)

type fakeProvider struct{ response string }

func (f *fakeProvider) Chat(_ context.Context, _ *provider.ChatRequest) (<-chan provider.Event, error) {
	ch := make(chan provider.Event, 2)
	ch <- provider.Event{Type: provider.EventTextDelta, TextDelta: f.response}
	ch <- provider.Event{Type: provider.EventDone, Usage: &provider.Usage{}}
	close(ch)
	return ch, nil
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-1" }
func (f *fakeProvider) ContextWindow() int   { return 8192 }

type fakeTool struct {
	name  string
	calls int
}

func (f *fakeTool) Name() string                           { return f.name }
func (f *fakeTool) Description() string                    { return "fake" }
func (f *fakeTool) Parameters() map[string]any             { return map[string]any{} }
func (f *fakeTool) IsReadOnly() bool                       { return true }
func (f *fakeTool) PermissionLevel() tools.PermissionLevel { return tools.PermissionRead }

func (f *fakeTool) Execute(context.Context, json.RawMessage) (tools.ToolResult, error) {
	f.calls++
	return tools.ToolResult{Content: "tool output"}, nil
}

func newTestServer(registry *tools.Registry) *Server {
	return New(":0", 5, dispatch.Options{
		Classifier: router.New(router.DefaultRuleSet()),
		Provider:   &fakeProvider{response: "hello from the model"},
		Registry:   registry,
	})
}

func postChat(t *testing.T, handler http.Handler, body string) (*httptest.ResponseRecorder, ChatResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestChatDirectAnswer(t *testing.T) {
	handler := newTestServer(nil).Handler()

	rec, resp := postChat(t, handler, `{"message":"hello there"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "hello from the model", resp.Response)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, router.IntentDirectAnswer, resp.Meta.Intent)
	assert.Equal(t, 0.50, resp.Meta.Confidence)
}

func TestChatEmptyMessage(t *testing.T) {
	handler := newTestServer(nil).Handler()

	rec, resp := postChat(t, handler, `{"message":"  "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestChatInvalidJSON(t *testing.T) {
	handler := newTestServer(nil).Handler()

	rec, resp := postChat(t, handler, `{broken`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestChatRunsSearchTool(t *testing.T) {
	search := &fakeTool{name: "web_search"}
	registry := tools.NewRegistry()
	registry.Register(search)
	handler := newTestServer(registry).Handler()

	rec, resp := postChat(t, handler, `{"message":"search for go releases"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, router.IntentWebSearch, resp.Meta.Intent)
	assert.Equal(t, "web_search", resp.Meta.Tool)
	assert.Equal(t, 1, search.calls)
}

func TestChatToolFilterExcludesTool(t *testing.T) {
	search := &fakeTool{name: "web_search"}
	registry := tools.NewRegistry()
	registry.Register(search)
	handler := newTestServer(registry).Handler()

	// The filter names no usable tool, so the search pathway falls back.
	rec, resp := postChat(t, handler, `{"message":"search for go releases","tools":["terminal"]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Meta.Tool)
	assert.Equal(t, 0, search.calls)
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestToolsEndpoint(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&fakeTool{name: "web_search"})
	registry.Register(&fakeTool{name: "terminal"})
	handler := newTestServer(registry).Handler()

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tools []string `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"terminal", "web_search"}, body.Tools)
}

func TestChatMethodNotAllowed(t *testing.T) {
	handler := newTestServer(nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
