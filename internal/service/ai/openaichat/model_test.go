package openaichat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "keep it moisturized"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
}`

func TestGenerateSendsOrderedMessages(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	temp := float32(0.3)
	m, err := NewChatModel(Config{APIKey: "test", BaseURL: srv.URL + "/v1/", Model: "gpt-4o-mini", Temperature: &temp})
	require.NoError(t, err)

	reply, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("rules"),
		schema.SystemMessage("context"),
		schema.UserMessage("q1"),
		schema.AssistantMessage("a1", nil),
		schema.UserMessage("q2"),
	})
	require.NoError(t, err)
	assert.Equal(t, "keep it moisturized", reply.Content)
	assert.Equal(t, schema.Assistant, reply.Role)

	req := gjson.ParseBytes(body)
	assert.Equal(t, "gpt-4o-mini", req.Get("model").String())
	assert.InDelta(t, 0.3, req.Get("temperature").Float(), 0.0001)

	var roles, contents []string
	for _, msg := range req.Get("messages").Array() {
		roles = append(roles, msg.Get("role").String())
		contents = append(contents, msg.Get("content").String())
	}
	assert.Equal(t, []string{"system", "system", "user", "assistant", "user"}, roles)
	assert.Equal(t, []string{"rules", "context", "q1", "a1", "q2"}, contents)
}

func TestGenerateDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	m, err := NewChatModel(Config{APIKey: "test", BaseURL: srv.URL + "/v1/", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewChatModelRequiresCredentials(t *testing.T) {
	_, err := NewChatModel(Config{Model: "gpt-4o-mini"})
	assert.Error(t, err)

	_, err = NewChatModel(Config{APIKey: "k"})
	assert.Error(t, err)
}

func TestBindTools(t *testing.T) {
	m, err := NewChatModel(Config{APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	assert.NoError(t, m.BindTools(nil))
	assert.Error(t, m.BindTools([]*schema.ToolInfo{{Name: "lookup"}}))
}
