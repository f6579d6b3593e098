package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

func chatCompletionServer(t *testing.T, status int, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		payload := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func TestCompleteReturnsAssistantText(t *testing.T) {
	var captured map[string]any
	server := chatCompletionServer(t, http.StatusOK, " technical ", &captured)
	defer server.Close()

	client := New("test-key", "gpt-4o-mini", Options{BaseURL: server.URL + "/"})
	got, err := client.Complete(context.Background(), "Complaint: app crashes")
	require.NoError(t, err)
	assert.Equal(t, "technical", got)
	assert.Equal(t, "gpt-4o-mini", captured["model"])

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user, _ := messages[1].(map[string]any)
	assert.Equal(t, "Complaint: app crashes", user["content"])
}

func TestCompleteMarksServerErrorsTemporary(t *testing.T) {
	server := chatCompletionServer(t, http.StatusServiceUnavailable, "", nil)
	defer server.Close()

	client := New("test-key", "", Options{BaseURL: server.URL + "/"})
	_, err := client.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrTemporary), "expected temporary error, got %v", err)
}

func TestCompleteKeepsClientErrorsPermanent(t *testing.T) {
	server := chatCompletionServer(t, http.StatusUnauthorized, "", nil)
	defer server.Close()

	client := New("bad-key", "", Options{BaseURL: server.URL + "/"})
	_, err := client.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, domain.IsKind(err, domain.ErrTemporary))
}
