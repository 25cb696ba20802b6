package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(Config{AccountURL: server.URL, Token: "test-token"}, nil)
	return client, server
}

func TestSendMessageSuccess(t *testing.T) {
	var gotBody Request
	var gotAuth, gotTokenType string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v2/cortex/analyst/message", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotTokenType = r.Header.Get("X-Snowflake-Authorization-Token-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"message": {"role": "analyst", "content": [
				{"type": "text", "text": "Revenue is up."},
				{"type": "sql", "statement": "SELECT 1"}
			]},
			"request_id": "req-123"
		}`))
	})

	req := Request{
		Messages: []Message{
			{Role: RoleUser, Content: []ContentBlock{TextBlock("how is revenue?")}},
		},
		SemanticModelFile: "@DB.SCHEMA.STAGE/model.yaml",
	}
	resp, err := client.SendMessage(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "req-123", resp.RequestID)
	assert.Len(t, resp.Message.Content, 2)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "PROGRAMMATIC_ACCESS_TOKEN", gotTokenType)
	assert.Equal(t, "@DB.SCHEMA.STAGE/model.yaml", gotBody.SemanticModelFile)
	assert.Equal(t, DefaultMaxTokens, gotBody.MaxTokens)
}

func TestSendMessageAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"request_id":"req-9","error_code":"E1","message":"bad"}`))
	})

	_, err := client.SendMessage(context.Background(), Request{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, "req-9", apiErr.RequestID)
	assert.Equal(t, "E1", apiErr.ErrorCode)
	assert.Equal(t, "bad", apiErr.Message)

	display := apiErr.Display()
	assert.Contains(t, display, "404")
	assert.Contains(t, display, "E1")
	assert.Contains(t, display, "bad")
}

func TestSendMessageErrorFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "internal server error"},
		{"empty object", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			})

			_, err := client.SendMessage(context.Background(), Request{})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, 500, apiErr.Status)
			assert.Equal(t, "N/A", apiErr.RequestID)
			assert.Equal(t, "N/A", apiErr.ErrorCode)
			assert.Equal(t, "unknown", apiErr.Message)
		})
	}
}

func TestSendMessageSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.SendMessage(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "client must not retry on its own")
}

func TestSendMessageTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		AccountURL: server.URL,
		Token:      "t",
		Timeout:    20 * time.Millisecond,
	}, nil)

	_, err := client.SendMessage(context.Background(), Request{})
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "timeouts are transport errors, not API errors")
}

func TestSendMessageTransmissionSerialization(t *testing.T) {
	var rawMessages []map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []map[string]any `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		rawMessages = body.Messages
		w.Write([]byte(`{"message":{"role":"analyst","content":[]},"request_id":"r"}`))
	})

	req := Request{
		Messages: []Message{
			{Role: RoleUser, Content: []ContentBlock{TextBlock("q1")}},
			{Role: RoleAnalyst, Content: []ContentBlock{TextBlock("a1")}, RequestID: "prev"},
		},
	}
	_, err := client.SendMessage(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, rawMessages, 2)
	assert.Equal(t, "user", rawMessages[0]["role"])
	assert.Equal(t, "analyst", rawMessages[1]["role"])

	// User turns must not leak a request_id field onto the wire.
	_, ok := rawMessages[0]["request_id"]
	assert.False(t, ok)

	blocks, ok := rawMessages[0]["content"].([]any)
	require.True(t, ok)
	block, ok := blocks[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "text", block["type"])
	assert.True(t, strings.Contains(block["text"].(string), "q1"))
}
