package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	msg, _ := json.Marshal(content)
	return fmt.Sprintf(`{
		"id":"chatcmpl-1",
		"object":"chat.completion",
		"created":1730366400,
		"model":"test-model",
		"choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}],
		"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}
	}`, msg)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		MaxRetries: 2,
	}, WithRetryHandler(NewRetryHandler(RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	})))
	require.NoError(t, err)
	return client
}

func TestLoadConfigFromReader(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret-from-env")

	cfg, err := LoadConfigFromReader(strings.NewReader(`
base_url: "https://example.com/v1"
api_key: "${TEST_LLM_KEY}"
model: "gpt-5-mini"
timeout: "45s"
max_retries: 3
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.APIKey)
	assert.Equal(t, "gpt-5-mini", cfg.Model)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoadConfigFromReader_UnresolvedEnv(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(`
base_url: "${LLM_TEST_UNSET_URL}"
api_key: "${LLM_TEST_UNSET_KEY}"
model: "gpt-5-mini"
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedEnv, "unset placeholders should disable, not configure, the client")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing base url", Config{APIKey: "k", Model: "m"}},
		{"missing api key", Config{BaseURL: "u", Model: "m"}},
		{"missing model", Config{BaseURL: "u", APIKey: "k"}},
		{"bad timeout", Config{BaseURL: "u", APIKey: "k", Model: "m", Timeout: "soon"}},
		{"negative retries", Config{BaseURL: "u", APIKey: "k", Model: "m", MaxRetries: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestClientComplete(t *testing.T) {
	var lastBody []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		lastBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("the answer")))
	})

	out, err := client.Complete(context.Background(), "be terse", "what is it?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)

	var req map[string]any
	require.NoError(t, json.Unmarshal(lastBody, &req))
	assert.Equal(t, "test-model", req["model"])
	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestClientRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("recovered")))
	})

	out, err := client.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"bad model"}}`, http.StatusBadRequest)
	})

	_, err := client.Complete(context.Background(), "sys", "user")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestCompleteStructuredDecodesFencedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("```json\n{\"action\":\"swap\",\"confidence\":0.9}\n```")))
	})

	var intent Intent
	require.NoError(t, client.CompleteStructured(context.Background(), "sys", "user", "intent", &intent))
	assert.Equal(t, "swap", intent.Action)
	assert.InDelta(t, 0.9, intent.Confidence, 1e-9)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
