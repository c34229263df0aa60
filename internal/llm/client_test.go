package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"id":"gen-1","model":"openai/gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"  Hello there.  "},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`

func newTestClient(t *testing.T, srv *httptest.Server, opts ...GatewayOption) *GatewayClient {
	t.Helper()
	c, err := NewGatewayClient(GatewayConfig{BaseURL: srv.URL + "/", APIKey: "test-key"}, opts...)
	require.NoError(t, err)
	return c
}

func sampleRequest() ChatRequest {
	return ChatRequest{
		Model: "openai/gpt-4",
		Messages: []Message{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "usr"},
		},
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

func TestNewGatewayClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGatewayClient(GatewayConfig{APIKey: "   "})
	assert.Error(t, err)
}

func TestGatewayConfig_Endpoint(t *testing.T) {
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", GatewayConfig{}.Endpoint())
	assert.Equal(t, "http://x/v1/chat/completions", GatewayConfig{BaseURL: "http://x/v1/"}.Endpoint())
}

func TestChatCompletion_SendsHeadersAndBody(t *testing.T) {
	var (
		gotHeaders http.Header
		gotPath    string
		gotBody    map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv).ChatCompletion(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, DefaultReferer, gotHeaders.Get("HTTP-Referer"))
	assert.Equal(t, DefaultTitle, gotHeaders.Get("X-Title"))

	assert.Equal(t, "openai/gpt-4", gotBody["model"])
	assert.Equal(t, float64(1000), gotBody["max_tokens"])
	assert.Equal(t, 0.7, gotBody["temperature"])
	assert.Equal(t, false, gotBody["stream"])
	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	assert.Equal(t, 15, resp.Usage.TotalTokens)
	content, err := resp.FirstContent()
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", content)
}

func TestChatCompletion_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "rate limited\n")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ChatCompletion(context.Background(), sampleRequest())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "OpenRouter API returned status 429: rate limited", statusErr.Error())
}

func TestChatCompletion_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{oops`},
		{"missing choices", `{"id":"x"}`},
		{"choice without message", `{"choices":[{"index":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).ChatCompletion(context.Background(), sampleRequest())
			var formatErr *FormatError
			assert.True(t, errors.As(err, &formatErr), "got %v", err)
		})
	}
}

func TestChatCompletion_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.ChatCompletion(context.Background(), sampleRequest())
	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %v", err)
	assert.Equal(t, "OpenRouter API request timed out", err.Error())
}

func TestChatCompletion_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewGatewayClient(GatewayConfig{BaseURL: url, APIKey: "k"})
	require.NoError(t, err)
	_, err = c.ChatCompletion(context.Background(), sampleRequest())
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), "got %v", err)
}

func TestFirstContent(t *testing.T) {
	_, err := (&ChatResponse{}).FirstContent()
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, "no choices found", formatErr.Reason)

	_, err = (&ChatResponse{Choices: []Choice{{Message: Message{Content: "  \n"}}}}).FirstContent()
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, "empty content", formatErr.Reason)
}
