package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/content-pipeline/internal/schemas"
	schemafiles "github.com/jonathan/content-pipeline/schemas"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxResponseBytes bounds how much of a gateway response is read.
const maxResponseBytes = 4 << 20

// ChatClient is an abstraction over chat completion providers
type ChatClient interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes a single non-streaming completion call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the decoded gateway response.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token accounting for the call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FirstContent returns the trimmed content of the first choice.
func (r *ChatResponse) FirstContent() (string, error) {
	if len(r.Choices) == 0 {
		return "", &FormatError{Reason: "no choices found"}
	}
	content := strings.TrimSpace(r.Choices[0].Message.Content)
	if content == "" {
		return "", &FormatError{Reason: "empty content"}
	}
	return content, nil
}

type chatRequestBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// GatewayClient calls an OpenAI-compatible /chat/completions endpoint.
type GatewayClient struct {
	config     GatewayConfig
	httpClient *http.Client
}

// GatewayOption customizes a GatewayClient.
type GatewayOption func(*GatewayClient)

// WithHTTPClient replaces the default HTTP client. Its timeout is left as given.
func WithHTTPClient(hc *http.Client) GatewayOption {
	return func(c *GatewayClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewGatewayClient creates a gateway client
func NewGatewayClient(cfg GatewayConfig, opts ...GatewayOption) (*GatewayClient, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}

	c := &GatewayClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ChatCompletion sends one completion request. Failures are reported as
// *TimeoutError, *ConnectionError, *StatusError or *FormatError.
func (c *GatewayClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := otel.Tracer("content-pipeline/llm").Start(ctx, "llm.chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", req.Model))

	resp, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
	return resp, nil
}

func (c *GatewayClient) do(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(chatRequestBody{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", c.config.Referer)
	httpReq.Header.Set("X-Title", c.config.Title)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if err := schemas.Validate(schemafiles.ChatCompletionResponse, raw); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) {
			return nil, &FormatError{Reason: verr.Summary(), Cause: err}
		}
		return nil, &FormatError{Reason: "response is not valid JSON", Cause: err}
	}

	var out ChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &FormatError{Reason: "response is not valid JSON", Cause: err}
	}
	return &out, nil
}

// classifyTransportError maps a failed round trip to a timeout or connection error.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Cause: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &TimeoutError{Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Cause: err}
	}
	return &ConnectionError{Cause: err}
}
