// Package generation turns a client profile and a prompt into on-brand content
// through a single chat completion call.
package generation

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/content-pipeline/internal/llm"
	"github.com/jonathan/content-pipeline/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Config controls model selection and sampling.
type Config struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float64
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		DefaultModel: "openai/gpt-4",
		MaxTokens:    llm.DefaultMaxTokens,
		Temperature:  llm.DefaultTemperature,
	}
}

// Request is one generation request.
type Request struct {
	Profile     *types.ClientProfile
	ContentType string
	Prompt      string
	Context     map[string]any
	// Model overrides Config.DefaultModel when set.
	Model string
}

// Response is the generated content and its bookkeeping.
type Response struct {
	Content        string
	Metadata       map[string]any
	QualityScore   float64
	ProcessingTime time.Duration
	Model          string
	TokensUsed     int
	Cost           float64
}

// Client generates content through a ChatClient.
type Client struct {
	chat llm.ChatClient
	cfg  Config
	now  func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithClock replaces time.Now for processing time measurement.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a generation client. Zero config fields take defaults.
func NewClient(chat llm.ChatClient, cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.DefaultModel) == "" {
		cfg.DefaultModel = def.DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	c := &Client{chat: chat, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate builds the prompts, calls the gateway once and scores the result.
// Every failure is returned as *Error.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		return nil, &Error{Message: "Content type cannot be empty"}
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, &Error{Message: "Prompt cannot be empty"}
	}
	if req.Profile == nil {
		return nil, &Error{Message: "Client profile is required"}
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.DefaultModel
	}

	ctx, span := otel.Tracer("content-pipeline/generation").Start(ctx, "generation.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("generation.model", model),
		attribute.String("generation.content_type", contentType),
	)

	start := c.now()
	resp, err := c.generate(ctx, req.Profile, prompt, req.Context, model)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	resp.ProcessingTime = c.now().Sub(start)
	span.SetAttributes(attribute.Float64("generation.quality_score", resp.QualityScore))
	return resp, nil
}

func (c *Client) generate(ctx context.Context, profile *types.ClientProfile, prompt string, extra map[string]any, model string) (*Response, error) {
	systemPrompt := BuildSystemPrompt(profile)
	userPrompt := BuildUserPrompt(prompt, extra)

	chatResp, err := c.chat.ChatCompletion(ctx, llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, classify(err)
	}

	content, err := chatResp.FirstContent()
	if err != nil {
		return nil, classify(err)
	}

	tokens := chatResp.Usage.TotalTokens
	cost := EstimateCost(tokens, model)
	return &Response{
		Content:      content,
		QualityScore: QualityScore(content, profile),
		Model:        model,
		TokensUsed:   tokens,
		Cost:         cost,
		Metadata: map[string]any{
			"model":                model,
			"tokens_used":          tokens,
			"cost":                 cost,
			"system_prompt_length": utf8.RuneCountInString(systemPrompt),
			"user_prompt_length":   utf8.RuneCountInString(userPrompt),
		},
	}, nil
}

// classify maps a gateway failure to an *Error with a caller-facing message.
func classify(err error) *Error {
	var (
		timeoutErr *llm.TimeoutError
		connErr    *llm.ConnectionError
		statusErr  *llm.StatusError
		formatErr  *llm.FormatError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return newError("Request timed out", timeoutErr)
	case errors.As(err, &connErr):
		return newError("Connection error", connErr)
	case errors.As(err, &statusErr):
		return newError("OpenRouter API error", statusErr)
	case errors.As(err, &formatErr):
		return &Error{Message: "Invalid response format: " + formatErr.Reason, Cause: formatErr}
	default:
		return newError("Unexpected error during content generation", err)
	}
}
