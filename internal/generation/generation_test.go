package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/content-pipeline/internal/llm"
	"github.com/jonathan/content-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	resp  *llm.ChatResponse
	err   error
	calls []llm.ChatRequest
}

func (f *fakeChat) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func chatReply(content string, tokens int) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: content}}},
		Usage:   llm.Usage{TotalTokens: tokens},
	}
}

func testProfile() *types.ClientProfile {
	return &types.ClientProfile{
		Name:  "Ada",
		Email: "ada@example.com",
		ServiceOffering: types.ServiceOffering{
			Services: []string{"Bookkeeping", "Payroll"},
		},
		ICPProfile: types.ICPProfile{
			Industry:    "Widgets",
			CompanySize: "10-50",
			PainPoints:  []string{"cash flow"},
		},
		PositioningStatement: "We are the calmest accountants around",
		ContentPreferences: types.ContentPreferences{
			Platforms:    []types.Platform{types.PlatformLinkedIn, types.PlatformBlog},
			Frequency:    "weekly",
			ContentTypes: []types.ContentType{types.ContentEducational},
		},
	}
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestQualityScore(t *testing.T) {
	profile := testProfile()

	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"empty", "", 3.0},
		{"short with structure", "Widgets help you grow. \n\nMore widgets.", 5.0},
		{"good length", strings.Repeat("a", 150), 6.0},
		{"between 50 and 100 gets no length bonus", strings.Repeat("a", 60), 5.0},
		{"too long", strings.Repeat("b", 2001), 4.0},
		{"service match is case-insensitive", strings.Repeat("x", 40) + " PAYROLL", 4.0},
		{"positioning keyword", strings.Repeat("x", 40) + " calmest", 3.5},
		{"short positioning words do not count", strings.Repeat("x", 40) + " the", 3.0},
		{
			"everything",
			"Widgets teams love our bookkeeping. The calmest path to clarity.\n\n" + strings.Repeat("More detail here. ", 5),
			9.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, QualityScore(tt.content, profile), 1e-9)
		})
	}
}

func TestQualityScore_Bounds(t *testing.T) {
	profile := testProfile()
	inputs := []string{"", ".", "\n\n\n", strings.Repeat("widgets payroll calmest.\n", 300)}
	for _, in := range inputs {
		s := QualityScore(in, profile)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 10.0)
		assert.Equal(t, s, QualityScore(in, profile))
	}
}

func TestPositioningKeywords(t *testing.T) {
	assert.Equal(t, []string{"calmest", "accountants", "around"}, positioningKeywords("We are the calmest accountants around here today"))
	assert.Empty(t, positioningKeywords("a b c"))
}

func TestEstimateCost(t *testing.T) {
	assert.InDelta(t, 0.045, EstimateCost(1500, "openai/gpt-4"), 1e-12)
	assert.InDelta(t, 0.002, EstimateCost(1000, "openai/gpt-3.5-turbo"), 1e-12)
	assert.InDelta(t, 0.00025, EstimateCost(1000, "anthropic/claude-3-haiku"), 1e-12)
	assert.InDelta(t, 0.006, EstimateCost(2000, "anthropic/claude-3-sonnet"), 1e-12)
	assert.InDelta(t, 0.005, EstimateCost(500, "mistral/unknown"), 1e-12)
	assert.Zero(t, EstimateCost(0, "openai/gpt-4"))
}

func TestBuildSystemPrompt(t *testing.T) {
	profile := testProfile()
	out := BuildSystemPrompt(profile)

	assert.True(t, strings.HasPrefix(out, "You are an expert content strategist and copywriter specializing in Widgets companies.\n\nClient Context:\n"))
	assert.Contains(t, out, "- Services: Bookkeeping, Payroll\n")
	assert.Contains(t, out, "- Positioning: We are the calmest accountants around\n")
	assert.Contains(t, out, "- Preferred Platforms: linkedin, blog\n")
	assert.Contains(t, out, "- Content Types: educational\n")
	assert.Contains(t, out, "- Tone: professional\n")
	assert.Contains(t, out, "3. Maintains the specified tone: professional\n")
	assert.NotContains(t, out, "{{.")

	profile.ContentPreferences.Tone = "playful"
	assert.Contains(t, BuildSystemPrompt(profile), "- Tone: playful\n")
}

func TestBuildUserPrompt(t *testing.T) {
	assert.Equal(t, "Write a post", BuildUserPrompt("Write a post", nil))
	assert.Equal(t, "Write a post", BuildUserPrompt("Write a post", map[string]any{"empty": ""}))

	out := BuildUserPrompt("Write a post", map[string]any{
		"target_audience": "CFOs",
		"call_to_action":  "Book a demo",
		"skip":            "",
		"b2b_focus":       "yes",
	})
	want := "Write a post\n\nAdditional Context:\n" +
		"B2B Focus: yes\n" +
		"Call To Action: Book a demo\n" +
		"Target Audience: CFOs"
	assert.Equal(t, want, out)
}

func TestBuildUserPrompt_NonStringValues(t *testing.T) {
	out := BuildUserPrompt("Write", map[string]any{
		"word_count":  float64(300),
		"include_cta": true,
		"ratio":       2.5,
		"keywords":    []any{"tax", "audit"},
	})
	want := "Write\n\nAdditional Context:\n" +
		"Include Cta: true\n" +
		"Keywords: [tax audit]\n" +
		"Ratio: 2.5\n" +
		"Word Count: 300"
	assert.Equal(t, want, out)
}

func TestBuildUserPrompt_SkipsEmptyValues(t *testing.T) {
	out := BuildUserPrompt("Write", map[string]any{
		"nothing":  nil,
		"blank":    "",
		"disabled": false,
		"zero":     float64(0),
		"count":    0,
		"list":     []any{},
		"nested":   map[string]any{},
	})
	assert.Equal(t, "Write", out)

	out = BuildUserPrompt("Write", map[string]any{"zero": 0, "tone": "warm"})
	assert.Equal(t, "Write\n\nAdditional Context:\nTone: warm", out)
}

func TestTitleKey(t *testing.T) {
	assert.Equal(t, "Target Audience", titleKey("target_audience"))
	assert.Equal(t, "Seo Keywords", titleKey("SEO_keywords"))
	assert.Equal(t, "Q4 Goals", titleKey("q4_goals"))
}

func TestGenerate_Success(t *testing.T) {
	chat := &fakeChat{resp: chatReply("  Widgets help you grow. \n\nMore widgets.  ", 1200)}
	client := NewClient(chat, Config{DefaultModel: "openai/gpt-4", MaxTokens: 1000, Temperature: 0.7}, WithClock(stepClock(2*time.Second)))

	resp, err := client.Generate(context.Background(), Request{
		Profile:     testProfile(),
		ContentType: " linkedin_post ",
		Prompt:      "  Write about growth  ",
		Context:     map[string]any{"target_audience": "CFOs"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Widgets help you grow. \n\nMore widgets.", resp.Content)
	assert.InDelta(t, 5.0, resp.QualityScore, 1e-9)
	assert.Equal(t, 2*time.Second, resp.ProcessingTime)
	assert.Equal(t, "openai/gpt-4", resp.Metadata["model"])
	assert.Equal(t, 1200, resp.Metadata["tokens_used"])
	assert.InDelta(t, 0.036, resp.Metadata["cost"].(float64), 1e-12)
	assert.Contains(t, resp.Metadata, "system_prompt_length")
	assert.Contains(t, resp.Metadata, "user_prompt_length")

	require.Len(t, chat.calls, 1)
	call := chat.calls[0]
	assert.Equal(t, "openai/gpt-4", call.Model)
	assert.Equal(t, 1000, call.MaxTokens)
	assert.Equal(t, 0.7, call.Temperature)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, "system", call.Messages[0].Role)
	assert.Equal(t, "user", call.Messages[1].Role)
	assert.Equal(t, "Write about growth\n\nAdditional Context:\nTarget Audience: CFOs", call.Messages[1].Content)
	assert.Equal(t, len([]rune(call.Messages[0].Content)), resp.Metadata["system_prompt_length"])
}

func TestGenerate_ModelOverride(t *testing.T) {
	chat := &fakeChat{resp: chatReply("ok content", 0)}
	client := NewClient(chat, Config{})

	resp, err := client.Generate(context.Background(), Request{
		Profile: testProfile(), ContentType: "blog", Prompt: "p", Model: "anthropic/claude-3-haiku",
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3-haiku", chat.calls[0].Model)
	assert.Equal(t, 0, resp.TokensUsed)
	assert.Zero(t, resp.Cost)
}

func TestGenerate_RejectsEmptyInputWithoutCalling(t *testing.T) {
	chat := &fakeChat{resp: chatReply("x", 1)}
	client := NewClient(chat, Config{})

	_, err := client.Generate(context.Background(), Request{Profile: testProfile(), ContentType: "  ", Prompt: "p"})
	var genErr *Error
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "Content type cannot be empty", genErr.Message)

	_, err = client.Generate(context.Background(), Request{Profile: testProfile(), ContentType: "blog", Prompt: "\t"})
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "Prompt cannot be empty", genErr.Message)

	assert.Empty(t, chat.calls)
}

func TestGenerate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		chat *fakeChat
		want string
	}{
		{"timeout", &fakeChat{err: &llm.TimeoutError{}}, "Request timed out: OpenRouter API request timed out"},
		{"connection", &fakeChat{err: &llm.ConnectionError{}}, "Connection error: Failed to connect to OpenRouter API"},
		{"status", &fakeChat{err: &llm.StatusError{StatusCode: 502, Body: "bad gateway"}}, "OpenRouter API error: OpenRouter API returned status 502: bad gateway"},
		{"no choices", &fakeChat{resp: &llm.ChatResponse{Choices: []llm.Choice{}}}, "Invalid response format: no choices found"},
		{"empty content", &fakeChat{resp: chatReply("   ", 3)}, "Invalid response format: empty content"},
		{"other", &fakeChat{err: errors.New("boom")}, "Unexpected error during content generation: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.chat, Config{})
			_, err := client.Generate(context.Background(), Request{Profile: testProfile(), ContentType: "blog", Prompt: "p"})
			var genErr *Error
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, tt.want, genErr.Error())
			assert.Len(t, tt.chat.calls, 1)
		})
	}
}

func TestGenerate_KeepsGatewayCause(t *testing.T) {
	cause := &llm.StatusError{StatusCode: 401, Body: "no key"}
	client := NewClient(&fakeChat{err: cause}, Config{})
	_, err := client.Generate(context.Background(), Request{Profile: testProfile(), ContentType: "blog", Prompt: "p"})

	var statusErr *llm.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 401, statusErr.StatusCode)
}
