package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jonathan/content-pipeline/internal/db"
	"github.com/jonathan/content-pipeline/internal/generation"
	"github.com/jonathan/content-pipeline/internal/llm"
	"github.com/jonathan/content-pipeline/internal/types"
)

type fakeGenerator struct {
	resp *generation.Response
	err  error
	reqs []generation.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req generation.Request) (*generation.Response, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func setupStore(t *testing.T) *db.GormStore {
	t.Helper()
	store, err := db.NewGormStore("", db.WithGormLogger(gormlogger.Discard))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func createClient(t *testing.T, store db.Store) *types.ClientProfile {
	t.Helper()
	p, err := store.CreateClient(context.Background(), &types.ClientIntakeRequest{
		Name:  "Grace",
		Email: "grace@example.com",
		ServiceOffering: types.ServiceOffering{
			Services: []string{"Security audits"},
		},
		ICPProfile: types.ICPProfile{
			Industry:    "Healthcare",
			CompanySize: "200+",
			PainPoints:  []string{"compliance"},
		},
		PositioningStatement: "Pragmatic security for regulated teams",
		ContentPreferences: types.ContentPreferences{
			Platforms:    []types.Platform{types.PlatformLinkedIn},
			Frequency:    "weekly",
			ContentTypes: []types.ContentType{types.ContentThoughtLeadership},
		},
	})
	require.NoError(t, err)
	return p
}

func successResponse() *generation.Response {
	return &generation.Response{
		Content:        "Healthcare security, simplified.",
		QualityScore:   6.5,
		ProcessingTime: 2700 * time.Millisecond,
		Model:          "openai/gpt-4",
		TokensUsed:     420,
		Cost:           0.0126,
		Metadata: map[string]any{
			"model":       "openai/gpt-4",
			"tokens_used": 420,
			"cost":        0.0126,
		},
	}
}

func TestRunPipeline_Success(t *testing.T) {
	store := setupStore(t)
	client := createClient(t, store)
	gen := &fakeGenerator{resp: successResponse()}

	var steps []string
	o := New(store, gen, nil)
	out, err := o.RunPipeline(context.Background(), Request{
		ClientID:    client.ID,
		ContentType: "linkedin_post",
		Prompt:      "Write about HIPAA",
		Context:     map[string]any{"audience": "CISOs"},
		OnProgress:  func(e ProgressEvent) { steps = append(steps, e.Step) },
	})
	require.NoError(t, err)

	assert.Equal(t, "Healthcare security, simplified.", out.Content)
	assert.InDelta(t, 6.5, out.QualityScore, 1e-9)
	assert.InDelta(t, 2.7, out.ProcessingTime, 1e-9)
	assert.Equal(t, []string{StepClientLoaded, StepRunCreated, StepGenerating, StepCompleted}, steps)

	require.Len(t, gen.reqs, 1)
	assert.Equal(t, client.ID, gen.reqs[0].Profile.ID)
	assert.Equal(t, "CISOs", gen.reqs[0].Context["audience"])

	run, err := store.GetPipelineRun(context.Background(), out.PipelineRunID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusCompleted, run.Status)
	assert.Equal(t, types.StageContentGeneration, run.Stage)
	assert.Equal(t, client.ID, run.ClientID)
	require.NotNil(t, run.QualityScore)
	assert.InDelta(t, 6.5, *run.QualityScore, 1e-9)
	require.NotNil(t, run.ProcessingTimeSeconds)
	assert.Equal(t, 2, *run.ProcessingTimeSeconds)
	assert.NotNil(t, run.CompletedAt)
	assert.Nil(t, run.ErrorMessage)
	assert.Equal(t, "Healthcare security, simplified.", run.DraftContent["content"])
	assert.Equal(t, "openai/gpt-4", run.AIModelCalls["model"])
	assert.Equal(t, "linkedin_post", run.InputData["content_type"])
	assert.Nil(t, run.InputData["model"])
}

func TestRunPipeline_UnknownClientCreatesNoRun(t *testing.T) {
	store := setupStore(t)
	gen := &fakeGenerator{resp: successResponse()}

	_, err := New(store, gen, nil).RunPipeline(context.Background(), Request{
		ClientID: uuid.New(), ContentType: "blog", Prompt: "p",
	})
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))
	assert.Empty(t, gen.reqs)
}

func TestRunPipeline_GenerationFailureMarksRunFailed(t *testing.T) {
	store := setupStore(t)
	client := createClient(t, store)
	genErr := &generation.Error{
		Message: "Invalid response format: no choices found",
		Cause:   &llm.FormatError{Reason: "no choices found"},
	}

	var last ProgressEvent
	_, err := New(store, &fakeGenerator{err: genErr}, nil).RunPipeline(context.Background(), Request{
		ClientID:    client.ID,
		ContentType: "blog",
		Prompt:      "p",
		Model:       "openai/gpt-3.5-turbo",
		OnProgress:  func(e ProgressEvent) { last = e },
	})
	require.Error(t, err)
	assert.Same(t, genErr, err)
	assert.Equal(t, StepFailed, last.Step)

	runs, total, err := store.ListPipelineRuns(context.Background(), client.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	run := runs[0]
	assert.Equal(t, types.RunStatusFailed, run.Status)
	require.NotNil(t, run.ErrorMessage)
	assert.Contains(t, *run.ErrorMessage, "Invalid response format")
	assert.NotNil(t, run.CompletedAt)
	assert.Nil(t, run.QualityScore)
	assert.Equal(t, "openai/gpt-3.5-turbo", run.InputData["model"])
}

// recordingStore wraps a store and can fail the completion write.
type recordingStore struct {
	Store
	completeErr error
	failErr     error
	failed      []string
}

func (s *recordingStore) CompletePipelineRun(ctx context.Context, runID uuid.UUID, result db.RunResult) error {
	if s.completeErr != nil {
		return s.completeErr
	}
	return s.Store.CompletePipelineRun(ctx, runID, result)
}

func (s *recordingStore) FailPipelineRun(ctx context.Context, runID uuid.UUID, message string) error {
	s.failed = append(s.failed, message)
	if s.failErr != nil {
		return s.failErr
	}
	return s.Store.FailPipelineRun(ctx, runID, message)
}

func TestRunPipeline_CompletionWriteFailure(t *testing.T) {
	base := setupStore(t)
	client := createClient(t, base)
	store := &recordingStore{Store: base, completeErr: errors.New("disk full")}

	var last ProgressEvent
	_, err := New(store, &fakeGenerator{resp: successResponse()}, nil).RunPipeline(context.Background(), Request{
		ClientID: client.ID, ContentType: "blog", Prompt: "p",
		OnProgress: func(e ProgressEvent) { last = e },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, store.failed, "no second terminal write")
	assert.Equal(t, StepFailed, last.Step)

	runs, _, err := base.ListPipelineRuns(context.Background(), client.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunStatusPending, runs[0].Status)
}

func TestRunPipeline_CallerCancelDoesNotAbortGeneration(t *testing.T) {
	store := setupStore(t)
	client := createClient(t, store)

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"gen-1","model":"openai/gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"Secure by default."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
	}))
	defer gateway.Close()

	chat, err := llm.NewGatewayClient(llm.GatewayConfig{BaseURL: gateway.URL, APIKey: "test-key"})
	require.NoError(t, err)
	gen := generation.NewClient(chat, generation.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	out, err := New(store, gen, nil).RunPipeline(ctx, Request{
		ClientID: client.ID, ContentType: "blog", Prompt: "Write about audits",
	})
	require.NoError(t, err)
	assert.Equal(t, "Secure by default.", out.Content)

	run, err := store.GetPipelineRun(context.Background(), out.PipelineRunID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusCompleted, run.Status)
	assert.Nil(t, run.ErrorMessage)
}

func TestRunPipeline_FailWriteErrorKeepsOriginalError(t *testing.T) {
	base := setupStore(t)
	client := createClient(t, base)
	store := &recordingStore{Store: base, failErr: errors.New("db down")}
	genErr := &generation.Error{Message: "Request timed out: OpenRouter API request timed out"}

	_, err := New(store, &fakeGenerator{err: genErr}, nil).RunPipeline(context.Background(), Request{
		ClientID: client.ID, ContentType: "blog", Prompt: "p",
	})
	assert.Same(t, genErr, err)
	assert.Equal(t, []string{genErr.Message}, store.failed)
}

func TestInputSnapshot(t *testing.T) {
	snap := inputSnapshot(Request{ContentType: "blog", Prompt: "p"})
	assert.Equal(t, map[string]any{}, snap["context"])
	assert.Nil(t, snap["model"])

	snap = inputSnapshot(Request{ContentType: "blog", Prompt: "p", Model: "m"})
	assert.Equal(t, "m", snap["model"])
}
