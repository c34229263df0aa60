// Package pipeline orchestrates a content generation run: load the client,
// record a pending run, generate, then write the outcome back to the run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonathan/content-pipeline/internal/db"
	"github.com/jonathan/content-pipeline/internal/generation"
	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/types"
)

// Progress steps, in the order they are emitted.
const (
	StepClientLoaded = "client_loaded"
	StepRunCreated   = "run_created"
	StepGenerating   = "generating"
	StepCompleted    = "completed"
	StepFailed       = "failed"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Store is the subset of db.Store the orchestrator writes through.
type Store interface {
	GetClient(ctx context.Context, id uuid.UUID) (*types.ClientProfile, error)
	CreatePipelineRun(ctx context.Context, clientID uuid.UUID, stage string, input map[string]any) (*types.PipelineRun, error)
	CompletePipelineRun(ctx context.Context, runID uuid.UUID, result db.RunResult) error
	FailPipelineRun(ctx context.Context, runID uuid.UUID, message string) error
}

// Generator produces content for a client.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Response, error)
}

// Request holds the inputs of one pipeline run.
type Request struct {
	ClientID    uuid.UUID
	ContentType string
	Prompt      string
	Context     map[string]any
	Model       string
	OnProgress  ProgressCallback
}

// Orchestrator runs content pipelines against a store and a generator.
type Orchestrator struct {
	store Store
	gen   Generator
	log   *logging.Logger
}

// New creates an Orchestrator. A nil logger discards output.
func New(store Store, gen Generator, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{store: store, gen: gen, log: log}
}

// RunPipeline executes one run. Store errors from loading the client are
// returned unchanged and leave no run behind. Once a run exists it gets one
// terminal write: a generation failure marks it failed, and a failed
// completion write is returned without a second attempt.
func (o *Orchestrator) RunPipeline(ctx context.Context, req Request) (*types.PipelineResponse, error) {
	ctx, span := otel.Tracer("content-pipeline/pipeline").Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.client_id", req.ClientID.String()),
		attribute.String("pipeline.content_type", req.ContentType),
		attribute.String("pipeline.model", req.Model),
	)

	emit := func(step, message, runID string, content any) {
		if req.OnProgress != nil {
			req.OnProgress(ProgressEvent{
				Step:    step,
				Stage:   types.StageContentGeneration,
				Message: message,
				RunID:   runID,
				Content: content,
			})
		}
	}

	profile, err := o.store.GetClient(ctx, req.ClientID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	emit(StepClientLoaded, fmt.Sprintf("Loaded client %s", profile.Name), "", nil)

	run, err := o.store.CreatePipelineRun(ctx, req.ClientID, types.StageContentGeneration, inputSnapshot(req))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	runID := run.ID.String()
	span.SetAttributes(attribute.String("pipeline.run_id", runID))
	log := o.log.With("run_id", runID, "client_id", req.ClientID.String())
	log.Info("pipeline run created", "content_type", req.ContentType)
	emit(StepRunCreated, "Created pipeline run", runID, nil)

	emit(StepGenerating, "Generating content", runID, nil)
	// The gateway call is bounded by its own timeout only.
	resp, err := o.gen.Generate(context.WithoutCancel(ctx), generation.Request{
		Profile:     profile,
		ContentType: req.ContentType,
		Prompt:      req.Prompt,
		Context:     req.Context,
		Model:       req.Model,
	})
	if err != nil {
		return nil, o.fail(ctx, log, run.ID, err, emit)
	}

	result := db.RunResult{
		Content:               resp.Content,
		QualityScore:          resp.QualityScore,
		Metadata:              resp.Metadata,
		ProcessingTimeSeconds: int(resp.ProcessingTime.Seconds()),
		Model:                 resp.Model,
		TokensUsed:            resp.TokensUsed,
		Cost:                  resp.Cost,
	}
	if err := o.store.CompletePipelineRun(context.WithoutCancel(ctx), run.ID, result); err != nil {
		err = fmt.Errorf("failed to record completed run: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("pipeline run not recorded", "error", err)
		emit(StepFailed, err.Error(), runID, nil)
		return nil, err
	}

	out := &types.PipelineResponse{
		PipelineRunID:  run.ID,
		Content:        resp.Content,
		QualityScore:   resp.QualityScore,
		ProcessingTime: resp.ProcessingTime.Seconds(),
		Metadata:       resp.Metadata,
	}

	span.SetAttributes(
		attribute.String("pipeline.status", string(types.RunStatusCompleted)),
		attribute.Float64("pipeline.quality_score", resp.QualityScore),
	)
	log.Info("pipeline run completed",
		"quality_score", resp.QualityScore,
		"model", resp.Model,
		"tokens_used", resp.TokensUsed,
	)
	emit(StepCompleted, "Content generated", runID, out)
	return out, nil
}

// fail records the failure on the run and returns cause unchanged. A failed
// write-back is logged only.
func (o *Orchestrator) fail(ctx context.Context, log *logging.Logger, runID uuid.UUID, cause error, emit func(step, message, runID string, content any)) error {
	span := trace.SpanFromContext(ctx)
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	span.SetAttributes(attribute.String("pipeline.status", string(types.RunStatusFailed)))

	if err := o.store.FailPipelineRun(context.WithoutCancel(ctx), runID, cause.Error()); err != nil {
		log.Error("failed to record failed run", "error", err)
	}
	log.Warn("pipeline run failed", "error", cause.Error())
	emit(StepFailed, cause.Error(), runID.String(), nil)
	return cause
}

// inputSnapshot is the input_data document stored on a new run.
func inputSnapshot(req Request) map[string]any {
	var model any
	if req.Model != "" {
		model = req.Model
	}
	extra := req.Context
	if extra == nil {
		extra = map[string]any{}
	}
	return map[string]any{
		"content_type": req.ContentType,
		"prompt":       req.Prompt,
		"context":      extra,
		"model":        model,
	}
}
