package types

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

// Run statuses. A run starts pending and moves to exactly one terminal status.
const (
	RunStatusPending   RunStatus = "pending"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether the status is completed or failed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// StageContentGeneration is the only stage the pipeline currently runs.
const StageContentGeneration = "content_generation"

// PipelineRun is the persisted record of one content generation attempt.
type PipelineRun struct {
	ID                    uuid.UUID      `json:"id"`
	ClientID              uuid.UUID      `json:"client_id"`
	Status                RunStatus      `json:"status"`
	Stage                 string         `json:"stage"`
	InputData             map[string]any `json:"input_data"`
	DraftContent          map[string]any `json:"draft_content,omitempty"`
	QualityScore          *float64       `json:"quality_score,omitempty"`
	ProcessingTimeSeconds *int           `json:"processing_time_seconds,omitempty"`
	AIModelCalls          map[string]any `json:"ai_model_calls,omitempty"`
	ErrorMessage          *string        `json:"error_message,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	CompletedAt           *time.Time     `json:"completed_at,omitempty"`
}

// PipelineRequest is the body of a content generation request.
type PipelineRequest struct {
	ClientID    uuid.UUID      `json:"client_id" validate:"required"`
	ContentType string         `json:"content_type" validate:"required"`
	Prompt      string         `json:"prompt" validate:"required"`
	Context     map[string]any `json:"context,omitempty"`
	Model       string         `json:"model,omitempty"`
}

// PipelineResponse is returned after a successful pipeline run.
type PipelineResponse struct {
	PipelineRunID  uuid.UUID      `json:"pipeline_run_id"`
	Content        string         `json:"content"`
	QualityScore   float64        `json:"quality_score"`
	ProcessingTime float64        `json:"processing_time"`
	Metadata       map[string]any `json:"metadata"`
}

// PipelineRunList is one page of a client's runs.
type PipelineRunList struct {
	ClientID uuid.UUID     `json:"client_id"`
	Runs     []PipelineRun `json:"runs"`
	Total    int           `json:"total"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
}
