package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/content-pipeline/internal/types"
)

const runColumns = `id, client_id, status, stage, input_data, draft_content, quality_score,
	processing_time_seconds, ai_model_calls, error_message, created_at, completed_at`

func scanRun(row rowScanner) (*types.PipelineRun, error) {
	var run types.PipelineRun
	var status string
	var inputJSON, draftJSON, callsJSON []byte

	if err := row.Scan(&run.ID, &run.ClientID, &status, &run.Stage, &inputJSON, &draftJSON,
		&run.QualityScore, &run.ProcessingTimeSeconds, &callsJSON, &run.ErrorMessage,
		&run.CreatedAt, &run.CompletedAt); err != nil {
		return nil, err
	}
	run.Status = types.RunStatus(status)
	run.InputData = unmarshalMap(inputJSON)
	run.DraftContent = unmarshalMap(draftJSON)
	run.AIModelCalls = unmarshalMap(callsJSON)
	return &run, nil
}

// CreatePipelineRun inserts a pending run for the client
func (s *PostgresStore) CreatePipelineRun(ctx context.Context, clientID uuid.UUID, stage string, input map[string]any) (*types.PipelineRun, error) {
	inputJSON, err := marshalMap(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input data: %w", err)
	}
	if inputJSON == nil {
		inputJSON = []byte("{}")
	}

	run, err := scanRun(s.pool.QueryRow(ctx,
		`INSERT INTO content_pipeline_runs (client_id, status, stage, input_data)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+runColumns,
		clientID, string(types.RunStatusPending), stage, inputJSON,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, &NotFoundError{Entity: "client", ID: clientID.String()}
		}
		return nil, wrapErr("create pipeline run", err)
	}
	return run, nil
}

// CompletePipelineRun moves a pending run to completed
func (s *PostgresStore) CompletePipelineRun(ctx context.Context, runID uuid.UUID, result RunResult) error {
	draftJSON, err := marshalMap(result.DraftContent())
	if err != nil {
		return fmt.Errorf("failed to marshal draft content: %w", err)
	}
	callsJSON, err := marshalMap(result.ModelCalls())
	if err != nil {
		return fmt.Errorf("failed to marshal model calls: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE content_pipeline_runs
		 SET status = $1, draft_content = $2, quality_score = $3, processing_time_seconds = $4,
		     ai_model_calls = $5, completed_at = NOW()
		 WHERE id = $6 AND status = $7`,
		string(types.RunStatusCompleted), draftJSON, result.QualityScore, result.ProcessingTimeSeconds,
		callsJSON, runID, string(types.RunStatusPending),
	)
	if err != nil {
		return wrapErr("complete pipeline run", err)
	}
	if tag.RowsAffected() == 0 {
		return s.terminalWriteMiss(ctx, runID)
	}
	return nil
}

// FailPipelineRun moves a pending run to failed with the error message
func (s *PostgresStore) FailPipelineRun(ctx context.Context, runID uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE content_pipeline_runs
		 SET status = $1, error_message = $2, completed_at = NOW()
		 WHERE id = $3 AND status = $4`,
		string(types.RunStatusFailed), message, runID, string(types.RunStatusPending),
	)
	if err != nil {
		return wrapErr("fail pipeline run", err)
	}
	if tag.RowsAffected() == 0 {
		return s.terminalWriteMiss(ctx, runID)
	}
	return nil
}

// terminalWriteMiss explains why a guarded terminal update touched no rows.
func (s *PostgresStore) terminalWriteMiss(ctx context.Context, runID uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM content_pipeline_runs WHERE id = $1)`, runID,
	).Scan(&exists); err != nil {
		return wrapErr("check pipeline run", err)
	}
	if !exists {
		return &NotFoundError{Entity: "pipeline run", ID: runID.String()}
	}
	return ErrRunAlreadyTerminal
}

// GetPipelineRun retrieves a run by ID
func (s *PostgresStore) GetPipelineRun(ctx context.Context, runID uuid.UUID) (*types.PipelineRun, error) {
	run, err := scanRun(s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM content_pipeline_runs WHERE id = $1`, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "pipeline run", ID: runID.String()}
		}
		return nil, wrapErr("get pipeline run", err)
	}
	return run, nil
}

// ListPipelineRuns returns a client's runs in creation order and the total count
func (s *PostgresStore) ListPipelineRuns(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]types.PipelineRun, int, error) {
	limit, offset = normalizeRunPage(limit, offset)

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM content_pipeline_runs WHERE client_id = $1`, clientID,
	).Scan(&total); err != nil {
		return nil, 0, wrapErr("count pipeline runs", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM content_pipeline_runs
		 WHERE client_id = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2 OFFSET $3`,
		clientID, limit, offset,
	)
	if err != nil {
		return nil, 0, wrapErr("list pipeline runs", err)
	}
	defer rows.Close()

	runs := []types.PipelineRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, wrapErr("scan pipeline run", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr("list pipeline runs", err)
	}
	return runs, total, nil
}
