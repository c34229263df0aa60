package server

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/jonathan/content-pipeline/internal/db"
	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/pipeline"
	"github.com/jonathan/content-pipeline/internal/schemas"
	"github.com/jonathan/content-pipeline/internal/types"
	schemafiles "github.com/jonathan/content-pipeline/schemas"
)

// parsePipelineRequest validates the body against the request schema, then
// decodes it and rejects blank content_type or prompt.
func (s *Server) parsePipelineRequest(r *http.Request) (*types.PipelineRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil, &ValidationError{Field: "body", Message: "request body is required"}
	}
	if err := schemas.Validate(schemafiles.PipelineRequest, body); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) && len(verr.Errors) > 0 {
			return nil, &ValidationError{Field: verr.Errors[0].Field, Message: verr.Summary()}
		}
		return nil, &ValidationError{Field: "body", Message: "invalid JSON"}
	}

	var req types.PipelineRequest
	if err := s.decodeJSON(body, &req); err != nil {
		return nil, err
	}
	req.ContentType = strings.TrimSpace(req.ContentType)
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.Model = strings.TrimSpace(req.Model)
	if req.ContentType == "" {
		return nil, &ValidationError{Field: "content_type", Message: "cannot be empty"}
	}
	if req.Prompt == "" {
		return nil, &ValidationError{Field: "prompt", Message: "cannot be empty"}
	}
	return &req, nil
}

func toPipelineRequest(req *types.PipelineRequest) pipeline.Request {
	return pipeline.Request{
		ClientID:    req.ClientID,
		ContentType: req.ContentType,
		Prompt:      req.Prompt,
		Context:     req.Context,
		Model:       req.Model,
	}
}

// handleGenerate runs one pipeline and returns the generated content
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := s.parsePipelineRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.runner.RunPipeline(r.Context(), toPipelineRequest(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, resp)
}

// handleGenerateStream runs one pipeline and streams progress as SSE events.
// Request errors are answered as JSON before the stream opens.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.parsePipelineRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	log := logging.FromContext(r.Context(), s.log)
	preq := toPipelineRequest(req)
	preq.OnProgress = func(e pipeline.ProgressEvent) {
		if e.Step == pipeline.StepCompleted || e.Step == pipeline.StepFailed {
			return
		}
		if err := sse.WriteEvent("progress", e); err != nil {
			log.Warn("failed to write progress event", "error", err)
		}
	}

	resp, err := s.runner.RunPipeline(r.Context(), preq)
	if err != nil {
		if HTTPStatus(err) >= http.StatusInternalServerError {
			log.Error("streamed pipeline failed", "error", err)
		}
		sse.WriteError(publicMessage(err))
		return
	}
	if err := sse.WriteEvent("result", resp); err != nil {
		log.Warn("failed to write result event", "error", err)
		return
	}
	sse.WriteComplete(resp.PipelineRunID.String(), string(types.RunStatusCompleted))
}

// handleGetRun returns one pipeline run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "run_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.store.GetPipelineRun(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleListClientRuns lists a client's runs in creation order
func (s *Server) handleListClientRuns(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathUUID(r, "client_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", db.DefaultRunLimit, 1, db.MaxPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, math.MaxInt32)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.store.GetClient(r.Context(), clientID); err != nil {
		s.writeError(w, r, err)
		return
	}
	runs, total, err := s.store.ListPipelineRuns(r.Context(), clientID, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []types.PipelineRun{}
	}
	s.jsonResponse(w, http.StatusOK, types.PipelineRunList{
		ClientID: clientID,
		Runs:     runs,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}
