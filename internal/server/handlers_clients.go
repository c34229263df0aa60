package server

import (
	"math"
	"net/http"

	"github.com/jonathan/content-pipeline/internal/db"
	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/types"
)

// defaultClientPageSize is the page size when the query omits one.
const defaultClientPageSize = 10

// handleCreateClient creates a client from an intake form
func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ClientIntakeRequest
	if err := s.decodeJSON(body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.store.CreateClient(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context(), s.log).Info("client created", "client_id", profile.ID.String())
	s.jsonResponse(w, http.StatusCreated, profile)
}

// handleListClients returns one page of client summaries
func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1, 1, math.MaxInt32)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", defaultClientPageSize, 1, db.MaxPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.store.ListClients(r.Context(), db.ClientListParams{
		Page:     page,
		PageSize: pageSize,
		Search:   r.URL.Query().Get("search"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summaries := make([]types.ClientProfileResponse, 0, len(result.Clients))
	for i := range result.Clients {
		summaries = append(summaries, types.NewClientProfileResponse(&result.Clients[i]))
	}
	s.jsonResponse(w, http.StatusOK, types.ClientListResponse{
		Clients:  summaries,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// handleGetClient returns a full client profile
func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "client_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	profile, err := s.store.GetClient(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handleUpdateClient applies a partial update
func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "client_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var update types.ClientProfileUpdate
	if err := s.decodeJSON(body, &update); err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.store.UpdateClient(r.Context(), id, &update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handleDeleteClient deletes a client and its runs
func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "client_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteClient(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context(), s.log).Info("client deleted", "client_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}
