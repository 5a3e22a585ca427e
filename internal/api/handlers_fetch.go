package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aadjones/kent-repertory-etl/internal/parser"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// fetchBuildRequest names a source file on the archive mirror. The identifier
// is the four-digit Kent file number, used to compute the printed-page span.
type fetchBuildRequest struct {
	Name         string `json:"name"`
	Identifier   string `json:"identifier,omitempty"`
	Title        string `json:"title,omitempty"`
	Subject      string `json:"subject,omitempty"`
	PagesCovered string `json:"pages_covered,omitempty"`
}

// handleFetchBuild downloads a source document from the archive mirror and
// queues a chapter build for it.
func (s *Server) handleFetchBuild(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		jsonError(w, "no archive mirror configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req fetchBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}
	filename := sanitizeFilename(req.Name)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, "unsupported file type: "+filename, http.StatusBadRequest)
		return
	}

	pagesCovered := req.PagesCovered
	if pagesCovered == "" && req.Identifier != "" {
		span, err := textutil.PageRange(req.Identifier)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		pagesCovered = span
	}

	data, err := s.fetcher.Document(r.Context(), req.Name)
	if err != nil {
		jsonError(w, "fetch failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	job := s.orchestrator.NewJob(filename, data)
	job.Title = req.Title
	job.Subject = req.Subject
	job.PagesCovered = pagesCovered

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/chapters/%s/status", job.ID),
	})
}
