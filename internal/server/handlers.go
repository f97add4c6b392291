package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/pagegrade/internal/fetch"
	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/internal/pipeline"
	"github.com/hyperjump/pagegrade/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 32 << 20
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	*pipeline.Status
	Disk storage.Usage `json:"disk"`
}

// DocumentsResponse is the body of GET /api/v1/documents.
type DocumentsResponse struct {
	Documents []*models.AnalysisResult `json:"documents"`
	Offset    int                      `json:"offset"`
	Limit     int                      `json:"limit"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.analyzer.Status(r.Context())
	if err != nil {
		s.logger.Error("Status failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := StatusResponse{Status: st}
	if s.config != nil {
		usage, err := storage.DiskUsage(s.config.Storage.DatabasePath, s.config.Storage.VectorIndexPath)
		if err != nil {
			s.logger.Warn("Disk usage unavailable", zap.Error(err))
		}
		resp.Disk = usage
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		s.respondPipelineError(w, "Analyze failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmp, err := s.analyzer.Compare(r.Context(), req)
	if err != nil {
		s.respondPipelineError(w, "Compare failed", err)
		return
	}
	respondJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.analyzer.Batch(r.Context(), req)
	if err != nil {
		s.respondPipelineError(w, "Batch failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	docs, err := s.analyzer.Documents(r.Context(), offset, limit)
	if err != nil {
		s.respondPipelineError(w, "List documents failed", err)
		return
	}
	respondJSON(w, http.StatusOK, DocumentsResponse{Documents: docs, Offset: offset, Limit: limit})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.analyzer.Document(r.Context(), id)
	if err != nil {
		s.respondPipelineError(w, "Get document failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.analyzer.Delete(r.Context(), id); err != nil {
		s.respondPipelineError(w, "Delete document failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.analyzer.Duplicates(r.Context())
	if err != nil {
		s.respondPipelineError(w, "Duplicates failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"duplicates": pairs, "count": len(pairs)})
}

// respondPipelineError maps analyzer errors to HTTP statuses: fetch failures are 502,
// unknown documents 404, a missing store 503.
func (s *Server) respondPipelineError(w http.ResponseWriter, msg string, err error) {
	if fe, ok := fetch.AsError(err); ok {
		respondJSON(w, http.StatusBadGateway, map[string]any{
			"error":       fe.Error(),
			"url":         fe.URL,
			"status_code": fe.StatusCode,
		})
		return
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, pipeline.ErrNoStorage):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(msg, zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
