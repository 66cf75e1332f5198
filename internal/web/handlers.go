package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mgaray/debtbase/internal/bulk"
	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
	"github.com/mgaray/debtbase/internal/repository"
)

// uploadField is the multipart form field carrying the spreadsheet.
const uploadField = "archivo"

// actor identifies the acting principal from the request headers.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "anonimo"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBulkValidate receives the uploaded file and runs the validate
// phase: nothing in the live table changes, the rows are staged under a
// new job for review.
func (s *Server) handleBulkValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, core.ErrFileTooLarge)
			return
		}
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, core.ErrFileTooLarge)
			return
		}
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.Validate(r.Context(), header.Filename, payload, actor(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type commitRequest struct {
	JobID uuid.UUID `json:"job_id"`
}

// handleBulkCommit applies the applicable staged rows of a ready job.
func (s *Server) handleBulkCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == uuid.Nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "job_id requerido",
			Message: "job_id requerido",
			Code:    "REQ400",
		})
		return
	}

	result, err := s.service.Commit(r.Context(), req.JobID, actor(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type jobResponse struct {
	Job    domain.BulkJob        `json:"job"`
	Staged []domain.StagedChange `json:"staged"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, r, core.ErrJobNotFound)
		return
	}

	job, err := s.service.GetJob(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	staged, err := s.service.StagedRows(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, jobResponse{Job: job, Staged: staged})
}

// handleTemplate serves the empty upload template as XLSX.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	payload, err := bulk.Template()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="plantilla_bulk.xlsx"`)
	_, _ = w.Write(payload)
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("clave")
	if key == "" {
		key = q.Get("business_key")
	}
	filter := repository.AuditFilter{
		BusinessKey: key,
		Actor:       q.Get("actor"),
		Limit:       parseIntParam(r, "limit", 200),
		Offset:      parseIntParam(r, "offset", 0),
	}
	if raw := q.Get("job_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(w, r, core.ErrJobNotFound)
			return
		}
		filter.JobID = &id
	}

	entries, err := s.service.AuditLog(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetRecord(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRecord(r.Context(), chi.URLParam(r, "key"), actor(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEntidades(w http.ResponseWriter, r *http.Request) {
	entities, err := s.service.Entities(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entities == nil {
		entities = []domain.Entidad{}
	}
	respondJSON(w, http.StatusOK, entities)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}
