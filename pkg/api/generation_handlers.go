package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/topgen/pkg/generator"
	"github.com/platinummonkey/topgen/pkg/httputil"
	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/validation"
)

// GenerationHandlers handles RTL generation and job HTTP requests
type GenerationHandlers struct {
	validator *validation.ConfigValidator
	service   *generator.Service
}

// NewGenerationHandlers creates a new generation handlers instance
func NewGenerationHandlers(validator *validation.ConfigValidator, service *generator.Service) *GenerationHandlers {
	return &GenerationHandlers{
		validator: validator,
		service:   service,
	}
}

// RegisterRoutes registers generation routes
func (h *GenerationHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/generate", h.generate).Methods("POST")
	router.HandleFunc("/jobs/{job_id}", h.getJob).Methods("GET")
	router.HandleFunc("/jobs/{job_id}/download", h.downloadJob).Methods("GET")
}

// generate handles POST /api/generate
func (h *GenerationHandlers) generate(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := httputil.ParseJSON(r, &body); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httputil.WriteJSON(w, status, generateResponse{Error: err.Error()})
		return
	}

	req, err := parseConfigRequest(body)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, generateResponse{Error: err.Error()})
		return
	}

	result := runValidation(r.Context(), h.validator, req.Config)
	if !result.Valid {
		httputil.WriteJSON(w, http.StatusBadRequest, generateResponse{
			Error:            msgValidationFailed,
			ValidationErrors: result.Errors,
		})
		return
	}

	if h.service == nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, generateResponse{Error: msgNotConfigured})
		return
	}

	job, err := h.service.Run(r.Context(), req.Config, req.JobID)
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, generateResponse{
		Success:     true,
		JobID:       job.JobID,
		OutputPath:  job.OutputPath,
		ZipPath:     job.ZipPath,
		ArtifactURI: job.ArtifactURI,
		Message:     msgGenerated,
	})
}

func (h *GenerationHandlers) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, generator.ErrInvalidJobID) {
		httputil.WriteJSON(w, http.StatusBadRequest, generateResponse{Error: err.Error()})
		return
	}

	observability.FromContext(r.Context()).WithError(err).Warn("RTL generation failed")

	var runErr *generator.RunError
	if errors.As(err, &runErr) {
		httputil.WriteJSON(w, http.StatusInternalServerError, generateResponse{
			Error:  runErr.Message,
			Stdout: &runErr.Stdout,
			Stderr: &runErr.Stderr,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusInternalServerError, generateResponse{
		Error: fmt.Sprintf("Generation error: %v", err),
	})
}

// getJob handles GET /api/jobs/{job_id}
func (h *GenerationHandlers) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, job)
}

// downloadJob handles GET /api/jobs/{job_id}/download
func (h *GenerationHandlers) downloadJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	if job.ZipPath == "" {
		httputil.WriteNotFoundError(w, msgFilesNotFound)
		return
	}

	f, err := os.Open(job.ZipPath)
	if err != nil {
		httputil.WriteNotFoundError(w, msgFilesNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		httputil.WriteNotFoundError(w, msgFilesNotFound)
		return
	}

	name := job.JobID + "_rtl.zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, filepath.Base(name), info.ModTime(), f)
}

func (h *GenerationHandlers) lookupJob(w http.ResponseWriter, r *http.Request) (*generator.Job, bool) {
	jobID, ok := httputil.ParsePathStringOrError(w, r, "job_id")
	if !ok {
		return nil, false
	}

	if h.service == nil {
		httputil.WriteNotFoundError(w, fmt.Sprintf("Job %s not found", jobID))
		return nil, false
	}

	job, err := h.service.Job(jobID)
	if err != nil {
		httputil.WriteNotFoundError(w, fmt.Sprintf("Job %s not found", jobID))
		return nil, false
	}
	return job, true
}
