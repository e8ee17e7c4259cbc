package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"abundance-backend/internal/middleware"
	"abundance-backend/internal/models"
	"abundance-backend/internal/repository"
)

type ProjectHandler struct {
	projectRepo *repository.ProjectRepo
	jobRepo     *repository.JobRepo
}

func NewProjectHandler(projectRepo *repository.ProjectRepo, jobRepo *repository.JobRepo) *ProjectHandler {
	return &ProjectHandler{projectRepo: projectRepo, jobRepo: jobRepo}
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	projects, err := h.projectRepo.ListByOwner(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	participants, err := h.projectRepo.ListParticipants(r.Context(), project.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project":      project,
		"participants": participants,
	})
}

// Status is the polling endpoint the frontend hits while generation runs.
func (h *ProjectHandler) Status(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":            project.ID,
		"status":        project.Status,
		"error_message": project.ErrorMessage,
	})
}

func (h *ProjectHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}
	if job.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You do not own this job", r))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *ProjectHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	userID := middleware.GetUserID(r.Context())

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid project ID", r))
		return nil, false
	}

	project, err := h.projectRepo.GetByID(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Project not found", r))
			return nil, false
		}
		handleServiceError(w, r, err)
		return nil, false
	}
	if project.OwnerID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You do not own this project", r))
		return nil, false
	}

	return project, true
}
