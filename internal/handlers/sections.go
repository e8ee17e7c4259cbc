package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"abundance-backend/internal/models"
	"abundance-backend/internal/services"
)

type SectionHandler struct {
	sections *services.SectionService
}

func NewSectionHandler(sections *services.SectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// viewerFromQuery reads role and seat from query params. Role defaults to
// student because that is the common case during a session.
func viewerFromQuery(r *http.Request) services.Viewer {
	role := r.URL.Query().Get("role")
	if role != models.RoleTeacher {
		role = models.RoleStudent
	}
	seat, _ := strconv.Atoi(r.URL.Query().Get("seat"))
	return services.Viewer{Role: role, Seat: seat}
}

func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid project ID", r))
		return
	}

	sections, err := h.sections.GetVisible(r.Context(), projectID, viewerFromQuery(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sections": sections})
}

// Resolve returns the single body a viewer should see for a section type.
// A miss is a 200 with empty content, not an error.
func (h *SectionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid project ID", r))
		return
	}
	sectionType := chi.URLParam(r, "type")

	content, err := h.sections.Resolve(r.Context(), projectID, viewerFromQuery(r), sectionType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"section_type": sectionType,
		"content_text": content,
	})
}

func (h *SectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid project ID", r))
		return
	}
	sectionType := chi.URLParam(r, "type")

	var req models.UpdateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	viewer := services.Viewer{Role: req.Role, Seat: req.Seat}
	if viewer.Role != models.RoleTeacher {
		viewer.Role = models.RoleStudent
	}

	if err := h.sections.UpdateContent(r.Context(), projectID, viewer, sectionType, req.ContentText); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Section updated"})
}
