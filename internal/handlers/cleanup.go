package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"abundance-backend/internal/services"
)

// CleanupHandler deletes expired sessions. It is meant to be hit by a cron
// job or the cleanup CLI, authenticated by a static bearer token instead of
// a user JWT.
type CleanupHandler struct {
	sessions     *services.SessionService
	cleanupToken string
}

func NewCleanupHandler(sessions *services.SessionService, cleanupToken string) *CleanupHandler {
	return &CleanupHandler{sessions: sessions, cleanupToken: cleanupToken}
}

func (h *CleanupHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] != h.cleanupToken {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Invalid cleanup token", r))
		return
	}

	deleted, err := h.sessions.CleanupExpired(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	log.Printf("Cleanup removed %d expired sessions", deleted)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"deleted_sessions": deleted,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

// Probe lets cron monitoring verify the endpoint is reachable without
// triggering a sweep.
func (h *CleanupHandler) Probe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
