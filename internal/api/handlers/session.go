package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/terrabuild/terrafusion/backend/internal/session"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// SessionHandler handles valuation session endpoints
type SessionHandler struct {
	sessions *session.Store
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Store, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Create stores a new working session
// POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "Session storage is disabled")
		return
	}

	var s session.Session
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.ID = "" // ids are always generated server-side

	if err := h.sessions.Create(r.Context(), &s); err != nil {
		h.logger.WithError(err).Error("Failed to create session")
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, s)
}

// Get retrieves a session by id
// GET /api/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "Session storage is disabled")
		return
	}

	sessionID := mux.Vars(r)["sessionID"]

	s, err := h.sessions.Get(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to get session")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve session")
		return
	}

	respondJSON(w, http.StatusOK, s)
}

// Update replaces an existing session's working state
// PUT /api/sessions/{sessionID}
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "Session storage is disabled")
		return
	}

	sessionID := mux.Vars(r)["sessionID"]

	var s session.Session
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.ID = sessionID

	err := h.sessions.Update(r.Context(), &s)
	if errors.Is(err, session.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to update session")
		respondError(w, http.StatusInternalServerError, "Failed to update session")
		return
	}

	respondJSON(w, http.StatusOK, s)
}

// Delete removes a session
// DELETE /api/sessions/{sessionID}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "Session storage is disabled")
		return
	}

	sessionID := mux.Vars(r)["sessionID"]

	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to delete session")
		respondError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
