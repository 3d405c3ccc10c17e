package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

// Helper functions shared by all endpoint groups

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondValuationError maps calculator errors onto HTTP statuses: bad
// inputs are the caller's fault, bad parameters are ours.
func respondValuationError(w http.ResponseWriter, err error) {
	if valuation.IsInvalidInput(err) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if valuation.IsConfiguration(err) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "Valuation failed")
}
