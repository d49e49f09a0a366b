package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/capoverlay/capsync/internal/config"
	"github.com/capoverlay/capsync/internal/session"
	"github.com/capoverlay/capsync/pkg/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Surfaces []session.Status `json:"surfaces"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.status.Statuses()
	if statuses == nil {
		statuses = []session.Status{}
	}
	writeJSON(w, http.StatusOK, statusResponse{Surfaces: statuses})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotFound, "runtime settings not configured")
		return
	}
	settings, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotFound, "runtime settings not configured")
		return
	}

	var next config.RuntimeSettings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	updated, err := s.settings.UpdateRuntimeSettings(next)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.apply != nil {
		if err := s.apply(updated); err != nil {
			log.Error("Failed to apply runtime settings: %v", err)
			writeError(w, http.StatusInternalServerError, "settings saved but not applied")
			return
		}
	}
	writeJSON(w, http.StatusOK, updated)
}
