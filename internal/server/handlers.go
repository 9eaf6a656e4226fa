package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
	"github.com/MeKo-Tech/pixcanon/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// extensionsHandler lists the recognized extensions grouped by decoder class.
func (s *Server) extensionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	byClass := decoder.ExtensionsByClass()
	resp := ExtensionsResponse{Classes: make(map[string][]string, len(byClass))}
	for class, exts := range byClass {
		resp.Classes[class.String()] = exts
		resp.Count += len(exts)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, errorType, message string, statusCode int) {
	s.writeJSON(w, statusCode, DecodeResponse{
		Success:   false,
		Error:     message,
		ErrorType: errorType,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Log error, but can't send another response
		s.logger.Error("Failed to encode response", "error", err)
	}
}
