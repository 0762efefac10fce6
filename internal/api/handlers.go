// Package api provides the JSON API handlers for PartsLine.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/partsline/partsline/internal/models"
)

// parseAndSearchRequest is the body of POST /api/parse-and-search.
type parseAndSearchRequest struct {
	Transcript string `json:"transcript"`
}

// parseAndSearchResult is the successful response payload.
type parseAndSearchResult struct {
	Parsed  models.ParsedQuery `json:"parsed"`
	Results []models.Item      `json:"results"`
}

// parseAndSearchHandler runs extraction and catalog search for a text
// transcript (POST /api/parse-and-search), the non-telephony surface used by
// the local UI.
func (s *Server) parseAndSearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.parseAndSearchHandler: processing search request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.parseAndSearchHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req parseAndSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.parseAndSearchHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Transcript == "" {
		slog.Warn("Server.parseAndSearchHandler: missing transcript")
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrMissingTranscript.Error()))
		return
	}

	parsed, results := s.ctrl.ParseAndSearch(r.Context(), req.Transcript)
	slog.Info("Server.parseAndSearchHandler: search complete", "query", parsed.Describe(), "results", len(results))
	writeJSONResponse(w, http.StatusOK, models.Success(parseAndSearchResult{Parsed: parsed, Results: results}))
}

// quotesHandler returns all recorded quotes (GET /quotes).
func (s *Server) quotesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.quotesHandler: processing quotes request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.quotesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	quotes, err := s.st.GetQuotes()
	if err != nil {
		slog.Error("Server.quotesHandler: error fetching quotes", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch quotes"))
		return
	}
	slog.Debug("Server.quotesHandler: quotes fetched", "count", len(quotes))
	writeJSONResponse(w, http.StatusOK, models.Success(quotes))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"active_sessions": s.ctrl.Sessions().Len(),
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}
