package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Prem-080/cgpa-fetcher/internal/fetcher"
)

type handler struct {
	fetcher   GradeFetcher
	startedAt time.Time
}

// fetchGradeRequest is the inbound body of POST /fetch-grade. Field names
// match the consuming front end.
type fetchGradeRequest struct {
	Roll     string `json:"roll"`
	Semester string `json:"semester"`
}

// errorResponse is the single failure shape every error maps to.
type errorResponse struct {
	Error            string `json:"error"`
	Kind             string `json:"kind"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response failed", "error", err)
	}
}

// index serves a small self-describing API document.
func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "API is running",
		"endpoints": map[string]any{
			"/": map[string]string{
				"method":      http.MethodGet,
				"description": "API documentation and health check",
			},
			"/health": map[string]string{
				"method":      http.MethodGet,
				"description": "Liveness probe with uptime",
			},
			"/fetch-grade": map[string]any{
				"method":      http.MethodPost,
				"description": "Fetch CGPA and SGPA for a student",
				"body": map[string]string{
					"roll":     "Student roll number (required)",
					"semester": "Term code, e.g. II_I (required)",
				},
			},
		},
	})
}

// health reports process liveness, independent of the automation core.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"uptime":    time.Since(h.startedAt).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// fetchGrade runs one fetch through the coordinator and maps the outcome to
// the wire shape.
func (h *handler) fetchGrade(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID, _ := r.Context().Value(requestIDKey).(string)

	var req fetchGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:            "invalid JSON body",
			Kind:             string(fetcher.KindValidation),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		})
		return
	}

	slog.InfoContext(r.Context(), "fetch-grade request",
		"request_id", requestID, "roll", req.Roll, "semester", req.Semester)

	result, err := h.fetcher.Fetch(r.Context(), req.Roll, req.Semester)
	if err != nil {
		kind := fetcher.KindOf(err)
		slog.WarnContext(r.Context(), "fetch-grade failed",
			"request_id", requestID, "kind", string(kind), "error", err)
		writeJSON(w, kind.HTTPStatus(), errorResponse{
			Error:            err.Error(),
			Kind:             string(kind),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		})
		return
	}

	slog.InfoContext(r.Context(), "fetch-grade succeeded",
		"request_id", requestID, "roll", req.Roll,
		"cached", result.Cached, "elapsed_ms", result.ProcessingTimeMs)
	writeJSON(w, http.StatusOK, result)
}
