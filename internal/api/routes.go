package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/api/middleware"
)

const healthCheckTimeout = 2 * time.Second

type (
	// Version is the API version response structure.
	Version struct {
		Version     string `json:"version"`
		ServiceName string `json:"serviceName"`
	}

	// HealthStatus is the health check response structure.
	HealthStatus struct {
		Status      string `json:"status"`
		ServiceName string `json:"serviceName"`
		Version     string `json:"version"`
		Uptime      string `json:"uptime,omitempty"`
	}

	// RunView is one journal entry in the runs listing.
	RunView struct {
		RunID        string  `json:"runId"`
		DatasetID    string  `json:"datasetId"`
		StartedAt    string  `json:"startedAt"`
		FinishedAt   *string `json:"finishedAt"`
		Status       string  `json:"status"`
		RowsFetched  int     `json:"rowsFetched"`
		RowsInserted int     `json:"rowsInserted"`
		RowsDeleted  int     `json:"rowsDeleted"`
		ErrorMessage string  `json:"errorMessage,omitempty"`
	}
)

// setupRoutes registers all HTTP routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)

	mux.HandleFunc("POST /v2/ingest/gas", s.handleIngestGasQuality)
	mux.HandleFunc("POST /v2/ingest/entsog", s.handleIngestEntsog)
	mux.HandleFunc("POST /v2/ingest/instantaneous", s.handleIngestInstantaneous)
	mux.HandleFunc("POST /v2/ingest/gas-publications", s.handleIngestGasPublications)
	mux.HandleFunc("POST /v2/ingest/gie/agsi", s.handleIngestAGSI)
	mux.HandleFunc("POST /v2/ingest/gie/alsi", s.handleIngestALSI)

	mux.HandleFunc("GET /v2/runs", s.handleRuns)

	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	mux.HandleFunc("/", s.handleNotFound)
}

// handlePing responds to liveness probes.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		s.logger.Error("Failed to write ping response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// handleReady responds to readiness probes with a storage health check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Error("Storage health check failed",
				slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
				slog.String("error", err.Error()),
			)

			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("storage unavailable"))

			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleHealth returns basic service health with uptime.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptime string

	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	s.writeJSON(w, r, http.StatusOK, HealthStatus{
		Status:      "healthy",
		ServiceName: "gas-data-pipeline",
		Version:     s.version,
		Uptime:      uptime,
	})
}

// handleVersion returns the service version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, Version{
		Version:     s.version,
		ServiceName: "gas-data-pipeline",
	})
}

// handleRuns lists recent ingestion runs, newest first. ?limit caps the page
// size, defaulting to 50.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			WriteErrorResponse(w, r, s.logger, BadRequest("limit must be a positive integer"))

			return
		}

		limit = parsed
	}

	records, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to read run journal",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to read run journal"))

		return
	}

	views := make([]RunView, 0, len(records))

	for _, rec := range records {
		view := RunView{
			RunID:        rec.RunID,
			DatasetID:    rec.DatasetID,
			StartedAt:    rec.StartedAt.UTC().Format(time.RFC3339),
			Status:       string(rec.Status),
			RowsFetched:  rec.RowsFetched,
			RowsInserted: rec.RowsInserted,
			RowsDeleted:  rec.RowsDeleted,
			ErrorMessage: rec.ErrorMessage,
		}

		if rec.FinishedAt != nil {
			finished := rec.FinishedAt.UTC().Format(time.RFC3339)
			view.FinishedAt = &finished
		}

		views = append(views, view)
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{"runs": views})
}

// handleNotFound returns RFC 7807 compliant 404 responses.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}

// writeJSON marshals a response body, only touching headers after marshaling
// succeeds.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}
