// Package httpapi exposes the scheduler's six HTTP endpoints over a plain
// net/http.ServeMux, matching the host project's own plain-mux server
// lifecycle (no web framework).
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mcp-scheduler/internal/registration"
	"mcp-scheduler/internal/schedulererr"
	"mcp-scheduler/internal/selection"
	"mcp-scheduler/internal/state"
	"mcp-scheduler/pkg/logging"
)

// registrar is the slice of *registration.Manager the HTTP layer needs,
// narrowed to an interface so it can be exercised with a fake in tests.
type registrar interface {
	Register(ctx context.Context, urls []string) (registration.Result, error)
	Unregister(batchID string) (registration.UnregisterResult, error)
}

// searcher is the slice of *selection.Engine the HTTP layer needs.
type searcher interface {
	Search(ctx context.Context, batchID string) ([]selection.ToolResult, error)
}

// callLogAppender is the slice of *calllog.Store the HTTP layer needs.
type callLogAppender interface {
	Append(ctx context.Context, toolName, mcpURL string, totalTimeMS int64, isError bool) error
}

// Server serves the scheduler's HTTP surface.
type Server struct {
	addr string
	http *http.Server

	store        *state.Store
	registration registrar
	selection    searcher
	callLog      callLogAppender
}

// New builds a Server bound to addr.
func New(addr string, store *state.Store, reg registrar, sel searcher, callLog callLogAppender) *Server {
	s := &Server{
		addr:         addr,
		store:        store,
		registration: reg,
		selection:    sel,
		callLog:      callLog,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/unregister", s.handleUnregister)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/log", s.handleLog)

	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving in a background goroutine. Errors other than a
// clean shutdown are logged.
func (s *Server) Start() {
	go func() {
		logging.Info("HTTPAPI", "listening on %s", s.addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTPAPI", err, "server exited unexpectedly")
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "mcp-scheduler: tool-routing scheduler for MCP servers")
}

type registerRequest struct {
	MCPURLs []string `json:"mcp_urls"`
}

type registerResponse struct {
	Message      string   `json:"message"`
	RegisteredID *string  `json:"registered_id"`
	URLs         []string `json:"urls"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.registration.Register(r.Context(), req.MCPURLs)
	if err != nil {
		if errors.Is(err, schedulererr.ErrBadInput) {
			writeJSON(w, http.StatusBadRequest, registerResponse{
				Message:      "mcp_urls must not be empty",
				RegisteredID: nil,
				URLs:         nil,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Open question preserved per spec §9: zero accepted URLs still
	// returns 201, with a null registered_id rather than an error status.
	var registeredID *string
	message := fmt.Sprintf("Registered %d of %d URL(s).", len(result.AcceptedURLs), len(req.MCPURLs))
	if len(result.AcceptedURLs) > 0 {
		id := result.BatchID
		registeredID = &id
	} else {
		message = "No URLs could be registered."
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:      message,
		RegisteredID: registeredID,
		URLs:         result.AcceptedURLs,
	})
}

type unregisterRequest struct {
	RegistrationID string `json:"registration_id"`
}

type unregisterResponse struct {
	Message      string `json:"message"`
	URLsAffected int    `json:"urls_affected"`
	Status       string `json:"status"`
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req unregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RegistrationID == "" {
		writeError(w, http.StatusBadRequest, "registration_id is required")
		return
	}

	result, err := s.registration.Unregister(req.RegistrationID)
	if err != nil {
		if errors.Is(err, schedulererr.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown registration id %q", req.RegistrationID))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, unregisterResponse{
		Message:      fmt.Sprintf("Batch %s removed.", req.RegistrationID),
		URLsAffected: result.URLsAffected,
		Status:       fmt.Sprintf("Monitoring stopped for %d URL(s).", result.URLsStopped),
	})
}

type metricsRequest struct {
	MCPURLs []string `json:"mcp_urls"`
}

type metricResult struct {
	URL              string  `json:"url"`
	AverageLatencyMS float64 `json:"average_latency_ms"`
	SampleCount      int     `json:"sample_count"`
	Error            *string `json:"error"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	snapshots := s.store.Metrics(req.MCPURLs)
	results := make([]metricResult, 0, len(snapshots))
	for _, snap := range snapshots {
		if !snap.Monitored {
			msg := "URL not currently monitored."
			results = append(results, metricResult{URL: snap.URL, Error: &msg})
			continue
		}
		results = append(results, metricResult{
			URL:              snap.URL,
			AverageLatencyMS: snap.AverageLatencyMS,
			SampleCount:      snap.SampleCount,
		})
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch_id")
	if batchID == "" {
		writeError(w, http.StatusBadRequest, "batch_id is required")
		return
	}

	results, err := s.selection.Search(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, schedulererr.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		logging.Error("HTTPAPI", err, "search failed for batch %s", batchID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

type logRequest struct {
	ToolName    string `json:"tool_name"`
	MCPURL      string `json:"mcp_url"`
	TotalTimeMS int64  `json:"total_time_ms"`
	IsError     bool   `json:"is_error"`
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.callLog.Append(ctx, req.ToolName, req.MCPURL, req.TotalTimeMS, req.IsError); err != nil {
		logging.Error("HTTPAPI", err, "failed to append call log row")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("HTTPAPI", err, "failed to encode response body")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}
