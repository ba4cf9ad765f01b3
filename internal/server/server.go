package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/croplab/paddyfield/internal/config"
	"github.com/croplab/paddyfield/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	store      store.Store
	addr       string
	server     *http.Server
}

// NewServer creates a new HTTP server. The snapshot store may be nil, in
// which case runs are held in memory only.
func NewServer(addr string, snapshotStore store.Store) *Server {
	return &Server{
		jobManager: NewJobManager(),
		store:      snapshotStore,
		addr:       addr,
	}
}

// routes assembles the API mux wrapped with middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Register API routes
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunsWithID)

	// Wrap with middleware
	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.routes(),
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRuns handles /api/v1/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRunsWithID handles /api/v1/runs/:id/*
func (s *Server) handleRunsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}

	runID := parts[0]

	// Route based on subpath
	if len(parts) == 1 || parts[1] == "status" {
		s.handleGetRunStatus(w, r, runID)
	} else if parts[1] == "seeds" {
		s.handleGetRunSeeds(w, r, runID)
	} else if parts[1] == "stream" {
		s.handleJobStream(w, r, runID)
	} else if parts[1] == "extend" {
		s.handleExtendRun(w, r, runID)
	} else {
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateRun handles POST /api/v1/runs. The body is a run file,
// accepted as YAML or JSON (YAML is a superset).
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	rf, err := config.ParseRunFileYAML(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid run file: %v", err), http.StatusBadRequest)
		return
	}

	// Create job
	job := s.jobManager.CreateJob(rf)

	// Start worker in background
	go runJob(s.jobManager, s.store, job.ID)

	// Return job
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

// handleListRuns handles GET /api/v1/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobManager.ListJobs()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

// handleGetRunStatus handles GET /api/v1/runs/:id/status
func (s *Server) handleGetRunStatus(w http.ResponseWriter, r *http.Request, runID string) {
	job, exists := s.jobManager.GetJob(runID)
	if !exists {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	// Seed evaluations per second, across all generations so far.
	eps := float64(0)
	if elapsed.Seconds() > 0 && job.Generations > 0 {
		totalEvals := job.Generations * job.Config.YT
		eps = float64(totalEvals) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":          job.ID,
		"state":       job.State,
		"objective":   job.Objective,
		"config":      job.Config,
		"generations": job.Generations,
		"bestFitness": job.BestFitness,
		"bestValues":  job.BestValues,
		"elapsed":     elapsed.Seconds(),
		"eps":         eps,
		"startTime":   job.StartTime,
		"endTime":     job.EndTime,
		"error":       job.Error,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// seedView is one ranked seed in a generation listing.
type seedView struct {
	Rank    int       `json:"rank"`
	Values  []float64 `json:"values"`
	Fitness float64   `json:"fitness"`
}

// handleGetRunSeeds handles GET /api/v1/runs/:id/seeds. The ?gen= query
// parameter selects a generation; the latest is returned by default.
func (s *Server) handleGetRunSeeds(w http.ResponseWriter, r *http.Request, runID string) {
	job, exists := s.jobManager.GetJob(runID)
	if !exists {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	runner := job.Runner
	if runner == nil || len(runner.History()) == 0 {
		http.Error(w, "No results yet", http.StatusNotFound)
		return
	}

	history := runner.History()
	genIndex := len(history) - 1
	if raw := r.URL.Query().Get("gen"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n >= len(history) {
			http.Error(w, "Invalid generation index", http.StatusBadRequest)
			return
		}
		genIndex = n
	}

	gen := history[genIndex]
	seeds := make([]seedView, len(gen.Seeds))
	for i, seed := range gen.Seeds {
		seeds[i] = seedView{Rank: i, Values: seed.Values, Fitness: seed.Fitness}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runId":      runID,
		"generation": genIndex,
		"seeds":      seeds,
	})
}

// extendRequest is the body of POST /api/v1/runs/:id/extend.
type extendRequest struct {
	Iterations int `json:"iterations"`
}

// handleExtendRun handles POST /api/v1/runs/:id/extend, appending more
// generations to a completed run.
func (s *Server) handleExtendRun(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	job, exists := s.jobManager.GetJob(runID)
	if !exists {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if job.State == StateRunning || job.State == StatePending {
		http.Error(w, "Run is still in progress", http.StatusConflict)
		return
	}
	if job.Runner == nil {
		http.Error(w, "Run has no state to extend", http.StatusConflict)
		return
	}

	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if req.Iterations <= 0 {
		http.Error(w, "iterations must be positive", http.StatusBadRequest)
		return
	}

	go extendJob(s.jobManager, runID, req.Iterations)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
