package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/himanishpuri/ABRWave/pkg/abrwave"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/threshold"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
	"github.com/himanishpuri/ABRWave/pkg/logger"
	"github.com/himanishpuri/ABRWave/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service abrwave.Service
	config  *ServerConfig
	log     abrwave.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
	LogRequests    bool
}

// NewServer creates a new server instance
func NewServer(service abrwave.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().With("server"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "ABRWave API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":       "GET /health",
			"metrics":      "GET /api/health/metrics",
			"analyze":      "POST /api/analyze",
			"analyzeSweep": "POST /api/analyze/sweep",
			"runs":         "GET /api/runs",
			"getRun":       "GET /api/runs/{id}",
			"deleteRun":    "DELETE /api/runs/{id}",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns()
	if err != nil {
		s.log.Errorf("Failed to count runs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	rows := 0
	for _, run := range runs {
		rows += run.Rows
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		RunCount:     len(runs),
		RowCount:     rows,
		Defaults:     s.service.Settings(),
	})
}

// handleAnalyzeFile handles POST /api/analyze (multipart upload of an ARF
// or CSV file)
func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	st, err := settingsFromForm(s.service.Settings(), r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, err := s.service.LoadReader(header.Filename, file, st)
	if errors.Is(err, abrwave.ErrUnknownFormat) {
		s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	if err != nil {
		s.log.Warnf("Failed to read upload %s: %v", header.Filename, err)
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	freqs := set.Frequencies()
	if v := r.FormValue("frequency"); v != "" {
		freq, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid frequency")
			return
		}
		freqs = []float64{freq}
	}

	save := r.FormValue("save") == "true"
	withSamples := r.FormValue("include_samples") == "true"

	reports := make([]*abrwave.FrequencyReport, 0, len(freqs))
	for _, freq := range freqs {
		report, err := s.service.AnalyzeFrequency(set, freq, st)
		if errors.Is(err, abrwave.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			s.log.Errorf("Failed to analyze %g Hz: %v", freq, err)
			s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to analyze: %v", err))
			return
		}

		if save {
			if _, err := s.service.SaveReport(report); err != nil {
				s.log.Errorf("Failed to save report: %v", err)
				s.respondError(w, http.StatusInternalServerError, "Failed to save report")
				return
			}
		}
		if !withSamples {
			for i := range report.Analyses {
				report.Analyses[i].Samples = nil
			}
		}
		reports = append(reports, report)
	}

	s.log.Infof("Analyzed %s: %d frequencies", header.Filename, len(reports))
	s.respondJSON(w, http.StatusOK, AnalyzeResponse{
		Source:  set.Source,
		Reports: reports,
		Count:   len(reports),
	})
}

// handleAnalyzeSweep handles POST /api/analyze/sweep (a single sweep as JSON)
func (s *Server) handleAnalyzeSweep(w http.ResponseWriter, r *http.Request) {
	st := s.service.Settings()
	req := AnalyzeSweepRequest{Settings: &st}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Settings == nil {
		req.Settings = &st
	}

	a := abrwave.AnalyzeRecord(waveform.Record{
		Frequency: req.Frequency,
		Intensity: req.Intensity,
		Samples:   req.Samples,
	}, *req.Settings)
	s.respondJSON(w, http.StatusOK, a)
}

// handleListRuns handles GET /api/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns()
	if err != nil {
		s.log.Errorf("Failed to list runs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}
	if runs == nil {
		runs = []abrwave.RunSummary{}
	}

	s.respondJSON(w, http.StatusOK, ListRunsResponse{
		Runs:  runs,
		Count: len(runs),
	})
}

// handleGetRun handles GET /api/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request, id string) {
	report, err := s.service.GetRun(id)
	if errors.Is(err, abrwave.ErrNotFound) {
		s.log.Warnf("Run not found: %s", id)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Run %s not found", id))
		return
	}
	if err != nil {
		s.log.Errorf("Failed to load run %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	s.respondJSON(w, http.StatusOK, report)
}

// handleDeleteRun handles DELETE /api/runs/{id}
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request, id string) {
	err := s.service.DeleteRun(id)
	if errors.Is(err, abrwave.ErrNotFound) {
		s.log.Warnf("Run not found for deletion: %s", id)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Run %s not found", id))
		return
	}
	if err != nil {
		s.log.Errorf("Failed to delete run %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}

	s.respondJSON(w, http.StatusOK, DeleteRunResponse{
		Message: "Run deleted successfully",
		ID:      id,
	})
}

// handleAnalyze routes requests to /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleAnalyzeFile(w, r)
}

// handleAnalyzeSweepRoute routes requests to /api/analyze/sweep
func (s *Server) handleAnalyzeSweepRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleAnalyzeSweep(w, r)
}

// handleRuns routes requests to /api/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleListRuns(w, r)
}

// handleRun routes requests to /api/runs/{id}
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/api/runs/"):]
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Run ID required")
		return
	}
	if !utils.IsRunID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetRun(w, r, id)
	case http.MethodDelete:
		s.handleDeleteRun(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// settingsFromForm overrides base with every analysis field present in the
// form.
func settingsFromForm(base abrwave.Settings, r *http.Request) (abrwave.Settings, error) {
	st := base

	ints := map[string]*int{
		"separation":        &st.Separation,
		"trough_separation": &st.TroughSeparation,
		"artifact_offset":   &st.ArtifactOffset,
	}
	for name, dst := range ints {
		if v := r.FormValue(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return st, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"sigma":      &st.Sigma,
		"baseline":   &st.Baseline,
		"gain":       &st.Gain,
		"window_ms":  &st.WindowMs,
		"grid_start": &st.Grid.Start,
		"grid_stop":  &st.Grid.Stop,
		"grid_step":  &st.Grid.Step,
	}
	for name, dst := range floats {
		if v := r.FormValue(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return st, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = f
		}
	}
	if err := st.Validate(); err != nil {
		return st, err
	}

	if v := r.FormValue("variant"); v != "" {
		variant, err := arf.ParseVariant(v)
		if err != nil {
			return st, err
		}
		st.Variant = variant
	}
	if v := r.FormValue("intensity_kind"); v != "" {
		kind, err := waveform.ParseIntensityKind(v)
		if err != nil {
			return st, err
		}
		st.IntensityKind = kind
	}
	if st.Grid == (threshold.Grid{}) {
		st.Grid = threshold.DefaultGrid
	}
	return st, nil
}
