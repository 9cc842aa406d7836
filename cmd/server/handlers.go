package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-risk-ea/internal/circuitbreaker"
	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/types"
	"github.com/yourorg/wallet-risk-ea/internal/validation"
)

// ChainlinkRequest matches the standard Chainlink External Adapter request format
type ChainlinkRequest struct {
	ID       string         `json:"id"`
	JobRunID string         `json:"jobRunId"`
	Data     map[string]any `json:"data"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// ChainlinkResponse matches the standard Chainlink External Adapter response format
type ChainlinkResponse struct {
	JobRunID   string         `json:"jobRunId,omitempty"`
	StatusCode int            `json:"statusCode"`
	Status     string         `json:"status"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// errRateLimited is reported when the inbound limiter rejects a request
var errRateLimited = errors.New("rate limit exceeded")

// handleRequest processes the Chainlink External Adapter request
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	// Only accept POST requests
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.rateLimit.Allow() {
		s.errorResponse(w, "", http.StatusTooManyRequests, errRateLimited.Error())
		return
	}

	// Parse the Chainlink request
	var request ChainlinkRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.errorResponse(w, "", http.StatusBadRequest, "Invalid request body")
		return
	}

	jobRunID := request.JobRunID
	if jobRunID == "" {
		jobRunID = request.ID
	}
	if jobRunID == "" {
		jobRunID = uuid.NewString()
	}

	wallet, chainID, err := parseJobData(request.Data)
	if err != nil {
		s.errorResponse(w, jobRunID, http.StatusBadRequest, err.Error())
		return
	}

	report, status, err := s.analyze(r.Context(), wallet, chainID)
	if err != nil {
		s.errorResponse(w, jobRunID, status, err.Error())
		return
	}

	response := ChainlinkResponse{
		JobRunID:   jobRunID,
		StatusCode: http.StatusOK,
		Status:     "success",
		Data: map[string]any{
			"result": report.OverallRiskScore,
			"report": report,
		},
	}

	if s.signer != nil {
		signed, err := s.signer.Sign(report)
		if err != nil {
			logrus.Warnf("Failed to sign report: %v", err)
		} else {
			response.Data["signed"] = signed
		}
	}

	// Add performance metadata
	meta := request.Meta
	if meta == nil {
		meta = make(map[string]any)
	}
	meta["latencyMs"] = time.Since(start).Milliseconds()
	meta["tokenCount"] = report.TotalTokensFound
	response.Data["meta"] = meta

	s.observe("success", "job", start)
	writeJSON(w, http.StatusOK, response)
}

// handleAnalyze returns the bare report for GET /analyze?wallet=..&chainId=..
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rateLimit.Allow() {
		s.plainError(w, http.StatusTooManyRequests, errRateLimited.Error())
		return
	}

	query := r.URL.Query()
	wallet := firstNonEmpty(query.Get("wallet"), query.Get("address"))
	chainID, err := parseChainID(firstNonEmpty(query.Get("chainId"), query.Get("chain")))
	if err != nil {
		s.plainError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, status, err := s.analyze(r.Context(), wallet, chainID)
	if err != nil {
		s.plainError(w, status, err.Error())
		return
	}

	s.observe("success", "analyze", start)
	writeJSON(w, http.StatusOK, report)
}

// analyze runs the pipeline under the request timeout and maps failures to
// HTTP status codes.
func (s *Server) analyze(ctx context.Context, wallet string, chainID int) (model.RiskReport, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	report, err := s.analyzer.Analyze(ctx, wallet, chainID)
	switch {
	case err == nil:
		s.exporter.Add(report)
		return report, http.StatusOK, nil
	case validation.IsValidationError(err):
		return model.RiskReport{}, http.StatusBadRequest, err
	default:
		return model.RiskReport{}, http.StatusInternalServerError, fmt.Errorf("analysis failed: %w", err)
	}
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMetrics exposes Prometheus metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	breakers := make(map[string]circuitbreaker.State, len(s.breakers))
	for _, b := range s.breakers {
		breakers[b.Name()] = b.GetState()
	}

	status := map[string]any{
		"status":           "operational",
		"uptime":           time.Since(startTime).String(),
		"version":          version,
		"supported_chains": types.SupportedChainIDs(),
		"circuit_breakers": breakers,
		"export":           s.exporter.Status(),
		"configuration": map[string]any{
			"request_timeout":        s.config.RequestTimeout.String(),
			"max_concurrent_lookups": s.config.MaxConcurrentLookups,
			"market_cache_ttl":       s.config.MarketCacheTTL.String(),
			"max_tokens":             s.config.MaxTokens,
			"lock_heuristic_usd":     s.config.LockHeuristicUSD,
		},
	}
	if s.signer != nil {
		status["signer"] = s.signer.Address()
	}

	writeJSON(w, http.StatusOK, status)
}

// handleCircuitStatus allows viewing and resetting the upstream breakers
func (s *Server) handleCircuitStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{}

	if r.Method == http.MethodPost {
		if r.URL.Query().Get("action") != "reset" {
			s.plainError(w, http.StatusBadRequest, "unsupported action")
			return
		}

		name := r.URL.Query().Get("name")
		reset := 0
		for _, b := range s.breakers {
			if name == "" || b.Name() == name {
				b.Reset()
				reset++
			}
		}
		if reset == 0 {
			s.plainError(w, http.StatusNotFound, fmt.Sprintf("unknown circuit breaker %q", name))
			return
		}
		response["message"] = fmt.Sprintf("Reset %d circuit breaker(s)", reset)
	}

	snapshots := make([]circuitbreaker.Snapshot, 0, len(s.breakers))
	for _, b := range s.breakers {
		snapshots = append(snapshots, b.Snapshot())
	}
	response["breakers"] = snapshots

	writeJSON(w, http.StatusOK, response)
}

// errorResponse returns a formatted error response for Chainlink nodes
func (s *Server) errorResponse(w http.ResponseWriter, jobRunID string, statusCode int, errorMsg string) {
	logrus.WithField("job_run_id", jobRunID).Warn(errorMsg)
	s.metrics.requestCounter.WithLabelValues("error", "job").Inc()

	writeJSON(w, statusCode, ChainlinkResponse{
		JobRunID:   jobRunID,
		StatusCode: statusCode,
		Status:     "errored",
		Error:      errorMsg,
	})
}

// plainError reports failures on the non-EA endpoints
func (s *Server) plainError(w http.ResponseWriter, statusCode int, errorMsg string) {
	logrus.Warn(errorMsg)
	s.metrics.requestCounter.WithLabelValues("error", "analyze").Inc()
	writeJSON(w, statusCode, map[string]any{"error": errorMsg, "statusCode": statusCode})
}

func (s *Server) observe(status, endpoint string, start time.Time) {
	s.metrics.requestCounter.WithLabelValues(status, endpoint).Inc()
	s.metrics.requestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}
