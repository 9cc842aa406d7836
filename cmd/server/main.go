// Package main is the entry point for the Wallet Risk External Adapter, which
// scores the token holdings of a wallet for Chainlink jobs and direct callers.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/wallet-risk-ea/internal/circuitbreaker"
	"github.com/yourorg/wallet-risk-ea/internal/config"
	"github.com/yourorg/wallet-risk-ea/internal/export"
	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/otel"
	"github.com/yourorg/wallet-risk-ea/internal/pipeline"
	"github.com/yourorg/wallet-risk-ea/internal/security"
)

const version = "1.0.0"

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Analyzer produces a risk report for one wallet
type Analyzer interface {
	Analyze(ctx context.Context, wallet string, chainID int) (model.RiskReport, error)
}

// Server represents the External Adapter server instance
type Server struct {
	// Configuration for the server
	config config.Config

	// Analysis pipeline
	analyzer Analyzer

	// HTTP server instance
	server *http.Server

	// Upstream circuit breakers, by name
	breakers []*circuitbreaker.CircuitBreaker

	// Metrics registry and server-level metrics
	registry *prometheus.Registry
	metrics  *serverMetrics

	// Optional features
	signer    *security.ReportSigner
	exporter  *export.ReportExporter
	rateLimit *rate.Limiter
}

// serverMetrics holds Prometheus metrics for the HTTP layer
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics(reg prometheus.Registerer, breakers []*circuitbreaker.CircuitBreaker) *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_risk_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"status", "endpoint"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_risk_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(m.requestCounter, m.requestDuration)

	for _, breaker := range breakers {
		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "wallet_risk_circuit_breaker_state",
				Help:        "Circuit breaker state (0=closed, 1=open, 2=half-open)",
				ConstLabels: prometheus.Labels{"upstream": breaker.Name()},
			},
			func() float64 { return float64(breaker.GetState()) },
		))
	}
	return m
}

// main is the entry point for the application
func main() {
	// Configure logging
	setupLogging()

	// Load configuration
	cfg := config.Load()

	shutdownTracer := otel.InitTracer(cfg)
	defer shutdownTracer()

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	components := pipeline.Build(cfg, pipeline.NewMetrics(registry))

	server := NewServer(cfg, components.Analyzer, components.Breakers, registry)
	go purgeCache(components, cfg.MarketCacheTTL)
	server.Start()
}

// purgeCache drops expired market and verification entries so the cache stays bounded
func purgeCache(c *pipeline.Components, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		if n := c.Collector.Purge(); n > 0 {
			logrus.Debugf("Purged %d expired cache entries", n)
		}
	}
}

// NewServer creates a new server instance around an analyzer
func NewServer(cfg config.Config, analyzer Analyzer, breakers []*circuitbreaker.CircuitBreaker, registry *prometheus.Registry) *Server {
	s := &Server{
		config:    cfg,
		analyzer:  analyzer,
		breakers:  breakers,
		registry:  registry,
		metrics:   registerMetrics(registry, breakers),
		rateLimit: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		exporter:  export.NewReportExporter(export.ConfigFrom(cfg)),
	}
	if cfg.RateLimitRPS <= 0 {
		s.rateLimit = rate.NewLimiter(rate.Inf, 0)
	}

	if cfg.SigningEnabled {
		signer, err := security.NewReportSigner()
		if err != nil {
			logrus.Warnf("Failed to initialize report signer: %v", err)
		} else {
			s.signer = signer
		}
	}

	logrus.WithFields(logrus.Fields{
		"port":            cfg.Port,
		"timeout":         cfg.RequestTimeout,
		"max_concurrency": cfg.MaxConcurrentLookups,
		"rate_limit_rps":  cfg.RateLimitRPS,
		"signing":         s.signer != nil,
		"export":          cfg.ReportWebhookURL != "",
		"explorer_key":    cfg.EtherscanAPIKey != "",
	}).Info("Server initialized")

	return s
}

// routes registers the API endpoints
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest) // Main Chainlink EA endpoint
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/circuit", s.handleCircuitStatus)
	return mux
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	// Configure server with timeouts; writes must outlive one analysis
	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
	}
	s.exporter.Stop()

	logrus.Info("Server stopped")
}
