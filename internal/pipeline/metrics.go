package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// Metrics holds Prometheus metrics for the analysis pipeline
type Metrics struct {
	analyses          *prometheus.CounterVec
	analysisDuration  prometheus.Histogram
	collectorFailures *prometheus.CounterVec
	reportsByLevel    *prometheus.CounterVec
	breakerTrips      *prometheus.CounterVec
	lastTokenCount    prometheus.Gauge
	lastRiskScore     prometheus.Gauge
}

// NewMetrics creates pipeline metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_risk_analyses_total",
				Help: "Total number of wallet analyses by outcome",
			},
			[]string{"outcome"},
		),
		analysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wallet_risk_analysis_duration_seconds",
				Help:    "Wallet analysis duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		collectorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_risk_collector_failures_total",
				Help: "Total number of failed upstream lookups",
			},
			[]string{"source"},
		),
		reportsByLevel: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_risk_reports_total",
				Help: "Total number of reports by risk level",
			},
			[]string{"level"},
		),
		breakerTrips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_risk_breaker_trips_total",
				Help: "Total number of upstream circuit breaker trips",
			},
			[]string{"source"},
		),
		lastTokenCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wallet_risk_last_report_tokens",
				Help: "Number of tokens in the last report",
			},
		),
		lastRiskScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wallet_risk_last_report_score",
				Help: "Overall risk score of the last report",
			},
		),
	}

	reg.MustRegister(
		m.analyses,
		m.analysisDuration,
		m.collectorFailures,
		m.reportsByLevel,
		m.breakerTrips,
		m.lastTokenCount,
		m.lastRiskScore,
	)
	return m
}

// CollectorFailure counts a failed upstream lookup. It matches fetch.FailureHook.
func (m *Metrics) CollectorFailure(source string, _ error) {
	if m == nil {
		return
	}
	m.collectorFailures.WithLabelValues(source).Inc()
}

// BreakerTripped counts a circuit breaker trip. It matches the breaker trip callback.
func (m *Metrics) BreakerTripped(source, _ string) {
	if m == nil {
		return
	}
	m.breakerTrips.WithLabelValues(source).Inc()
}

func (m *Metrics) observeOutcome(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(seconds)
}

func (m *Metrics) observeReport(report model.RiskReport) {
	if m == nil {
		return
	}
	m.reportsByLevel.WithLabelValues(string(report.RiskLevel)).Inc()
	m.lastTokenCount.Set(float64(report.TotalTokensFound))
	m.lastRiskScore.Set(float64(report.OverallRiskScore))
}
