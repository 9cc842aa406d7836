package pipeline

import (
	"github.com/yourorg/wallet-risk-ea/internal/circuitbreaker"
	"github.com/yourorg/wallet-risk-ea/internal/config"
	"github.com/yourorg/wallet-risk-ea/internal/fetch"
)

// Components is a fully wired analysis stack
type Components struct {
	Analyzer  *Analyzer
	Collector *fetch.Collector
	Breakers  []*circuitbreaker.CircuitBreaker
}

// Build wires the upstream clients, their breakers, the collector and the
// analyzer from configuration. metrics may be nil.
func Build(cfg config.Config, metrics *Metrics) *Components {
	explorerBreaker := newBreaker(cfg, fetch.SourceExplorer, metrics)
	dexBreaker := newBreaker(cfg, fetch.SourceDexScreener, metrics)

	explorer := fetch.NewExplorerClient(cfg, explorerBreaker).WithFailureHook(metrics.CollectorFailure)
	dex := fetch.NewDexScreenerClient(cfg, dexBreaker).WithFailureHook(metrics.CollectorFailure)
	collector := fetch.NewCollector(dex, explorer, cfg.MaxConcurrentLookups, cfg.MarketCacheTTL)

	return &Components{
		Analyzer:  NewAnalyzer(explorer, collector).WithMetrics(metrics),
		Collector: collector,
		Breakers:  []*circuitbreaker.CircuitBreaker{explorerBreaker, dexBreaker},
	}
}

func newBreaker(cfg config.Config, name string, metrics *Metrics) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.New(name, cfg.BreakerFailureThreshold).
		WithCooldown(cfg.BreakerCooldown).
		WithTripCallback(metrics.BreakerTripped)
}
