// Package pipeline runs one wallet analysis end to end: validation,
// holdings discovery, market and verification collection, valuation and
// scoring.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/otel"
	"github.com/yourorg/wallet-risk-ea/internal/risk"
	"github.com/yourorg/wallet-risk-ea/internal/validation"
)

// HoldingsSource discovers the wallet's token holdings. Failures yield an
// empty list.
type HoldingsSource interface {
	Holdings(ctx context.Context, wallet string, chainID int) []model.TokenHolding
}

// DataCollector gathers market data and verification status per contract.
// Missing data is absent from the maps.
type DataCollector interface {
	Collect(ctx context.Context, chainID int, addresses []string) (map[string]*model.MarketData, map[string]bool)
}

// Analyzer produces risk reports for wallets
type Analyzer struct {
	holdings  HoldingsSource
	collector DataCollector
	metrics   *Metrics
	now       func() time.Time
}

// NewAnalyzer creates an analyzer over the given sources
func NewAnalyzer(holdings HoldingsSource, collector DataCollector) *Analyzer {
	return &Analyzer{
		holdings:  holdings,
		collector: collector,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics records analysis metrics into m
func (a *Analyzer) WithMetrics(m *Metrics) *Analyzer {
	a.metrics = m
	return a
}

// WithClock overrides the report timestamp source
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Analyze builds the risk report for wallet on chainID. It fails only for
// invalid input or when ctx ends before scoring; upstream failures reduce
// the data available to the engine instead.
func (a *Analyzer) Analyze(ctx context.Context, wallet string, chainID int) (model.RiskReport, error) {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, "pipeline.Analyze",
		attribute.String("wallet", wallet),
		attribute.Int("chain_id", chainID),
	)
	defer span.End()

	fail := func(outcome string, err error) (model.RiskReport, error) {
		otel.RecordError(ctx, err)
		a.metrics.observeOutcome(outcome, time.Since(start).Seconds())
		return model.RiskReport{}, err
	}

	addr, err := validation.ValidateWallet(wallet)
	if err != nil {
		return fail("invalid", err)
	}
	chain, err := validation.ValidateChain(chainID)
	if err != nil {
		return fail("invalid", err)
	}

	log := logrus.WithFields(logrus.Fields{"wallet": addr, "chain": chain.Name})
	log.Info("Analyzing wallet")

	hctx, hspan := otel.StartSpan(ctx, "collect.holdings")
	holdings := validation.SanitizeHoldings(a.holdings.Holdings(hctx, addr, chain.ID))
	hspan.SetAttributes(attribute.Int("holdings", len(holdings)))
	hspan.End()

	if err := ctx.Err(); err != nil {
		return fail("cancelled", fmt.Errorf("analysis cancelled: %w", err))
	}

	if len(holdings) == 0 {
		report := risk.EmptyReport(addr, chain, a.now())
		log.Info("No token holdings found")
		a.finish(report, start)
		return report, nil
	}

	addresses := make([]string, len(holdings))
	for i, h := range holdings {
		addresses[i] = h.ContractAddress
	}

	cctx, cspan := otel.StartSpan(ctx, "collect.market", attribute.Int("tokens", len(addresses)))
	market, verification := a.collector.Collect(cctx, chain.ID, addresses)
	cspan.SetAttributes(attribute.Int("priced", len(market)))
	cspan.End()

	if err := ctx.Err(); err != nil {
		return fail("cancelled", fmt.Errorf("analysis cancelled: %w", err))
	}

	priced, total := Enrich(holdings, market)

	report := risk.ComputeRiskReport(risk.Input{
		Wallet:            addr,
		ChainID:           chain.ID,
		ChainName:         chain.Name,
		Holdings:          priced,
		Market:            market,
		Verification:      verification,
		TotalPortfolioUSD: total,
		AnalyzedAt:        a.now(),
	})

	span.SetAttributes(
		attribute.Int("risk_score", report.OverallRiskScore),
		attribute.String("risk_level", string(report.RiskLevel)),
	)
	log.WithFields(logrus.Fields{
		"tokens":     report.TotalTokensFound,
		"score":      report.OverallRiskScore,
		"level":      report.RiskLevel,
		"value_usd":  report.EstimatedPortfolioUSD,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Analysis complete")

	a.finish(report, start)
	return report, nil
}

func (a *Analyzer) finish(report model.RiskReport, start time.Time) {
	a.metrics.observeOutcome("success", time.Since(start).Seconds())
	a.metrics.observeReport(report)
}
