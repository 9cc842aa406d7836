package risk

import (
	"strings"
	"time"

	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/types"
)

// Input is everything the engine needs for one analysis. Market and
// Verification are keyed by lowercase contract address; a missing market
// entry (or nil value) means no DEX data, a missing verification entry
// means unverified.
type Input struct {
	Wallet    string
	ChainID   int
	ChainName string

	Holdings     []model.TokenHolding
	Market       map[string]*model.MarketData
	Verification map[string]bool

	TotalPortfolioUSD float64

	// AnalyzedAt stamps the report; zero means now
	AnalyzedAt time.Time
}

// ComputeRiskReport scores every holding, aggregates the scores and renders
// the summary and recommendations. Apart from AnalyzedAt the result depends
// only on the input.
func ComputeRiskReport(in Input) model.RiskReport {
	risks := make([]model.TokenRisk, 0, len(in.Holdings))
	for _, h := range in.Holdings {
		key := strings.ToLower(h.ContractAddress)
		pct := PortfolioPercentage(h, in.TotalPortfolioUSD, len(in.Holdings))
		risks = append(risks, ScoreToken(h, pct, in.Market[key], in.Verification[key]))
	}

	p := Aggregate(risks)

	return model.RiskReport{
		Wallet:                in.Wallet,
		AnalyzedAt:            analyzedAt(in.AnalyzedAt),
		ChainID:               in.ChainID,
		ChainName:             in.ChainName,
		TotalTokensFound:      len(p.TokenRisks),
		EstimatedPortfolioUSD: in.TotalPortfolioUSD,
		OverallRiskScore:      p.OverallRiskScore,
		RiskLevel:             p.RiskLevel,
		TokenRisks:            p.TokenRisks,
		ConcentrationRisk:     p.ConcentrationRisk,
		RugPullRisk:           p.RugPullRisk,
		LowLiquidityRisk:      p.LowLiquidityRisk,
		HighVolatilityRisk:    p.HighVolatilityRisk,
		Summary:               Summarize(in.Wallet, p.RiskLevel, p.OverallRiskScore, p.TokenRisks),
		Recommendations:       Recommend(p.TokenRisks, p.OverallRiskScore),
	}
}

// EmptyReport is the canonical report for a wallet without token holdings.
// Callers return it instead of running the engine over an empty portfolio.
func EmptyReport(wallet string, chain types.SupportedChain, at time.Time) model.RiskReport {
	return model.RiskReport{
		Wallet:          wallet,
		AnalyzedAt:      analyzedAt(at),
		ChainID:         chain.ID,
		ChainName:       chain.Name,
		RiskLevel:       model.RiskLow,
		TokenRisks:      []model.TokenRisk{},
		Summary:         emptySummary(wallet),
		Recommendations: []string{emptyRecommendation(chain.NativeSymbol)},
	}
}

func analyzedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
