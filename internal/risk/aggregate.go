package risk

import (
	"math"
	"sort"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// Weights of the mean and the maximum token score in the overall score
const (
	averageWeight = 0.6
	maxWeight     = 0.4
)

// Risk level lower bounds, inclusive
const (
	CriticalThreshold = 70
	HighThreshold     = 50
	MediumThreshold   = 30
)

// A token this large and this risky marks the whole portfolio as volatile
const (
	volatileHoldingPct = 30
	volatileTokenScore = 50
)

// Portfolio holds the portfolio-level fields derived from token risks.
type Portfolio struct {
	// TokenRisks sorted by descending score, ties kept in input order
	TokenRisks []model.TokenRisk

	AverageScore     float64
	MaxScore         int
	OverallRiskScore int
	RiskLevel        model.RiskLevel

	ConcentrationRisk  bool
	RugPullRisk        bool
	LowLiquidityRisk   bool
	HighVolatilityRisk bool
}

// Aggregate combines per-token risks into portfolio-level fields.
// The input slice is not modified. An empty input yields score 0, level LOW
// and all flags false.
func Aggregate(risks []model.TokenRisk) Portfolio {
	sorted := make([]model.TokenRisk, len(risks))
	copy(sorted, risks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RiskScore > sorted[j].RiskScore
	})

	p := Portfolio{
		TokenRisks: sorted,
		RiskLevel:  model.RiskLow,
	}
	if len(sorted) == 0 {
		return p
	}

	total := 0
	for _, tr := range sorted {
		total += tr.RiskScore
	}
	p.AverageScore = float64(total) / float64(len(sorted))
	p.MaxScore = sorted[0].RiskScore
	p.OverallRiskScore = int(math.Round(p.AverageScore*averageWeight + float64(p.MaxScore)*maxWeight))
	p.RiskLevel = LevelForScore(p.OverallRiskScore)

	for _, tr := range sorted {
		if tr.PortfolioPct > HighConcentrationPct {
			p.ConcentrationRisk = true
		}
		if !tr.Verified && !tr.LiquidityLocked {
			p.RugPullRisk = true
		}
		if isLowLiquidity(tr) {
			p.LowLiquidityRisk = true
		}
		if tr.PortfolioPct > volatileHoldingPct && tr.RiskScore > volatileTokenScore {
			p.HighVolatilityRisk = true
		}
	}

	return p
}

// LevelForScore maps an overall score onto a risk level. Bounds are
// closed below: 70 is CRITICAL, 69 is HIGH.
func LevelForScore(score int) model.RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return model.RiskCritical
	case score >= HighThreshold:
		return model.RiskHigh
	case score >= MediumThreshold:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// isLowLiquidity is true for tokens with some, but thin, liquidity.
// Zero liquidity usually means no market record and is reported separately.
func isLowLiquidity(tr model.TokenRisk) bool {
	return tr.LiquidityUSD > 0 && tr.LiquidityUSD < LowLiquidityUSD
}
