// Package risk turns per-token facts into token risk scores and aggregates
// them into a portfolio risk report.
//
// Everything in this package is pure and deterministic: no I/O, no shared
// state, no logging. Missing market data or verification is scored as risk,
// never treated as an error.
package risk

import (
	"math"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// Liquidity tier boundaries in USD
const (
	CriticalLiquidityUSD = 10_000
	LowLiquidityUSD      = 50_000
	ModerateLiquidityUSD = 500_000
)

// Concentration and volatility thresholds in percent
const (
	ExtremeConcentrationPct = 70
	HighConcentrationPct    = 50
	HighVolatilityPct       = 30
)

// Point contributions of each scoring condition
const (
	pointsUnverified        = 30
	pointsNoMarketData      = 25
	pointsCriticalLiquidity = 35
	pointsLowLiquidity      = 20
	pointsModerateLiquidity = 5
	pointsNoLock            = 15
	pointsHighVolatility    = 10
	pointsExtremeConc       = 20
	pointsHighConc          = 10

	maxScore = 100
)

// ScoreToken scores one holding given its share of the portfolio, its
// market data (nil when no DEX listing was found) and its verification
// status. It never fails.
func ScoreToken(h model.TokenHolding, portfolioPct float64, md *model.MarketData, verified bool) model.TokenRisk {
	score, flags := evaluate(portfolioPct, md, verified)

	tr := model.TokenRisk{
		Symbol:          h.Symbol,
		ContractAddress: h.ContractAddress,
		PortfolioPct:    portfolioPct,
		Verified:        verified,
		RiskScore:       score,
		Flags:           renderFlags(flags),
	}
	if md != nil {
		tr.LiquidityUSD = md.LiquidityUSD
		tr.LiquidityLocked = md.LiquidityLocked
		if tr.Symbol == "" {
			tr.Symbol = md.Symbol
		}
	}
	return tr
}

// evaluate applies the additive penalty table and returns the clamped score
// along with the flags that explain it, in evaluation order.
func evaluate(portfolioPct float64, md *model.MarketData, verified bool) (int, []Flag) {
	var (
		score int
		flags []Flag
	)

	if !verified {
		score += pointsUnverified
		flags = append(flags, Flag{Kind: FlagUnverifiedContract})
	}

	if md == nil {
		// Liquidity, lock and volatility checks all need a market record
		score += pointsNoMarketData
		flags = append(flags, Flag{Kind: FlagNoLiquidityData})
	} else {
		liq := md.LiquidityUSD
		switch {
		case liq < CriticalLiquidityUSD:
			score += pointsCriticalLiquidity
			flags = append(flags, Flag{Kind: FlagCriticallyLowLiquidity, Value: liq})
		case liq < LowLiquidityUSD:
			score += pointsLowLiquidity
			flags = append(flags, Flag{Kind: FlagLowLiquidity, Value: liq})
		case liq < ModerateLiquidityUSD:
			score += pointsModerateLiquidity
		}

		if !md.LiquidityLocked {
			score += pointsNoLock
			flags = append(flags, Flag{Kind: FlagNoLiquidityLock})
		}

		if math.Abs(md.PriceChange24h) > HighVolatilityPct {
			score += pointsHighVolatility
			flags = append(flags, Flag{Kind: FlagHighVolatility, Value: md.PriceChange24h})
		}
	}

	switch {
	case portfolioPct > ExtremeConcentrationPct:
		score += pointsExtremeConc
		flags = append(flags, Flag{Kind: FlagExtremeConcentration, Value: portfolioPct})
	case portfolioPct > HighConcentrationPct:
		score += pointsHighConc
		flags = append(flags, Flag{Kind: FlagHighConcentration, Value: portfolioPct})
	}

	return clampScore(score), flags
}

func clampScore(score int) int {
	if score > maxScore {
		return maxScore
	}
	if score < 0 {
		return 0
	}
	return score
}

// PortfolioPercentage returns the holding's share of total portfolio value
// in percent. When the total is zero or the holding is unpriced every
// holding gets an equal share of 100/count.
func PortfolioPercentage(h model.TokenHolding, totalUSD float64, count int) float64 {
	if totalUSD <= 0 || !h.HasUSDValue() {
		if count <= 0 {
			return 0
		}
		return 100 / float64(count)
	}
	return *h.USDValue / totalUSD * 100
}
