// Package model defines the core data structures for the wallet-risk-ea.
package model

import (
	"time"
)

// TokenHolding represents one ERC-20 balance held by the analyzed wallet.
// Holdings flow from the explorer collector, through valuation, into the
// risk engine. They are treated as immutable once handed to the engine.
type TokenHolding struct {
	// ContractAddress is the lowercase token contract address
	ContractAddress string `json:"contractAddress"`

	// Name and Symbol are display values reported by the explorer
	Name   string `json:"name"`
	Symbol string `json:"symbol"`

	// RawBalance is the integer balance in base units, kept as a decimal
	// string so large values survive without float truncation
	RawBalance string `json:"rawBalance"`

	// Decimals converts RawBalance into a human-scale quantity
	Decimals int `json:"decimals"`

	// USDValue is set only when a price was resolved for the token
	USDValue *float64 `json:"usdValue,omitempty"`
}

// HasUSDValue reports whether the holding has been priced.
func (h TokenHolding) HasUSDValue() bool {
	return h.USDValue != nil
}

// WithUSDValue returns a copy of the holding carrying the given USD value.
func (h TokenHolding) WithUSDValue(v float64) TokenHolding {
	h.USDValue = &v
	return h
}

// MarketData holds DEX-observed facts for one token contract.
// A missing record means no DEX listing was found, which is not the same
// as a record with zero liquidity.
type MarketData struct {
	Symbol string `json:"symbol"`

	// PriceUSD is the last traded price of the token in USD
	PriceUSD float64 `json:"priceUsd"`

	// LiquidityUSD is the pool liquidity of the best-liquidity pair on the chain
	LiquidityUSD float64 `json:"liquidityUsd"`

	MarketCap      float64 `json:"marketCap"`
	Volume24h      float64 `json:"volume24h"`
	PriceChange24h float64 `json:"priceChange24h"`

	// LiquidityLocked is a heuristic derived from liquidity size, not an
	// on-chain lock check
	LiquidityLocked bool `json:"liquidityLocked"`

	// URL points at the pair page on the DEX aggregator
	URL string `json:"url,omitempty"`
}

// TokenRisk is the scoring output for a single holding.
type TokenRisk struct {
	Symbol          string   `json:"symbol"`
	ContractAddress string   `json:"contractAddress"`
	PortfolioPct    float64  `json:"portfolioPercentage"`
	LiquidityUSD    float64  `json:"liquidityUsd"`
	Verified        bool     `json:"verified"`
	LiquidityLocked bool     `json:"liquidityLocked"`
	RiskScore       int      `json:"riskScore"`
	Flags           []string `json:"flags"`
}

// RiskLevel is the step function of the overall risk score.
type RiskLevel string

// Risk levels, ordered from safest to riskiest
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskReport is the portfolio-level result of one analysis.
type RiskReport struct {
	Wallet     string    `json:"wallet"`
	AnalyzedAt time.Time `json:"analyzedAt"`
	ChainID    int       `json:"chainId"`
	ChainName  string    `json:"chainName"`

	// TotalTokensFound always equals len(TokenRisks)
	TotalTokensFound      int     `json:"totalTokensFound"`
	EstimatedPortfolioUSD float64 `json:"estimatedPortfolioUsd"`

	OverallRiskScore int       `json:"overallRiskScore"`
	RiskLevel        RiskLevel `json:"riskLevel"`

	// TokenRisks is ordered by descending risk score, ties in discovery order
	TokenRisks []TokenRisk `json:"tokenRisks"`

	ConcentrationRisk  bool `json:"concentrationRisk"`
	RugPullRisk        bool `json:"rugPullRisk"`
	LowLiquidityRisk   bool `json:"lowLiquidityRisk"`
	HighVolatilityRisk bool `json:"highVolatilityRisk"`

	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}
