package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// Recommend produces advisory strings for a sorted list of token risks.
// Each rule adds at most one entry and rules are evaluated in a fixed order;
// several rules may fire for the same token.
func Recommend(sorted []model.TokenRisk, overallScore int) []string {
	recs := []string{}

	var highRisk, unverified, thinLiquidity []string
	for _, tr := range sorted {
		if tr.RiskScore >= CriticalThreshold {
			highRisk = append(highRisk, tr.Symbol)
		}
		if !tr.Verified {
			unverified = append(unverified, tr.Symbol)
		}
		if isLowLiquidity(tr) {
			thinLiquidity = append(thinLiquidity, tr.Symbol)
		}
	}

	if len(highRisk) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Consider reducing or exiting high-risk positions: %s.",
			strings.Join(highRisk, ", ")))
	}

	if len(unverified) > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d token(s) have unverified contract source: %s. Unverified contracts can hide malicious logic.",
			len(unverified), strings.Join(unverified, ", ")))
	}

	if len(thinLiquidity) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Low DEX liquidity for %s. Large sells may suffer heavy slippage or be impossible to fill.",
			strings.Join(thinLiquidity, ", ")))
	}

	for _, tr := range sorted {
		if tr.PortfolioPct > HighConcentrationPct {
			recs = append(recs, fmt.Sprintf(
				"Portfolio is concentrated in %s (%d%% of value). Consider diversifying.",
				tr.Symbol, int(math.Round(tr.PortfolioPct))))
			break
		}
	}

	if overallScore < MediumThreshold {
		recs = append(recs, "Portfolio looks relatively safe. Keep monitoring liquidity and contract changes.")
	}

	return recs
}
