package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// renderReport writes a human-readable rendering of report
func renderReport(w io.Writer, report model.RiskReport) {
	fmt.Fprintf(w, "Wallet:     %s (%s)\n", report.Wallet, report.ChainName)
	fmt.Fprintf(w, "Risk:       %s (%d/100)\n", report.RiskLevel, report.OverallRiskScore)
	fmt.Fprintf(w, "Tokens:     %d\n", report.TotalTokensFound)
	fmt.Fprintf(w, "Portfolio:  $%s\n", decimal.NewFromFloat(report.EstimatedPortfolioUSD).StringFixed(2))
	fmt.Fprintf(w, "Analyzed:   %s\n", report.AnalyzedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "\n%s\n", report.Summary)

	if len(report.TokenRisks) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TOKEN\tSCORE\tPORTFOLIO\tLIQUIDITY\tVERIFIED\tLOCKED\tFLAGS")
		for _, t := range report.TokenRisks {
			fmt.Fprintf(tw, "%s\t%d\t%s%%\t$%s\t%s\t%s\t%s\n",
				t.Symbol,
				t.RiskScore,
				decimal.NewFromFloat(t.PortfolioPct).StringFixed(1),
				decimal.NewFromFloat(t.LiquidityUSD).StringFixed(0),
				yesNo(t.Verified),
				yesNo(t.LiquidityLocked),
				strings.Join(t.Flags, "; "),
			)
		}
		tw.Flush()
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range report.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
