package risk

import (
	"fmt"
	"strings"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// ShortenWallet renders an address as its first 6 and last 4 characters
// joined by an ellipsis. Short inputs are returned unchanged.
func ShortenWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "..." + wallet[len(wallet)-4:]
}

// Summarize builds the one-paragraph report summary.
func Summarize(wallet string, level model.RiskLevel, score int, sorted []model.TokenRisk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Wallet %s has a %s risk level (score %d/100) across %d token(s).",
		ShortenWallet(wallet), level, score, len(sorted))

	if len(sorted) > 0 {
		top := sorted[0]
		fmt.Fprintf(&b, " Highest-risk token: %s (score %d/100).", top.Symbol, top.RiskScore)
	}
	return b.String()
}

func emptySummary(wallet string) string {
	return fmt.Sprintf("No ERC-20 token holdings found for wallet %s.", ShortenWallet(wallet))
}

func emptyRecommendation(nativeSymbol string) string {
	if nativeSymbol == "" {
		nativeSymbol = "native currency"
	}
	return fmt.Sprintf(
		"No token holdings detected. The wallet may hold only a native %s balance, which carries no token contract risk.",
		nativeSymbol)
}
