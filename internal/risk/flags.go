package risk

import (
	"fmt"
	"math"
	"strconv"
)

// FlagKind enumerates the reasons a token can accumulate risk points.
type FlagKind int

// Flag kinds in the order the scorer evaluates them
const (
	FlagUnverifiedContract FlagKind = iota
	FlagNoLiquidityData
	FlagCriticallyLowLiquidity
	FlagLowLiquidity
	FlagNoLiquidityLock
	FlagHighVolatility
	FlagExtremeConcentration
	FlagHighConcentration
)

var flagNames = map[FlagKind]string{
	FlagUnverifiedContract:     "unverified_contract",
	FlagNoLiquidityData:        "no_liquidity_data",
	FlagCriticallyLowLiquidity: "critically_low_liquidity",
	FlagLowLiquidity:           "low_liquidity",
	FlagNoLiquidityLock:        "no_liquidity_lock",
	FlagHighVolatility:         "high_volatility",
	FlagExtremeConcentration:   "extreme_concentration",
	FlagHighConcentration:      "high_concentration",
}

// String returns a stable identifier for the kind, suitable for metric labels.
func (k FlagKind) String() string {
	if name, ok := flagNames[k]; ok {
		return name
	}
	return "unknown"
}

// Flag is one scoring reason together with the number it reports on.
type Flag struct {
	Kind  FlagKind
	Value float64
}

// Render formats the flag as the human-readable string carried in reports.
func (f Flag) Render() string {
	switch f.Kind {
	case FlagUnverifiedContract:
		return "contract source not verified"
	case FlagNoLiquidityData:
		return "no DEX liquidity data found"
	case FlagCriticallyLowLiquidity:
		return "critically low liquidity: " + formatUSD(f.Value)
	case FlagLowLiquidity:
		return "low liquidity: " + formatUSD(f.Value)
	case FlagNoLiquidityLock:
		return "liquidity lock not detected"
	case FlagHighVolatility:
		return fmt.Sprintf("high 24h price change: %.1f%%", f.Value)
	case FlagExtremeConcentration:
		return fmt.Sprintf("extreme concentration: %.1f%%", f.Value)
	case FlagHighConcentration:
		return fmt.Sprintf("high concentration: %.1f%%", f.Value)
	default:
		return f.Kind.String()
	}
}

// formatUSD renders a dollar amount rounded to whole dollars with
// thousands separators, e.g. 12345.6 -> "$12,346".
func formatUSD(v float64) string {
	n := int64(math.Round(v))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + "$" + string(out)
}

func renderFlags(flags []Flag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.Render())
	}
	return out
}
