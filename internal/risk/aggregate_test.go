package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

func tokenRisk(symbol string, score int, pct, liq float64, verified, locked bool) model.TokenRisk {
	return model.TokenRisk{
		Symbol:          symbol,
		ContractAddress: "0x" + symbol,
		PortfolioPct:    pct,
		LiquidityUSD:    liq,
		Verified:        verified,
		LiquidityLocked: locked,
		RiskScore:       score,
		Flags:           []string{},
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name        string
		risks       []model.TokenRisk
		wantOverall int
		wantLevel   model.RiskLevel
		wantOrder   []string
	}{
		{
			name:        "single token overall equals its score",
			risks:       []model.TokenRisk{tokenRisk("A", 75, 100, 0, false, false)},
			wantOverall: 75,
			wantLevel:   model.RiskCritical,
			wantOrder:   []string{"A"},
		},
		{
			name: "mean and max blend",
			risks: []model.TokenRisk{
				tokenRisk("Y", 0, 20, 1_000_000, true, true),
				tokenRisk("X", 70, 80, 5_000, true, false),
			},
			wantOverall: 49,
			wantLevel:   model.RiskMedium,
			wantOrder:   []string{"X", "Y"},
		},
		{
			name: "ties keep discovery order",
			risks: []model.TokenRisk{
				tokenRisk("A", 40, 10, 0, true, true),
				tokenRisk("B", 60, 10, 0, true, true),
				tokenRisk("C", 40, 10, 0, true, true),
				tokenRisk("D", 60, 10, 0, true, true),
			},
			// mean 50, max 60 -> 30 + 24
			wantOverall: 54,
			wantLevel:   model.RiskHigh,
			wantOrder:   []string{"B", "D", "A", "C"},
		},
		{
			name: "rounds half up",
			risks: []model.TokenRisk{
				tokenRisk("A", 5, 50, 0, true, true),
				tokenRisk("B", 0, 50, 0, true, true),
			},
			// mean 2.5 * 0.6 = 1.5, max 5 * 0.4 = 2 -> 3.5
			wantOverall: 4,
			wantLevel:   model.RiskLow,
			wantOrder:   []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.risks)
			assert.Equal(t, tt.wantOverall, got.OverallRiskScore)
			assert.Equal(t, tt.wantLevel, got.RiskLevel)

			order := make([]string, 0, len(got.TokenRisks))
			for _, tr := range got.TokenRisks {
				order = append(order, tr.Symbol)
			}
			assert.Equal(t, tt.wantOrder, order)
		})
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	in := []model.TokenRisk{
		tokenRisk("LOW", 10, 50, 0, true, true),
		tokenRisk("HIGH", 90, 50, 0, true, true),
	}

	got := Aggregate(in)

	assert.Equal(t, "LOW", in[0].Symbol)
	assert.Equal(t, "HIGH", got.TokenRisks[0].Symbol)
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil)

	assert.Zero(t, got.OverallRiskScore)
	assert.Equal(t, model.RiskLow, got.RiskLevel)
	assert.Empty(t, got.TokenRisks)
	assert.False(t, got.ConcentrationRisk)
	assert.False(t, got.RugPullRisk)
	assert.False(t, got.LowLiquidityRisk)
	assert.False(t, got.HighVolatilityRisk)
}

func TestAggregate_Flags(t *testing.T) {
	tests := []struct {
		name  string
		risks []model.TokenRisk
		check func(t *testing.T, p Portfolio)
	}{
		{
			name:  "concentration needs strictly more than half",
			risks: []model.TokenRisk{tokenRisk("A", 0, 50, 1e6, true, true), tokenRisk("B", 0, 50, 1e6, true, true)},
			check: func(t *testing.T, p Portfolio) { assert.False(t, p.ConcentrationRisk) },
		},
		{
			name:  "concentration above half",
			risks: []model.TokenRisk{tokenRisk("A", 0, 50.5, 1e6, true, true), tokenRisk("B", 0, 49.5, 1e6, true, true)},
			check: func(t *testing.T, p Portfolio) { assert.True(t, p.ConcentrationRisk) },
		},
		{
			name: "rug pull needs both conditions on one token",
			risks: []model.TokenRisk{
				tokenRisk("A", 30, 50, 1e6, false, true),
				tokenRisk("B", 15, 50, 1e6, true, false),
			},
			check: func(t *testing.T, p Portfolio) { assert.False(t, p.RugPullRisk) },
		},
		{
			name:  "rug pull on unverified unlocked token",
			risks: []model.TokenRisk{tokenRisk("A", 45, 100, 1e6, false, false)},
			check: func(t *testing.T, p Portfolio) { assert.True(t, p.RugPullRisk) },
		},
		{
			name:  "zero liquidity is not low liquidity",
			risks: []model.TokenRisk{tokenRisk("A", 0, 100, 0, true, true)},
			check: func(t *testing.T, p Portfolio) { assert.False(t, p.LowLiquidityRisk) },
		},
		{
			name:  "fifty thousand is not low liquidity",
			risks: []model.TokenRisk{tokenRisk("A", 0, 100, 50_000, true, true)},
			check: func(t *testing.T, p Portfolio) { assert.False(t, p.LowLiquidityRisk) },
		},
		{
			name:  "thin liquidity",
			risks: []model.TokenRisk{tokenRisk("A", 0, 100, 49_999, true, true)},
			check: func(t *testing.T, p Portfolio) { assert.True(t, p.LowLiquidityRisk) },
		},
		{
			name: "volatility needs size and score on one token",
			risks: []model.TokenRisk{
				tokenRisk("A", 80, 20, 1e6, true, true),
				tokenRisk("B", 40, 80, 1e6, true, true),
			},
			check: func(t *testing.T, p Portfolio) { assert.False(t, p.HighVolatilityRisk) },
		},
		{
			name:  "volatility on large risky token",
			risks: []model.TokenRisk{tokenRisk("A", 51, 31, 1e6, true, true)},
			check: func(t *testing.T, p Portfolio) { assert.True(t, p.HighVolatilityRisk) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Aggregate(tt.risks))
		})
	}
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  model.RiskLevel
	}{
		{100, model.RiskCritical},
		{70, model.RiskCritical},
		{69, model.RiskHigh},
		{50, model.RiskHigh},
		{49, model.RiskMedium},
		{30, model.RiskMedium},
		{29, model.RiskLow},
		{0, model.RiskLow},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, LevelForScore(tt.score), "score %d", tt.score)
	}
}
