package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

func TestHumanBalance(t *testing.T) {
	tests := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"1500000", 6, "1.5"},
		{"1000000000000000000", 18, "1"},
		{"123", 0, "123"},
		{"1", 18, "0.000000000000000001"},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935", 18,
			"115792089237316195423570985008687907853269984665640564039457.584007913129639935"},
		{"garbage", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := HumanBalance(tt.raw, tt.decimals)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestEnrich(t *testing.T) {
	holdings := []model.TokenHolding{
		{ContractAddress: "0xaaa", Symbol: "AAA", RawBalance: "2500000", Decimals: 6},
		{ContractAddress: "0xBBB", Symbol: "BBB", RawBalance: "3000000000000000000", Decimals: 18},
		{ContractAddress: "0xccc", Symbol: "CCC", RawBalance: "1", Decimals: 0},
		{ContractAddress: "0xddd", Symbol: "DDD", RawBalance: "1", Decimals: 0},
	}
	market := map[string]*model.MarketData{
		"0xaaa": {PriceUSD: 2},
		"0xbbb": {PriceUSD: 0.5},
		"0xccc": {PriceUSD: 0},
	}

	priced, total := Enrich(holdings, market)

	require.Len(t, priced, 4)
	require.True(t, priced[0].HasUSDValue())
	assert.InDelta(t, 5.0, *priced[0].USDValue, 1e-9)
	require.True(t, priced[1].HasUSDValue(), "lookups are case-insensitive")
	assert.InDelta(t, 1.5, *priced[1].USDValue, 1e-9)
	assert.False(t, priced[2].HasUSDValue(), "zero price leaves the holding unpriced")
	assert.False(t, priced[3].HasUSDValue(), "missing market data leaves the holding unpriced")
	assert.InDelta(t, 6.5, total, 1e-9)

	for _, h := range holdings {
		assert.False(t, h.HasUSDValue(), "inputs are not modified")
	}
}

func TestEnrich_Empty(t *testing.T) {
	priced, total := Enrich(nil, nil)
	assert.Empty(t, priced)
	assert.Zero(t, total)
}
