package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// HumanBalance converts a raw base-unit balance into token units.
// Unparseable balances count as zero.
func HumanBalance(raw string, decimals int) decimal.Decimal {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount.Shift(int32(-decimals))
}

// Enrich returns copies of holdings with USDValue set wherever the market
// map has a positive price, plus the summed USD value of the priced ones.
// Holdings without a usable price keep a nil USDValue.
func Enrich(holdings []model.TokenHolding, market map[string]*model.MarketData) ([]model.TokenHolding, float64) {
	out := make([]model.TokenHolding, len(holdings))
	total := decimal.Zero

	for i, h := range holdings {
		out[i] = h
		md := market[strings.ToLower(h.ContractAddress)]
		if md == nil || md.PriceUSD <= 0 {
			out[i].USDValue = nil
			continue
		}

		value := HumanBalance(h.RawBalance, h.Decimals).Mul(decimal.NewFromFloat(md.PriceUSD))
		total = total.Add(value)
		out[i] = h.WithUSDValue(value.InexactFloat64())
	}

	return out, total.InexactFloat64()
}
