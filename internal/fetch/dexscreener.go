package fetch

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/wallet-risk-ea/internal/circuitbreaker"
	"github.com/yourorg/wallet-risk-ea/internal/config"
	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/types"
)

// dexTokenResponse is the DexScreener answer for /tokens/{address}
type dexTokenResponse struct {
	SchemaVersion string    `json:"schemaVersion"`
	Pairs         []dexPair `json:"pairs"`
}

type dexPair struct {
	ChainID     string        `json:"chainId"`
	DexID       string        `json:"dexId"`
	URL         string        `json:"url"`
	PairAddress string        `json:"pairAddress"`
	BaseToken   dexToken      `json:"baseToken"`
	QuoteToken  dexToken      `json:"quoteToken"`
	PriceNative string        `json:"priceNative"`
	PriceUsd    string        `json:"priceUsd"`
	Volume      dexWindow     `json:"volume"`
	PriceChange dexWindow     `json:"priceChange"`
	Liquidity   *dexLiquidity `json:"liquidity"`
	Fdv         float64       `json:"fdv"`
	MarketCap   float64       `json:"marketCap"`
}

type dexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type dexWindow struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

type dexLiquidity struct {
	Usd   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

func (p dexPair) liquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.Usd
}

// DexScreenerClient resolves DEX market data for token contracts
type DexScreenerClient struct {
	upstream
	baseURL          string
	lockHeuristicUSD float64
}

// NewDexScreenerClient creates a DexScreener client from configuration
func NewDexScreenerClient(cfg config.Config, breaker *circuitbreaker.CircuitBreaker) *DexScreenerClient {
	// The public API allows 300 token lookups per minute
	limiter := rate.NewLimiter(rate.Limit(5), 5)

	return &DexScreenerClient{
		upstream: upstream{
			name:       SourceDexScreener,
			httpClient: StandardClient(newRetryClient()),
			limiter:    limiter,
			breaker:    breaker,
		},
		baseURL:          strings.TrimRight(cfg.DexScreenerURL, "/"),
		lockHeuristicUSD: cfg.LockHeuristicUSD,
	}
}

// WithHTTPClient replaces the retrying HTTP client
func (c *DexScreenerClient) WithHTTPClient(hc *http.Client) *DexScreenerClient {
	c.httpClient = hc
	return c
}

// WithFailureHook sets a callback for failed lookups
func (c *DexScreenerClient) WithFailureHook(hook FailureHook) *DexScreenerClient {
	c.onFailure = hook
	return c
}

// Market returns market data for the token's deepest pair on chain, or nil
// when the token has no pair there or the lookup fails.
func (c *DexScreenerClient) Market(ctx context.Context, address string, chain types.SupportedChain) *model.MarketData {
	var resp dexTokenResponse
	err := c.guard(ctx, func() error {
		return c.getJSON(ctx, c.baseURL+"/"+address, &resp)
	})
	if err != nil {
		c.failed(err, logrus.Fields{"contract": address, "chain": chain.DexScreenerID})
		return nil
	}

	best, ok := bestPair(resp.Pairs, chain.DexScreenerID)
	if !ok {
		logrus.WithFields(logrus.Fields{"contract": address, "chain": chain.DexScreenerID}).Debug("No DEX pair found")
		return nil
	}
	return c.toMarketData(best, address)
}

// bestPair picks the pair with the highest USD liquidity on the chain.
// Earlier pairs win ties.
func bestPair(pairs []dexPair, chainSlug string) (dexPair, bool) {
	var (
		best  dexPair
		found bool
	)
	for _, p := range pairs {
		if p.ChainID != chainSlug {
			continue
		}
		if !found || p.liquidityUSD() > best.liquidityUSD() {
			best = p
			found = true
		}
	}
	return best, found
}

func (c *DexScreenerClient) toMarketData(p dexPair, address string) *model.MarketData {
	price := parseFloat(p.PriceUsd)
	symbol := p.BaseToken.Symbol

	// priceUsd is always the base token's price; derive the quote side from
	// the native price when the token sits on the quote side of the pair.
	if !strings.EqualFold(p.BaseToken.Address, address) && strings.EqualFold(p.QuoteToken.Address, address) {
		symbol = p.QuoteToken.Symbol
		if native := parseFloat(p.PriceNative); native > 0 {
			price = price / native
		} else {
			price = 0
		}
	}

	marketCap := p.MarketCap
	if marketCap == 0 {
		marketCap = p.Fdv
	}

	liquidity := p.liquidityUSD()
	return &model.MarketData{
		Symbol:          symbol,
		PriceUSD:        price,
		LiquidityUSD:    liquidity,
		MarketCap:       marketCap,
		Volume24h:       p.Volume.H24,
		PriceChange24h:  p.PriceChange.H24,
		LiquidityLocked: c.lockHeuristicUSD > 0 && liquidity >= c.lockHeuristicUSD,
		URL:             p.URL,
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
