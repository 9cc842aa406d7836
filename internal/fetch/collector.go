package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/types"
)

// MarketSource resolves DEX market data; nil means no data
type MarketSource interface {
	Market(ctx context.Context, address string, chain types.SupportedChain) *model.MarketData
}

// VerificationSource answers whether a contract's source is verified
type VerificationSource interface {
	IsVerified(ctx context.Context, contract string, chainID int) bool
}

// Collector gathers market data and verification status for many tokens
// concurrently, bounded by a fixed number of in-flight lookups.
type Collector struct {
	market   MarketSource
	verifier VerificationSource
	limit    int

	mutex      sync.RWMutex
	cacheTTL   time.Duration
	cachedData map[string]*model.MarketData
	cacheTime  map[string]time.Time
	verifiedAt map[string]time.Time
}

// NewCollector creates a collector over the given sources
func NewCollector(market MarketSource, verifier VerificationSource, limit int, cacheTTL time.Duration) *Collector {
	if limit < 1 {
		limit = 1
	}
	return &Collector{
		market:     market,
		verifier:   verifier,
		limit:      limit,
		cacheTTL:   cacheTTL,
		cachedData: make(map[string]*model.MarketData),
		cacheTime:  make(map[string]time.Time),
		verifiedAt: make(map[string]time.Time),
	}
}

// Collect looks up every address on the chain. Lookups that fail are simply
// missing from the market map and false in the verification map; one
// failure never cancels the others.
func (c *Collector) Collect(ctx context.Context, chainID int, addresses []string) (map[string]*model.MarketData, map[string]bool) {
	market := make(map[string]*model.MarketData, len(addresses))
	verification := make(map[string]bool, len(addresses))

	chain, err := types.LookupChain(chainID)
	if err != nil {
		logrus.WithField("chain_id", chainID).Warnf("Skipping collection: %v", err)
		return market, verification
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.limit)

	for _, raw := range addresses {
		addr := strings.ToLower(raw)

		g.Go(func() error {
			md := c.marketData(ctx, addr, chain)
			if md == nil {
				return nil
			}
			mu.Lock()
			market[addr] = md
			mu.Unlock()
			return nil
		})

		g.Go(func() error {
			ok := c.isVerified(ctx, addr, chain.ID)
			mu.Lock()
			verification[addr] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logrus.WithFields(logrus.Fields{
		"chain":    chain.Name,
		"tokens":   len(addresses),
		"priced":   len(market),
		"verified": countTrue(verification),
	}).Debug("Collected token data")

	return market, verification
}

// marketData serves from the TTL cache, falling back to the market source
func (c *Collector) marketData(ctx context.Context, addr string, chain types.SupportedChain) *model.MarketData {
	key := cacheKey(chain.ID, addr)

	c.mutex.RLock()
	if md, ok := c.cachedData[key]; ok && time.Since(c.cacheTime[key]) < c.cacheTTL {
		c.mutex.RUnlock()
		return md
	}
	c.mutex.RUnlock()

	if ctx.Err() != nil {
		return nil
	}

	md := c.market.Market(ctx, addr, chain)
	if md == nil || c.cacheTTL <= 0 {
		return md
	}

	c.mutex.Lock()
	c.cachedData[key] = md
	c.cacheTime[key] = time.Now()
	c.mutex.Unlock()
	return md
}

// isVerified remembers positive answers for the cache TTL only, so failures
// are retried
func (c *Collector) isVerified(ctx context.Context, addr string, chainID int) bool {
	key := cacheKey(chainID, addr)

	c.mutex.RLock()
	at, ok := c.verifiedAt[key]
	c.mutex.RUnlock()
	if ok && time.Since(at) < c.cacheTTL {
		return true
	}

	if ctx.Err() != nil {
		return false
	}

	if !c.verifier.IsVerified(ctx, addr, chainID) {
		return false
	}
	if c.cacheTTL <= 0 {
		return true
	}

	c.mutex.Lock()
	c.verifiedAt[key] = time.Now()
	c.mutex.Unlock()
	return true
}

// Purge drops expired market and verification entries and returns how many
// were removed
func (c *Collector) Purge() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, at := range c.cacheTime {
		if time.Since(at) >= c.cacheTTL {
			delete(c.cachedData, key)
			delete(c.cacheTime, key)
			removed++
		}
	}
	for key, at := range c.verifiedAt {
		if time.Since(at) >= c.cacheTTL {
			delete(c.verifiedAt, key)
			removed++
		}
	}
	return removed
}

func cacheKey(chainID int, addr string) string {
	return fmt.Sprintf("%d:%s", chainID, addr)
}

func countTrue(m map[string]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}
