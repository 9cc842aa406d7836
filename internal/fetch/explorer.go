package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/wallet-risk-ea/internal/circuitbreaker"
	"github.com/yourorg/wallet-risk-ea/internal/config"
	"github.com/yourorg/wallet-risk-ea/internal/model"
)

// errNoRecords is the explorer's "nothing found" answer, which is not a failure
var errNoRecords = errors.New("no records found")

// explorerResponse is the envelope shared by every Etherscan-style endpoint.
// Result is an array on success and a plain string on errors.
type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type tokenTransfer struct {
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

type contractSource struct {
	SourceCode   string `json:"SourceCode"`
	ABI          string `json:"ABI"`
	ContractName string `json:"ContractName"`
}

// ExplorerClient talks to the Etherscan v2 multichain API
type ExplorerClient struct {
	upstream
	baseURL     string
	apiKey      string
	maxTokens   int
	concurrency int
}

// NewExplorerClient creates an explorer client from configuration
func NewExplorerClient(cfg config.Config, breaker *circuitbreaker.CircuitBreaker) *ExplorerClient {
	concurrency := cfg.MaxConcurrentLookups
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExplorerClient{
		upstream: upstream{
			name:       SourceExplorer,
			httpClient: StandardClient(newRetryClient()),
			limiter:    newLimiter(cfg.EtherscanRPS),
			breaker:    breaker,
		},
		baseURL:     strings.TrimRight(cfg.EtherscanURL, "/"),
		apiKey:      cfg.EtherscanAPIKey,
		maxTokens:   cfg.MaxTokens,
		concurrency: concurrency,
	}
}

// WithHTTPClient replaces the retrying HTTP client
func (c *ExplorerClient) WithHTTPClient(hc *http.Client) *ExplorerClient {
	c.httpClient = hc
	return c
}

// WithFailureHook sets a callback for failed lookups
func (c *ExplorerClient) WithFailureHook(hook FailureHook) *ExplorerClient {
	c.onFailure = hook
	return c
}

// Holdings returns the wallet's ERC-20 holdings with a non-zero balance, in
// the order their contracts first appear in the wallet's transfer history.
// Any failure to read the history yields an empty list.
func (c *ExplorerClient) Holdings(ctx context.Context, wallet string, chainID int) []model.TokenHolding {
	log := logrus.WithFields(logrus.Fields{"wallet": wallet, "chain_id": chainID})

	candidates, err := c.discoverTokens(ctx, wallet, chainID)
	if err != nil {
		c.failed(err, logrus.Fields{"wallet": wallet, "chain_id": chainID, "action": "tokentx"})
		return []model.TokenHolding{}
	}
	log.Debugf("Discovered %d token contracts", len(candidates))

	holdings := make([]model.TokenHolding, 0, len(candidates))
	for start := 0; start < len(candidates); start += c.concurrency {
		if c.maxTokens > 0 && len(holdings) >= c.maxTokens {
			break
		}
		end := start + c.concurrency
		if end > len(candidates) {
			end = len(candidates)
		}
		holdings = append(holdings, c.withBalances(ctx, wallet, chainID, candidates[start:end])...)
	}

	if c.maxTokens > 0 && len(holdings) > c.maxTokens {
		log.Infof("Capping holdings at %d of %d", c.maxTokens, len(holdings))
		holdings = holdings[:c.maxTokens]
	}
	return holdings
}

// withBalances looks up balances for one window of candidates, keeping the
// window's order and dropping zero or failed balances.
func (c *ExplorerClient) withBalances(ctx context.Context, wallet string, chainID int, window []model.TokenHolding) []model.TokenHolding {
	balances := make([]string, len(window))

	var g errgroup.Group
	for i := range window {
		g.Go(func() error {
			raw, err := c.TokenBalance(ctx, window[i].ContractAddress, wallet, chainID)
			if err != nil {
				c.failed(err, logrus.Fields{"wallet": wallet, "contract": window[i].ContractAddress, "action": "tokenbalance"})
				return nil
			}
			balances[i] = raw
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.TokenHolding, 0, len(window))
	for i, h := range window {
		raw := balances[i]
		if raw == "" {
			continue
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil || !amount.IsPositive() {
			continue
		}
		h.RawBalance = raw
		out = append(out, h)
	}
	return out
}

// discoverTokens reads the wallet's token transfer history and returns one
// holding per distinct contract, without balances.
func (c *ExplorerClient) discoverTokens(ctx context.Context, wallet string, chainID int) ([]model.TokenHolding, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("address", wallet)
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("sort", "asc")

	var transfers []tokenTransfer
	err := c.call(ctx, chainID, params, &transfers)
	if errors.Is(err, errNoRecords) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(transfers))
	tokens := make([]model.TokenHolding, 0)
	for _, tx := range transfers {
		addr := strings.ToLower(tx.ContractAddress)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true

		decimals, err := strconv.Atoi(tx.TokenDecimal)
		if err != nil || decimals < 0 {
			decimals = 18
		}
		tokens = append(tokens, model.TokenHolding{
			ContractAddress: addr,
			Name:            tx.TokenName,
			Symbol:          tx.TokenSymbol,
			Decimals:        decimals,
		})
	}
	return tokens, nil
}

// TokenBalance returns the wallet's raw balance of one token contract
func (c *ExplorerClient) TokenBalance(ctx context.Context, contract, wallet string, chainID int) (string, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokenbalance")
	params.Set("contractaddress", contract)
	params.Set("address", wallet)
	params.Set("tag", "latest")

	var balance string
	if err := c.call(ctx, chainID, params, &balance); err != nil {
		return "", err
	}
	return balance, nil
}

// IsVerified reports whether the contract's source is published on the
// explorer. Lookup failures count as unverified.
func (c *ExplorerClient) IsVerified(ctx context.Context, contract string, chainID int) bool {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getsourcecode")
	params.Set("address", contract)

	var sources []contractSource
	if err := c.call(ctx, chainID, params, &sources); err != nil {
		if !errors.Is(err, errNoRecords) {
			c.failed(err, logrus.Fields{"contract": contract, "chain_id": chainID, "action": "getsourcecode"})
		}
		return false
	}

	return len(sources) > 0 &&
		sources[0].SourceCode != "" &&
		sources[0].ABI != "" &&
		sources[0].ABI != "Contract source code not verified"
}

// call issues one explorer request behind the breaker and decodes its result.
// An empty "No transactions found" answer returns errNoRecords and does not
// count against the breaker.
func (c *ExplorerClient) call(ctx context.Context, chainID int, params url.Values, result any) error {
	params.Set("chainid", strconv.Itoa(chainID))
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	endpoint := c.baseURL + "?" + params.Encode()

	var empty bool
	err := c.guard(ctx, func() error {
		var resp explorerResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return err
		}

		if resp.Status != "1" {
			if strings.HasPrefix(resp.Message, "No ") {
				empty = true
				return nil
			}
			var reason string
			if json.Unmarshal(resp.Result, &reason) != nil || reason == "" {
				reason = resp.Message
			}
			return fmt.Errorf("explorer %s/%s error: %s", params.Get("module"), params.Get("action"), reason)
		}

		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("error decoding explorer result: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if empty {
		return errNoRecords
	}
	return nil
}
