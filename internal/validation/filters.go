// Package validation checks request inputs and filters malformed holdings
// before they reach valuation and scoring.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/types"
)

// ErrInvalidAddress is returned for anything that is not a 20-byte hex address
var ErrInvalidAddress = errors.New("invalid wallet address")

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidationOptions holds configuration for holding sanitization
type ValidationOptions struct {
	// MaxDecimals rejects tokens reporting an implausible precision
	MaxDecimals int

	// RequireContractAddress drops holdings whose contract is not a valid address
	RequireContractAddress bool
}

// DefaultValidationOptions returns sensible defaults for validation
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		MaxDecimals:            36,
		RequireContractAddress: true,
	}
}

// ValidateWallet checks that addr is a 0x-prefixed 40 hex digit address and
// returns it lowercased.
func ValidateWallet(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !addressPattern.MatchString(addr) || !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return strings.ToLower(addr), nil
}

// ValidateChain resolves a chain ID, failing with types.ErrUnsupportedChain
func ValidateChain(id int) (types.SupportedChain, error) {
	return types.LookupChain(id)
}

// IsValidationError reports whether err came from input validation
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAddress) || errors.Is(err, types.ErrUnsupportedChain)
}

// SanitizeHoldings removes holdings that fail basic validation criteria.
// This is the main entrypoint for holding validation.
func SanitizeHoldings(holdings []model.TokenHolding) []model.TokenHolding {
	return SanitizeHoldingsWithOptions(holdings, DefaultValidationOptions())
}

// SanitizeHoldingsWithOptions lowercases contract addresses, drops malformed
// holdings and keeps the first holding per contract. Order is preserved.
func SanitizeHoldingsWithOptions(holdings []model.TokenHolding, opts ValidationOptions) []model.TokenHolding {
	valid := make([]model.TokenHolding, 0, len(holdings))
	seen := make(map[string]bool, len(holdings))

	for _, h := range holdings {
		h.ContractAddress = strings.ToLower(strings.TrimSpace(h.ContractAddress))

		if reason := invalidReason(h, opts); reason != "" {
			logrus.WithFields(logrus.Fields{
				"contract": h.ContractAddress,
				"symbol":   h.Symbol,
				"balance":  h.RawBalance,
				"reason":   reason,
			}).Debug("Filtered invalid holding")
			continue
		}

		if seen[h.ContractAddress] {
			logrus.WithField("contract", h.ContractAddress).Debug("Filtered duplicate holding")
			continue
		}
		seen[h.ContractAddress] = true
		valid = append(valid, h)
	}

	if dropped := len(holdings) - len(valid); dropped > 0 {
		logrus.WithFields(logrus.Fields{
			"total":    len(holdings),
			"filtered": dropped,
		}).Debug("Holding sanitization complete")
	}
	return valid
}

// invalidReason explains why a holding is rejected, or returns ""
func invalidReason(h model.TokenHolding, opts ValidationOptions) string {
	if h.ContractAddress == "" {
		return "missing contract address"
	}
	if opts.RequireContractAddress && !common.IsHexAddress(h.ContractAddress) {
		return "malformed contract address"
	}

	balance, err := decimal.NewFromString(h.RawBalance)
	if err != nil {
		return "balance is not a number"
	}
	if balance.IsNegative() {
		return "negative balance"
	}
	if !balance.Equal(balance.Truncate(0)) {
		return "balance is not an integer"
	}

	if h.Decimals < 0 || (opts.MaxDecimals > 0 && h.Decimals > opts.MaxDecimals) {
		return "decimals out of range"
	}
	if h.USDValue != nil && *h.USDValue < 0 {
		return "negative USD value"
	}
	return ""
}
