// Package types contains shared type definitions used across multiple packages
package types

import (
	"errors"
	"fmt"
)

// ErrUnsupportedChain is returned for chain IDs outside the supported set
var ErrUnsupportedChain = errors.New("unsupported chain")

// SupportedChain describes a blockchain network the adapter can analyze
type SupportedChain struct {
	// EVM chain ID, also used as the explorer chainid parameter
	ID int `json:"id"`

	// Human-readable name used in reports
	Name string `json:"name"`

	// Chain slug used by DexScreener pair records
	DexScreenerID string `json:"dexscreener_id"`

	// Native currency symbol, used in the empty-wallet recommendation
	NativeSymbol string `json:"native_symbol"`
}

// Supported blockchain networks
var (
	ChainEthereum = SupportedChain{ID: 1, Name: "Ethereum", DexScreenerID: "ethereum", NativeSymbol: "ETH"}
	ChainBSC      = SupportedChain{ID: 56, Name: "BNB Chain", DexScreenerID: "bsc", NativeSymbol: "BNB"}
	ChainPolygon  = SupportedChain{ID: 137, Name: "Polygon", DexScreenerID: "polygon", NativeSymbol: "MATIC"}
)

// DefaultChainID is used when a caller omits the chain selector
const DefaultChainID = 1

var supportedChains = map[int]SupportedChain{
	ChainEthereum.ID: ChainEthereum,
	ChainBSC.ID:      ChainBSC,
	ChainPolygon.ID:  ChainPolygon,
}

// LookupChain returns the chain definition for id or ErrUnsupportedChain
func LookupChain(id int) (SupportedChain, error) {
	chain, ok := supportedChains[id]
	if !ok {
		return SupportedChain{}, fmt.Errorf("%w: %d", ErrUnsupportedChain, id)
	}
	return chain, nil
}

// SupportedChainIDs lists the supported chain IDs in ascending order
func SupportedChainIDs() []int {
	return []int{ChainEthereum.ID, ChainBSC.ID, ChainPolygon.ID}
}
