// Package venue holds the data model shared by every watcher, the
// aggregator store and the price oracle: tokens, venue identity, pair keys
// and the per-protocol pool state variants.
//
// Nothing in this package performs I/O; it is the arena the rest of the
// engine keys into (pools hold ids, never back-pointers).
package venue

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ChainID identifies an EVM-compatible chain.
type ChainID uint64

// Token is the canonical identity of an ERC-20 asset on one chain. A Token
// is created once at registration and never mutated afterwards.
type Token struct {
	ChainID  ChainID
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint8
	Trusted  bool
}

// Key returns the registry lookup key for this token.
func (t Token) Key() string { return tokenKey(t.ChainID, t.Address) }

func tokenKey(chainID ChainID, addr common.Address) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(addr.Hex()))
}

// VenueKind distinguishes a DEX from a centralised exchange venue.
type VenueKind int

const (
	VenueKindDex VenueKind = iota
	VenueKindCex
)

// VenueId is a tagged variant: Dex{name, chainId} or Cex{name}. Name belongs
// to a closed enumeration fixed in configuration.
type VenueId struct {
	Kind    VenueKind
	Name    string
	ChainID ChainID // zero for Cex
}

func DexVenue(name string, chainID ChainID) VenueId {
	return VenueId{Kind: VenueKindDex, Name: name, ChainID: chainID}
}

func CexVenue(name string) VenueId {
	return VenueId{Kind: VenueKindCex, Name: name}
}

func (v VenueId) String() string {
	if v.Kind == VenueKindCex {
		return "cex:" + v.Name
	}
	return fmt.Sprintf("dex:%s:%d", v.Name, v.ChainID)
}

// PairId is the canonical symbol-pair grouping key: the two symbols sorted
// alphabetically and joined with ":". It is advisory only — never used for
// trading-path math.
type PairId string

// MakePairID sorts the two symbols and joins them.
func MakePairID(symbolA, symbolB string) PairId {
	if symbolA > symbolB {
		symbolA, symbolB = symbolB, symbolA
	}
	return PairId(symbolA + ":" + symbolB)
}

// TokenPairOnChain is the on-chain-ordered pair required by AMM math:
// token0.Address < token1.Address byte-lexicographically. This order must
// never be flipped once established.
type TokenPairOnChain struct {
	Token0 Token
	Token1 Token
}

// NewTokenPairOnChain orders the two tokens by address and returns the pair.
// Panics if the tokens are on different chains or share an address — both
// are programmer errors, not runtime conditions.
func NewTokenPairOnChain(a, b Token) TokenPairOnChain {
	if a.ChainID != b.ChainID {
		panic("venue: token pair spans two chains")
	}
	if a.Address == b.Address {
		panic("venue: token pair has identical addresses")
	}
	if bytesLess(a.Address[:], b.Address[:]) {
		return TokenPairOnChain{Token0: a, Token1: b}
	}
	return TokenPairOnChain{Token0: b, Token1: a}
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// DerivedKey returns the advisory "sym0-sym1" key.
func (p TokenPairOnChain) DerivedKey() string {
	return p.Token0.Symbol + "-" + p.Token1.Symbol
}

// SymbolPairID returns the canonical sorted-symbol grouping key for this pair.
func (p TokenPairOnChain) SymbolPairID() PairId {
	return MakePairID(p.Token0.Symbol, p.Token1.Symbol)
}

// EventMetadata totally orders events within a chain lexicographically on
// (BlockNumber, TransactionIndex, LogIndex).
type EventMetadata struct {
	BlockNumber            uint64
	TransactionIndex       uint32
	LogIndex               uint32
	TransactionHash        common.Hash
	BlockReceivedTimestamp time.Time
}

// Compare returns -1, 0 or 1 as m orders before, equal to, or after other.
func (m EventMetadata) Compare(other EventMetadata) int {
	if m.BlockNumber != other.BlockNumber {
		if m.BlockNumber < other.BlockNumber {
			return -1
		}
		return 1
	}
	if m.TransactionIndex != other.TransactionIndex {
		if m.TransactionIndex < other.TransactionIndex {
			return -1
		}
		return 1
	}
	if m.LogIndex != other.LogIndex {
		if m.LogIndex < other.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}

// NewerThan reports whether m strictly orders after other.
func (m EventMetadata) NewerThan(other EventMetadata) bool { return m.Compare(other) > 0 }

// DexPoolID returns the canonical DEX pool identity: "<chainId>:<address>".
func DexPoolID(chainID ChainID, addr common.Address) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(addr.Hex()))
}

// CexPoolID returns the canonical CEX market identity: "<exchange>:<rawSymbol>".
func CexPoolID(exchange, rawSymbol string) string {
	return exchange + ":" + rawSymbol
}

// q96 / q160 constants and sqrt-price bounds, shared by ammmath and the
// dex adapters so both sides of the boundary agree on the same literals.
var (
	Q96  = uint256.NewInt(1).Lsh(uint256.NewInt(1), 96)
	Q160 = uint256.NewInt(1).Lsh(uint256.NewInt(1), 160)

	MinSqrtRatio = uint256.NewInt(4295128740)
	// MaxSqrtRatio = 1461446703485210103287273052203988822378723970341
	MaxSqrtRatio = mustUint256FromDecimal("1461446703485210103287273052203988822378723970341")
)

func mustUint256FromDecimal(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}
