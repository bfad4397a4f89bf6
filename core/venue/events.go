package venue

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Protocol tags the AMM family a pool belongs to.
type Protocol int

const (
	ProtocolV2 Protocol = iota
	ProtocolV3
	ProtocolV4
)

// EventKind tags which on-chain event a PoolEvent carries. Dispatch is
// exhaustive switch, never a string comparison.
type EventKind int

const (
	EventSync EventKind = iota
	EventV3Swap
	EventV3Mint
	EventV3Burn
	EventV4Swap
	EventV4ModifyLiquidity
)

// Canonical keccak256 topic-0 signatures, computed once at init time so the
// watcher's log filter and the adapters' dispatch table always agree.
var (
	TopicSync                = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))
	TopicV3Swap               = crypto.Keccak256Hash([]byte("Swap(address,address,int256,int256,uint160,uint128,int24)"))
	TopicV3Mint               = crypto.Keccak256Hash([]byte("Mint(address,address,int24,int24,uint128,uint256,uint256)"))
	TopicV3Burn               = crypto.Keccak256Hash([]byte("Burn(address,int24,int24,uint128,uint256,uint256)"))
	TopicV4Swap               = crypto.Keccak256Hash([]byte("Swap(bytes32,address,int128,int128,uint160,uint128,int24,uint24)"))
	TopicV4ModifyLiquidity    = crypto.Keccak256Hash([]byte("ModifyLiquidity(bytes32,address,int24,int24,int256,int256)"))
)

// MonitoredTopics is the union the subscriber filters on.
func MonitoredTopics() []common.Hash {
	return []common.Hash{TopicSync, TopicV3Swap, TopicV3Mint, TopicV3Burn, TopicV4Swap, TopicV4ModifyLiquidity}
}

// SyncData is the decoded payload of a V2 Sync(reserve0, reserve1) event.
type SyncData struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

// V3SwapData is the decoded payload of a V3/V4-style Swap event.
type V3SwapData struct {
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Tick         int32
}

// V3MintData / V3BurnData carry liquidity range changes; per spec.md these
// are acknowledged but never applied to state.
type V3MintData struct {
	TickLower, TickUpper int32
	Amount               *uint256.Int
}

type V3BurnData struct {
	TickLower, TickUpper int32
	Amount               *uint256.Int
}

// V4ModifyLiquidityData mirrors V3 mint/burn for the V4 singleton manager.
type V4ModifyLiquidityData struct {
	TickLower, TickUpper int32
	LiquidityDelta       *big.Int
}

// PoolEvent is the tagged union of every recognised on-chain event. Exactly
// one of the payload pointers is non-nil, selected by Kind.
type PoolEvent struct {
	Kind         EventKind
	ChainID      ChainID
	PoolAddress  common.Address
	PoolKey      *[32]byte // set only for V4 events, keyed by pool key instead of address
	Meta         EventMetadata

	Sync              *SyncData
	Swap              *V3SwapData
	Mint              *V3MintData
	Burn              *V3BurnData
	ModifyLiquidity   *V4ModifyLiquidityData
}

// PoolID returns the identity this event applies to.
func (e PoolEvent) PoolID() string {
	if e.PoolKey != nil {
		return DexPoolID(e.ChainID, common.BytesToAddress(e.PoolKey[:20]))
	}
	return DexPoolID(e.ChainID, e.PoolAddress)
}

// Protocol returns which AMM family produced this event kind.
func (e PoolEvent) Protocol() Protocol {
	switch e.Kind {
	case EventSync:
		return ProtocolV2
	case EventV3Swap, EventV3Mint, EventV3Burn:
		return ProtocolV3
	case EventV4Swap, EventV4ModifyLiquidity:
		return ProtocolV4
	default:
		return ProtocolV2
	}
}

// AppliesToState reports whether this event kind mutates pool state, per
// spec.md's "Mint/Burn... ignored for state" decision (see DESIGN.md open
// question #2). ModifyLiquidity is likewise ignored.
func (e PoolEvent) AppliesToState() bool {
	switch e.Kind {
	case EventV3Mint, EventV3Burn, EventV4ModifyLiquidity:
		return false
	default:
		return true
	}
}
