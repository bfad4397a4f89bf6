package watcher

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/synnergy-network/marketengine/core/venue"
)

// non-indexed argument layouts for each monitored event's Data field, used
// to unpack without needing the full contract ABI.
var (
	syncArgs      = mustArgs("uint112", "uint112")
	v3SwapArgs    = mustArgs("int256", "int256", "uint160", "uint128", "int24")
	v3MintArgs    = mustArgs("uint128", "uint256", "uint256")
	v3BurnArgs    = mustArgs("uint128", "uint256", "uint256")
	v4SwapArgs    = mustArgs("int128", "int128", "uint160", "uint128", "int24", "uint24")
	v4ModifyArgs  = mustArgs("int256", "int256")
)

func mustArgs(types ...string) abi.Arguments {
	out := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		out[i] = abi.Argument{Type: typ}
	}
	return out
}

// decodeLog dispatches on topic-0 and builds the corresponding PoolEvent.
// Returns (zero, false, nil) for logs whose topic isn't monitored (should
// not occur given the subscriber's own filter, but defensive all the same).
func decodeLog(chainID venue.ChainID, log types.Log) (venue.PoolEvent, bool, error) {
	if len(log.Topics) == 0 {
		return venue.PoolEvent{}, false, nil
	}
	meta := venue.EventMetadata{
		BlockNumber:            log.BlockNumber,
		TransactionIndex:       uint32(log.TxIndex),
		LogIndex:               uint32(log.Index),
		TransactionHash:        log.TxHash,
		BlockReceivedTimestamp: time.Now(),
	}

	switch log.Topics[0] {
	case venue.TopicSync:
		vals, err := syncArgs.UnpackValues(log.Data)
		if err != nil || len(vals) < 2 {
			return venue.PoolEvent{}, false, fmt.Errorf("watcher: decode Sync: %w", err)
		}
		return venue.PoolEvent{
			Kind:        venue.EventSync,
			ChainID:     chainID,
			PoolAddress: log.Address,
			Meta:        meta,
			Sync: &venue.SyncData{
				Reserve0: uint256.MustFromBig(toBig(vals[0])),
				Reserve1: uint256.MustFromBig(toBig(vals[1])),
			},
		}, true, nil

	case venue.TopicV3Swap:
		vals, err := v3SwapArgs.UnpackValues(log.Data)
		if err != nil || len(vals) < 5 {
			return venue.PoolEvent{}, false, fmt.Errorf("watcher: decode V3 Swap: %w", err)
		}
		return venue.PoolEvent{
			Kind:        venue.EventV3Swap,
			ChainID:     chainID,
			PoolAddress: log.Address,
			Meta:        meta,
			Swap: &venue.V3SwapData{
				SqrtPriceX96: uint256.MustFromBig(toBig(vals[2])),
				Liquidity:    uint256.MustFromBig(toBig(vals[3])),
				Tick:         int32(toBig(vals[4]).Int64()),
			},
		}, true, nil

	case venue.TopicV3Mint:
		vals, err := v3MintArgs.UnpackValues(log.Data)
		if err != nil || len(vals) < 3 {
			return venue.PoolEvent{}, false, fmt.Errorf("watcher: decode V3 Mint: %w", err)
		}
		tickLower, tickUpper := tickBoundsFromTopics(log.Topics)
		return venue.PoolEvent{
			Kind:        venue.EventV3Mint,
			ChainID:     chainID,
			PoolAddress: log.Address,
			Meta:        meta,
			Mint: &venue.V3MintData{
				TickLower: tickLower,
				TickUpper: tickUpper,
				Amount:    uint256.MustFromBig(toBig(vals[0])),
			},
		}, true, nil

	case venue.TopicV3Burn:
		vals, err := v3BurnArgs.UnpackValues(log.Data)
		if err != nil || len(vals) < 3 {
			return venue.PoolEvent{}, false, fmt.Errorf("watcher: decode V3 Burn: %w", err)
		}
		tickLower, tickUpper := tickBoundsFromTopics(log.Topics)
		return venue.PoolEvent{
			Kind:        venue.EventV3Burn,
			ChainID:     chainID,
			PoolAddress: log.Address,
			Meta:        meta,
			Burn: &venue.V3BurnData{
				TickLower: tickLower,
				TickUpper: tickUpper,
				Amount:    uint256.MustFromBig(toBig(vals[0])),
			},
		}, true, nil

	case venue.TopicV4Swap:
		vals, err := v4SwapArgs.UnpackValues(log.Data)
		if err != nil || len(vals) < 5 {
			return venue.PoolEvent{}, false, fmt.Errorf("watcher: decode V4 Swap: %w", err)
		}
		var poolKey [32]byte
		if len(log.Topics) > 1 {
			poolKey = log.Topics[1]
		}
		return venue.PoolEvent{
			Kind:    venue.EventV4Swap,
			ChainID: chainID,
			PoolKey: &poolKey,
			Meta:    meta,
			Swap: &venue.V3SwapData{
				SqrtPriceX96: uint256.MustFromBig(toBig(vals[2])),
				Liquidity:    uint256.MustFromBig(toBig(vals[3])),
				Tick:         int32(toBig(vals[4]).Int64()),
			},
		}, true, nil

	case venue.TopicV4ModifyLiquidity:
		vals, err := v4ModifyArgs.UnpackValues(log.Data)
		if err != nil || len(vals) < 1 {
			return venue.PoolEvent{}, false, fmt.Errorf("watcher: decode V4 ModifyLiquidity: %w", err)
		}
		tickLower, tickUpper := tickBoundsFromTopics(log.Topics)
		var poolKey [32]byte
		if len(log.Topics) > 1 {
			poolKey = log.Topics[1]
		}
		return venue.PoolEvent{
			Kind:    venue.EventV4ModifyLiquidity,
			ChainID: chainID,
			PoolKey: &poolKey,
			Meta:    meta,
			ModifyLiquidity: &venue.V4ModifyLiquidityData{
				TickLower:      tickLower,
				TickUpper:      tickUpper,
				LiquidityDelta: toBig(vals[0]),
			},
		}, true, nil

	default:
		return venue.PoolEvent{}, false, nil
	}
}

// tickBoundsFromTopics recovers indexed int24 tick bounds from a log's
// topic slots (topics[2], topics[3]), present on Mint/Burn/ModifyLiquidity
// events alongside the sender/owner indexed fields.
func tickBoundsFromTopics(topics []common.Hash) (int32, int32) {
	if len(topics) < 4 {
		return 0, 0
	}
	return int32(hashToSignedInt(topics[2]).Int64()), int32(hashToSignedInt(topics[3]).Int64())
}

// hashToSignedInt interprets a 32-byte topic slot as a two's-complement
// signed integer, the encoding Solidity uses for indexed signed values.
func hashToSignedInt(h common.Hash) *big.Int {
	v := new(big.Int).SetBytes(h[:])
	if h[0]&0x80 != 0 {
		modulus := new(big.Int).Lsh(big.NewInt(1), 256)
		v.Sub(v, modulus)
	}
	return v
}

// toBig normalises an abi-decoded integer to *big.Int. go-ethereum's abi
// package unpacks the 8/16/32/64-bit integer types into native Go integers
// and every other width (int24, uint24, uint160, ...) into *big.Int, so
// both forms are handled here; any other type yields zero.
func toBig(v interface{}) *big.Int {
	switch n := v.(type) {
	case *big.Int:
		return n
	case int8:
		return big.NewInt(int64(n))
	case int16:
		return big.NewInt(int64(n))
	case int32:
		return big.NewInt(int64(n))
	case int64:
		return big.NewInt(n)
	case uint8:
		return big.NewInt(int64(n))
	case uint16:
		return big.NewInt(int64(n))
	case uint32:
		return big.NewInt(int64(n))
	case uint64:
		return new(big.Int).SetUint64(n)
	default:
		return big.NewInt(0)
	}
}
