package ammmath

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/synnergy-network/marketengine/core/venue"
)

// maxSwapIterations bounds the multi-tick walk regardless of input size.
const maxSwapIterations = 500

// SwapState is the mutable scalar state the multi-tick simulator starts
// from; it never reads or writes a venue.VenueState directly so it can be
// reused for V3 and V4 pools alike.
type SwapState struct {
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Tick         int32
}

// SimulateSwap walks a sorted tick sequence applying fee once per step and
// crossing ticks as the price moves, per spec.md §4.1. Ticks must already
// be sorted ascending (venue.DexV3PoolState.InsertTick maintains this).
func SimulateSwap(start SwapState, ticks []venue.TickInfo, feeBpsPPM uint32, zeroForOne bool, amountIn *uint256.Int) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, venue.ErrInvalidAmount
	}

	sqrtPrice := start.SqrtPriceX96.Clone()
	liquidity := start.Liquidity.Clone()
	tick := start.Tick
	remaining := amountIn.Clone()
	out := uint256.NewInt(0)

	feeComplement := new(uint256.Int).Sub(million, uint256.NewInt(uint64(feeBpsPPM)))
	if feeComplement.IsZero() {
		return nil, venue.ErrInvalidAmount
	}

	for i := 0; i < maxSwapIterations && !remaining.IsZero() && !liquidity.IsZero(); i++ {
		nextTick, found := findNextTick(ticks, tick, zeroForOne)
		var target *uint256.Int
		if found {
			target = TickToSqrtPriceX96(nextTick)
		} else if zeroForOne {
			target = new(uint256.Int).AddUint64(MinSqrtRatio, 1)
		} else {
			target = new(uint256.Int).SubUint64(MaxSqrtRatio, 1)
		}
		target = ClampSqrtRatio(target)

		availableAfterFee, err := mulDiv(remaining, feeComplement, million)
		if err != nil {
			return nil, err
		}
		if availableAfterFee.IsZero() {
			break
		}

		var maxNetIn *uint256.Int
		if zeroForOne {
			maxNetIn, err = GetAmount0Delta(target, sqrtPrice, liquidity, true)
		} else {
			maxNetIn, err = GetAmount1Delta(sqrtPrice, target, liquidity, true)
		}
		if err != nil {
			return nil, err
		}

		var sqrtNext *uint256.Int
		var netIn *uint256.Int
		reachedBoundary := false
		if availableAfterFee.Cmp(maxNetIn) >= 0 {
			netIn = maxNetIn
			sqrtNext = target
			reachedBoundary = found
		} else {
			netIn = availableAfterFee
			if zeroForOne {
				sqrtNext, err = GetNextSqrtPriceFromAmount0RoundingUp(sqrtPrice, liquidity, netIn, true)
			} else {
				sqrtNext, err = GetNextSqrtPriceFromAmount1RoundingDown(sqrtPrice, liquidity, netIn, true)
			}
			if err != nil {
				return nil, err
			}
		}

		var stepOut *uint256.Int
		if zeroForOne {
			stepOut, err = GetAmount1Delta(sqrtNext, sqrtPrice, liquidity, false)
		} else {
			stepOut, err = GetAmount0Delta(sqrtPrice, sqrtNext, liquidity, false)
		}
		if err != nil {
			return nil, err
		}
		out = new(uint256.Int).Add(out, stepOut)

		grossIn, err := mulDivRoundingUp(netIn, million, feeComplement)
		if err != nil {
			return nil, err
		}
		if grossIn.Cmp(remaining) >= 0 {
			remaining = uint256.NewInt(0)
		} else {
			remaining = new(uint256.Int).Sub(remaining, grossIn)
		}

		sqrtPrice = sqrtNext

		if !reachedBoundary {
			break
		}

		liquidityNet := tickLiquidityNetAt(ticks, nextTick)
		newLiquidity, err := crossTick(liquidity, liquidityNet, zeroForOne)
		if err != nil {
			return out, nil // liquidity exhausted: stop, return what we have
		}
		liquidity = newLiquidity
		if zeroForOne {
			tick = nextTick - 1
		} else {
			tick = nextTick
		}
	}

	return out, nil
}

func findNextTick(ticks []venue.TickInfo, current int32, zeroForOne bool) (int32, bool) {
	if zeroForOne {
		for i := len(ticks) - 1; i >= 0; i-- {
			if ticks[i].Tick <= current {
				return ticks[i].Tick, true
			}
		}
		return 0, false
	}
	for _, t := range ticks {
		if t.Tick > current {
			return t.Tick, true
		}
	}
	return 0, false
}

func tickLiquidityNetAt(ticks []venue.TickInfo, tick int32) *big.Int {
	for _, t := range ticks {
		if t.Tick == tick {
			return t.LiquidityNet
		}
	}
	return big.NewInt(0)
}

func crossTick(liquidity *uint256.Int, liquidityNet *big.Int, zeroForOne bool) (*uint256.Int, error) {
	delta := new(big.Int).Set(liquidityNet)
	if zeroForOne {
		delta.Neg(delta)
	}
	cur := new(big.Int).Set(liquidity.ToBig())
	cur.Add(cur, delta)
	if cur.Sign() <= 0 {
		return nil, venue.ErrInsufficientLiquidity
	}
	v, overflow := uint256.FromBig(cur)
	if overflow {
		return nil, venue.ErrInsufficientLiquidity
	}
	return v, nil
}

// SimulateSingleStep is the fallback used when a pool has no tick data:
// one step against the starting liquidity only, per spec.md §4.1's
// "fallback: if ticks[] is empty, compute a single-step estimate with the
// starting liquidity."
func SimulateSingleStep(start SwapState, feeBpsPPM uint32, zeroForOne bool, amountIn *uint256.Int) (*uint256.Int, error) {
	return SimulateSwap(start, nil, feeBpsPPM, zeroForOne, amountIn)
}
