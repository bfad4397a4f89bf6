// Package ammmath implements the fixed-point AMM arithmetic shared by the
// V3/V4 dex adapters: sqrt-price/tick/liquidity math with 256-bit
// intermediates, following the Uniswap V3 reference rounding discipline —
// inputs consumed round up, outputs produced round down.
//
// Every function here is pure: no I/O, no package-level state.
package ammmath

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/synnergy-network/marketengine/core/venue"
)

var (
	Q96          = venue.Q96
	MinSqrtRatio = venue.MinSqrtRatio
	MaxSqrtRatio = venue.MaxSqrtRatio

	million = uint256.NewInt(1_000_000)
)

// mulDiv computes floor(x*y/d) using the library's overflow-checked 512-bit
// intermediate. Returns ErrInsufficientLiquidity when d is zero.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, venue.ErrInsufficientLiquidity
	}
	z := new(uint256.Int)
	_, overflow := z.MulDivOverflow(x, y, d)
	if overflow {
		return nil, venue.ErrInsufficientLiquidity
	}
	return z, nil
}

// mulDivRoundingUp computes ceil(x*y/d). uint256 has no exposed 512-bit
// remainder primitive, so the exact remainder check falls back to
// math/big. SimulateSwap reaches this through its gross-input and
// rounded-up delta computations, so it runs on every swap step.
func mulDivRoundingUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	q, err := mulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	prod := new(big.Int).Mul(x.ToBig(), y.ToBig())
	rem := new(big.Int).Mod(prod, d.ToBig())
	if rem.Sign() != 0 {
		q = new(uint256.Int).AddUint64(q, 1)
	}
	return q, nil
}

func divRoundingUp(x, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, venue.ErrInsufficientLiquidity
	}
	q := new(uint256.Int).Div(x, d)
	r := new(uint256.Int).Mod(x, d)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q, nil
}

// SqrtPriceX96ToPrice returns (s/Q96)^2 * 10^(d0-d1) as a float64. Display
// only; swap math must never consume this result.
func SqrtPriceX96ToPrice(s *uint256.Int, decimals0, decimals1 uint8) float64 {
	sf := new(big.Float).SetInt(s.ToBig())
	q96f := new(big.Float).SetInt(Q96.ToBig())
	ratio := new(big.Float).Quo(sf, q96f)
	ratio.Mul(ratio, ratio)
	scale := pow10(int(decimals0) - int(decimals1))
	ratio.Mul(ratio, scale)
	f, _ := ratio.Float64()
	return f
}

func pow10(exp int) *big.Float {
	out := big.NewFloat(1)
	ten := big.NewFloat(10)
	n := exp
	if n < 0 {
		n = -n
	}
	for i := 0; i < n; i++ {
		out.Mul(out, ten)
	}
	if exp < 0 {
		out = new(big.Float).Quo(big.NewFloat(1), out)
	}
	return out
}

// VirtualReserves returns (r0, r1) = (L*Q96/s, L*s/Q96). Undefined (returns
// an error) when s == 0; returns (0, 0) when L == 0.
func VirtualReserves(s, liquidity *uint256.Int) (r0, r1 *uint256.Int, err error) {
	if liquidity.IsZero() {
		return uint256.NewInt(0), uint256.NewInt(0), nil
	}
	if s.IsZero() {
		return nil, nil, venue.ErrInsufficientLiquidity
	}
	r0, err = mulDiv(liquidity, Q96, s)
	if err != nil {
		return nil, nil, err
	}
	r1, err = mulDiv(liquidity, s, Q96)
	if err != nil {
		return nil, nil, err
	}
	return r0, r1, nil
}

// GetNextSqrtPriceFromAmount0RoundingUp computes the next sqrt price after
// adding (add=true) or removing (add=false) amount0 of liquidity-bound
// token0, rounding the result up.
func GetNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return sqrtPX96.Clone(), nil
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)

	if add {
		product, overflow := new(uint256.Int).MulOverflow(amount, sqrtPX96)
		if !overflow {
			denominator := new(uint256.Int).Add(numerator1, product)
			if denominator.Cmp(numerator1) >= 0 {
				return mulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		// fallback path avoids the overflow-prone product above
		div, err := divRoundingUp(numerator1, sqrtPX96)
		if err != nil {
			return nil, err
		}
		denom := new(uint256.Int).Add(div, amount)
		return divRoundingUp(numerator1, denom)
	}

	product, overflow := new(uint256.Int).MulOverflow(amount, sqrtPX96)
	if overflow || numerator1.Cmp(product) <= 0 {
		return nil, venue.ErrInsufficientLiquidity
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	return mulDivRoundingUp(numerator1, sqrtPX96, denominator)
}

// GetNextSqrtPriceFromAmount1RoundingDown computes the next sqrt price
// after adding or removing amount1 of liquidity-bound token1, rounding
// down.
func GetNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if add {
		quotient, err := mulDiv(amount, Q96, liquidity)
		if err != nil {
			return nil, err
		}
		return new(uint256.Int).Add(sqrtPX96, quotient), nil
	}
	quotient, err := mulDivRoundingUp(amount, Q96, liquidity)
	if err != nil {
		return nil, err
	}
	if sqrtPX96.Cmp(quotient) <= 0 {
		return nil, venue.ErrInsufficientLiquidity
	}
	return new(uint256.Int).Sub(sqrtPX96, quotient), nil
}

// GetAmount0Delta returns the amount of token0 required to move the price
// between sqrtA and sqrtB at the given liquidity.
func GetAmount0Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.IsZero() {
		return nil, venue.ErrInsufficientLiquidity
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		n, err := mulDivRoundingUp(numerator1, numerator2, sqrtB)
		if err != nil {
			return nil, err
		}
		return divRoundingUp(n, sqrtA)
	}
	n, err := mulDiv(numerator1, numerator2, sqrtB)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(n, sqrtA), nil
}

// GetAmount1Delta returns the amount of token1 required to move the price
// between sqrtA and sqrtB at the given liquidity.
func GetAmount1Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, Q96)
	}
	return mulDiv(liquidity, diff, Q96)
}

// TickToSqrtPriceX96 approximates sqrt(1.0001^tick) * 2^96 using
// floating-point exponentiation. This trades the bit-exact Uniswap
// TickMath bit-twiddling routine for a much smaller implementation; the
// engine only uses it to locate tick boundaries during simulation, never
// to persist authoritative state (authoritative sqrtPriceX96 always comes
// from a chain event or an RPC read).
func TickToSqrtPriceX96(tick int32) *uint256.Int {
	price := math.Pow(1.0001, float64(tick))
	sqrtPrice := math.Sqrt(price)
	scaled := new(big.Float).Mul(big.NewFloat(sqrtPrice), new(big.Float).SetInt(Q96.ToBig()))
	i, _ := scaled.Int(nil)
	if i.Sign() < 0 {
		i.SetInt64(0)
	}
	v, overflow := uint256.FromBig(i)
	if overflow {
		return MaxSqrtRatio.Clone()
	}
	return v
}

// ClampSqrtRatio clamps s to the open interval (MinSqrtRatio, MaxSqrtRatio)
// as required before using it as a swap-step target.
func ClampSqrtRatio(s *uint256.Int) *uint256.Int {
	lower := new(uint256.Int).AddUint64(MinSqrtRatio, 1)
	upper := new(uint256.Int).SubUint64(MaxSqrtRatio, 1)
	if s.Cmp(lower) < 0 {
		return lower
	}
	if s.Cmp(upper) > 0 {
		return upper
	}
	return s
}
