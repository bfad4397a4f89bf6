package ammmath

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestSqrtPriceX96ToPriceUnity(t *testing.T) {
	// sqrtPriceX96 == Q96 encodes a raw price of 1.0; equal decimals leave
	// the scale factor at 1.
	got := SqrtPriceX96ToPrice(Q96, 18, 18)
	if got < 0.999 || got > 1.001 {
		t.Fatalf("expected price ~1.0, got %v", got)
	}
}

func TestSqrtPriceX96ToPriceDecimalScaling(t *testing.T) {
	// Doubling the sqrt price quadruples the raw price; decimals0 = 6 vs
	// decimals1 = 18 scales the result by 10^-12.
	doubled := new(uint256.Int).Mul(Q96, uint256.NewInt(2))
	got := SqrtPriceX96ToPrice(doubled, 6, 18)
	want := 4 * 1e-12
	if got < want*0.99 || got > want*1.01 {
		t.Fatalf("got %v, want ~%v", got, want)
	}
}

func TestVirtualReservesZeroLiquidity(t *testing.T) {
	r0, r1, err := VirtualReserves(Q96, uint256.NewInt(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r0.IsZero() || !r1.IsZero() {
		t.Fatalf("expected zero reserves at zero liquidity, got r0=%v r1=%v", r0, r1)
	}
}

func TestVirtualReservesZeroSqrtPriceErrors(t *testing.T) {
	_, _, err := VirtualReserves(uint256.NewInt(0), uint256.NewInt(1000))
	if err == nil {
		t.Fatal("expected error for zero sqrt price")
	}
}

func TestVirtualReservesRoundTripAtUnityPrice(t *testing.T) {
	liquidity := uint256.NewInt(1_000_000)
	r0, r1, err := VirtualReserves(Q96, liquidity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// at sqrtPriceX96 == Q96 (price == 1), virtual reserves are equal.
	if r0.Cmp(r1) != 0 {
		t.Fatalf("expected equal virtual reserves at unity price, got r0=%v r1=%v", r0, r1)
	}
}

func TestGetNextSqrtPriceFromAmount0RoundingUpZeroAmount(t *testing.T) {
	sqrtP := Q96.Clone()
	liquidity := uint256.NewInt(1000)
	got, err := GetNextSqrtPriceFromAmount0RoundingUp(sqrtP, liquidity, uint256.NewInt(0), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(sqrtP) != 0 {
		t.Fatalf("zero amount must return the unchanged sqrt price")
	}
}

func TestGetNextSqrtPriceFromAmount0AddDecreasesPrice(t *testing.T) {
	sqrtP := Q96.Clone()
	liquidity := uint256.NewInt(1_000_000_000)
	next, err := GetNextSqrtPriceFromAmount0RoundingUp(sqrtP, liquidity, uint256.NewInt(1000), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// adding token0 moves the price down (zeroForOne direction).
	if next.Cmp(sqrtP) >= 0 {
		t.Fatalf("expected sqrt price to decrease, got %v (was %v)", next, sqrtP)
	}
}

func TestGetNextSqrtPriceFromAmount1AddIncreasesPrice(t *testing.T) {
	sqrtP := Q96.Clone()
	liquidity := uint256.NewInt(1_000_000_000)
	next, err := GetNextSqrtPriceFromAmount1RoundingDown(sqrtP, liquidity, uint256.NewInt(1000), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Cmp(sqrtP) <= 0 {
		t.Fatalf("expected sqrt price to increase, got %v (was %v)", next, sqrtP)
	}
}

func TestGetAmount0DeltaOrderIndependent(t *testing.T) {
	low := Q96.Clone()
	high := new(uint256.Int).Mul(Q96, uint256.NewInt(2))
	liquidity := uint256.NewInt(1_000_000)

	ascending, err := GetAmount0Delta(low, high, liquidity, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	descending, err := GetAmount0Delta(high, low, liquidity, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ascending.Cmp(descending) != 0 {
		t.Fatalf("GetAmount0Delta must be argument-order independent: %v vs %v", ascending, descending)
	}
}

func TestGetAmount1DeltaRoundingUpIsAtLeastRoundingDown(t *testing.T) {
	low := Q96.Clone()
	high := new(uint256.Int).Add(Q96, uint256.NewInt(12345))
	liquidity := uint256.NewInt(999_999)

	down, err := GetAmount1Delta(low, high, liquidity, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	up, err := GetAmount1Delta(low, high, liquidity, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.Cmp(down) < 0 {
		t.Fatalf("rounding up must be >= rounding down: up=%v down=%v", up, down)
	}
}

func TestClampSqrtRatioClampsToRange(t *testing.T) {
	below := uint256.NewInt(1)
	clamped := ClampSqrtRatio(below)
	if clamped.Cmp(MinSqrtRatio) <= 0 {
		t.Fatalf("expected clamped value above MinSqrtRatio, got %v", clamped)
	}

	huge := MaxSqrtRatio.Clone()
	huge.Add(huge, uint256.NewInt(1_000_000))
	clampedHigh := ClampSqrtRatio(huge)
	if clampedHigh.Cmp(MaxSqrtRatio) >= 0 {
		t.Fatalf("expected clamped value below MaxSqrtRatio, got %v", clampedHigh)
	}

	inRange := new(uint256.Int).Add(MinSqrtRatio, uint256.NewInt(100))
	if ClampSqrtRatio(inRange).Cmp(inRange) != 0 {
		t.Fatal("in-range values must pass through unchanged")
	}
}

func TestTickToSqrtPriceX96MonotonicAndZeroIsUnity(t *testing.T) {
	zero := TickToSqrtPriceX96(0)
	if zero.Cmp(Q96) < 0 || new(uint256.Int).Sub(zero, Q96).Cmp(uint256.NewInt(2)) > 0 {
		t.Fatalf("tick 0 must approximate sqrt(1)*Q96 == Q96, got %v vs %v", zero, Q96)
	}
	lower := TickToSqrtPriceX96(-100)
	higher := TickToSqrtPriceX96(100)
	if lower.Cmp(zero) >= 0 || zero.Cmp(higher) >= 0 {
		t.Fatalf("expected strictly increasing sqrt price with tick: %v < %v < %v", lower, zero, higher)
	}
}
