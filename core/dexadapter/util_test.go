package dexadapter

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// testAddr pads a short hex string into a full 20-byte address, for tests
// that only need distinct, readable addresses.
func testAddr(short string) common.Address {
	return common.HexToAddress(short)
}

func TestToBigIntHandlesAbiDecodedTypes(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int64
	}{
		{uint8(5), 5},
		{uint16(500), 500},
		{uint32(70000), 70000},
		{uint64(9999999999), 9999999999},
		{int8(-5), -5},
		{int16(-500), -500},
		{int32(-70000), -70000},
		{int64(-9999999999), -9999999999},
		{big.NewInt(123456789), 123456789},
	}
	for _, c := range cases {
		got := toBigInt(c.in)
		if got.Int64() != c.want {
			t.Fatalf("toBigInt(%v) = %v, want %d", c.in, got, c.want)
		}
	}
}

func TestToBigIntHandlesBool(t *testing.T) {
	if toBigInt(true).Int64() != 1 {
		t.Fatal("expected true -> 1")
	}
	if toBigInt(false).Int64() != 0 {
		t.Fatal("expected false -> 0")
	}
}

func TestToBigIntPanicsOnUnexpectedType(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for an unrecognised abi-decoded type")
		}
	}()
	toBigInt("not a number")
}

func TestPoolAddressOfRoundTripsDexPoolID(t *testing.T) {
	addr := common.HexToAddress("0x000000000000000000000000000000000000ab")
	id := "1:" + addr.Hex()
	got, err := poolAddressOf(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != addr {
		t.Fatalf("expected %v, got %v", addr, got)
	}
}

func TestPoolAddressOfRejectsMalformedID(t *testing.T) {
	if _, err := poolAddressOf("not-a-pool-id"); err == nil {
		t.Fatal("expected error for malformed pool id")
	}
	if _, err := poolAddressOf("1:not-an-address"); err == nil {
		t.Fatal("expected error for invalid address portion")
	}
}

func TestRatioFloatDividesByZeroToZero(t *testing.T) {
	if got := ratioFloat(uint256.NewInt(10), uint256.NewInt(0)); got != 0 {
		t.Fatalf("expected 0 for division by zero, got %v", got)
	}
}

func TestRatioFloatComputesRatio(t *testing.T) {
	got := ratioFloat(uint256.NewInt(10), uint256.NewInt(4))
	if got < 2.49 || got > 2.51 {
		t.Fatalf("expected ~2.5, got %v", got)
	}
}

func TestParseInt24HandlesBigIntAndNative(t *testing.T) {
	if got := parseInt24(big.NewInt(-100)); got != -100 {
		t.Fatalf("expected -100, got %d", got)
	}
	if got := parseInt24(int32(42)); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
