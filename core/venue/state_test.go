package venue

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func testPair() TokenPairOnChain {
	return NewTokenPairOnChain(
		Token{ChainID: 1, Address: common.HexToAddress("0x0000000000000000000000000000000000000a"), Symbol: "AAA", Decimals: 18},
		Token{ChainID: 1, Address: common.HexToAddress("0x0000000000000000000000000000000000000b"), Symbol: "BBB", Decimals: 6},
	)
}

func TestDexV2PoolStateCloneIndependence(t *testing.T) {
	pair := testPair()
	p := NewDexV2PoolState("pool-1", DexVenue("uniswap-v2", 1), pair, uint256.NewInt(100), uint256.NewInt(200))
	p.SetEventMeta(EventMetadata{BlockNumber: 5})

	clone := p.Clone().(*DexV2PoolState)
	clone.Reserve0.Add(clone.Reserve0, uint256.NewInt(1))
	clone.SetEventMeta(EventMetadata{BlockNumber: 6})

	if p.Reserve0.Eq(clone.Reserve0) {
		t.Fatal("mutating the clone's reserve must not affect the original")
	}
	if p.EventMeta().BlockNumber == clone.EventMeta().BlockNumber {
		t.Fatal("mutating the clone's event metadata must not affect the original")
	}
}

func TestDexV2PoolStateSpotPriceDecimalAdjustment(t *testing.T) {
	pair := testPair() // token0 has 18 decimals, token1 has 6
	// 1 whole token0 (1e18) paired against 2 whole token1 (2e6): price should
	// be 2 token1-per-token0 once decimals are normalised.
	r0, _ := new(big.Int).SetString("1000000000000000000", 10)
	r1 := big.NewInt(2000000)
	p := NewDexV2PoolState("pool-2", DexVenue("uniswap-v2", 1), pair, uint256.MustFromBig(r0), uint256.MustFromBig(r1))

	got := p.SpotPrice0to1()
	if got < 1.999 || got > 2.001 {
		t.Fatalf("expected ~2.0 token1-per-token0, got %v", got)
	}
}

func TestDexV3InsertTickKeepsSortedNoDuplicates(t *testing.T) {
	pair := testPair()
	p := NewDexV3PoolState("pool-3", DexVenue("uniswap-v3", 1), pair, uint256.NewInt(1), 0, uint256.NewInt(1000), 60, 3000)

	p.InsertTick(TickInfo{Tick: 100, LiquidityNet: big.NewInt(10)})
	p.InsertTick(TickInfo{Tick: -100, LiquidityNet: big.NewInt(20)})
	p.InsertTick(TickInfo{Tick: 0, LiquidityNet: big.NewInt(30)})
	p.InsertTick(TickInfo{Tick: 0, LiquidityNet: big.NewInt(99)}) // replaces, not duplicates

	if len(p.Ticks) != 3 {
		t.Fatalf("expected 3 distinct ticks, got %d", len(p.Ticks))
	}
	for i := 1; i < len(p.Ticks); i++ {
		if p.Ticks[i-1].Tick >= p.Ticks[i].Tick {
			t.Fatalf("ticks not strictly sorted: %+v", p.Ticks)
		}
	}
	for _, tk := range p.Ticks {
		if tk.Tick == 0 && tk.LiquidityNet.Cmp(big.NewInt(99)) != 0 {
			t.Fatalf("expected replacement at tick 0, got %v", tk.LiquidityNet)
		}
	}
}

func TestDexV4PoolStateHasHooks(t *testing.T) {
	pair := testPair()
	v3 := NewDexV3PoolState("pool-4", DexVenue("uniswap-v4", 1), pair, uint256.NewInt(1), 0, uint256.NewInt(1), 10, 500)
	p := &DexV4PoolState{DexV3PoolState: *v3}
	if p.HasHooks() {
		t.Fatal("nil hooks address must report HasHooks() == false")
	}
	hooks := common.HexToAddress("0x00000000000000000000000000000000000001")
	p.Hooks = &hooks
	if !p.HasHooks() {
		t.Fatal("non-zero hooks address must report HasHooks() == true")
	}
}

func TestDexV4PoolStateCloneDeepCopiesHooks(t *testing.T) {
	pair := testPair()
	v3 := NewDexV3PoolState("pool-5", DexVenue("uniswap-v4", 1), pair, uint256.NewInt(1), 0, uint256.NewInt(1), 10, 500)
	hooks := common.HexToAddress("0x00000000000000000000000000000000000002")
	p := &DexV4PoolState{DexV3PoolState: *v3, Hooks: &hooks}

	clone := p.Clone().(*DexV4PoolState)
	*clone.Hooks = common.HexToAddress("0x00000000000000000000000000000000000003")

	if *p.Hooks == *clone.Hooks {
		t.Fatal("clone must own an independent Hooks pointer")
	}
}
