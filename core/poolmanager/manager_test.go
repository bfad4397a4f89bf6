package poolmanager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/synnergy-network/marketengine/core/dexadapter"
	"github.com/synnergy-network/marketengine/core/venue"
)

// fakeAdapter is a minimal dexadapter.Adapter stub: every method is
// overridable so each test exercises only the path it cares about.
type fakeAdapter struct {
	discoverResult   []venue.VenueState
	discoverErr      error
	introspectResult venue.VenueState
	introspectErr    error
	refreshErr       error
	applyEventErr    error
	applyEventCalls  int32
	refreshCalls     int32
}

func (f *fakeAdapter) Discover(ctx context.Context, pair venue.TokenPairOnChain) ([]venue.VenueState, error) {
	return f.discoverResult, f.discoverErr
}

func (f *fakeAdapter) IntrospectFromEvent(ctx context.Context, event venue.PoolEvent) (venue.VenueState, error) {
	return f.introspectResult, f.introspectErr
}

func (f *fakeAdapter) Refresh(ctx context.Context, state venue.VenueState) error {
	atomic.AddInt32(&f.refreshCalls, 1)
	return f.refreshErr
}

func (f *fakeAdapter) ApplyEvent(state venue.VenueState, event venue.PoolEvent) error {
	atomic.AddInt32(&f.applyEventCalls, 1)
	return f.applyEventErr
}

func (f *fakeAdapter) Simulate(state venue.VenueState, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	return nil, nil
}

func (f *fakeAdapter) Quote(state venue.VenueState, amountIn *uint256.Int, zeroForOne bool) (dexadapter.TradeQuote, error) {
	return dexadapter.TradeQuote{}, nil
}

func (f *fakeAdapter) FeePercent(state venue.VenueState) float64 { return 0.3 }

func testPool(id string, chainID venue.ChainID) *venue.DexV2PoolState {
	pair := venue.NewTokenPairOnChain(
		venue.Token{ChainID: chainID, Address: common.HexToAddress("0x0a"), Symbol: "AAA"},
		venue.Token{ChainID: chainID, Address: common.HexToAddress("0x0b"), Symbol: "BBB"},
	)
	return venue.NewDexV2PoolState(id, venue.DexVenue("uniswap-v2", chainID), pair, uint256.NewInt(100), uint256.NewInt(200))
}

func syncEvent(poolAddr common.Address, block uint64) venue.PoolEvent {
	return venue.PoolEvent{
		Kind:        venue.EventSync,
		ChainID:     1,
		PoolAddress: poolAddr,
		Meta:        venue.EventMetadata{BlockNumber: block},
		Sync:        &venue.SyncData{Reserve0: uint256.NewInt(1), Reserve1: uint256.NewInt(2)},
	}
}

func testPair(chainID venue.ChainID) venue.TokenPairOnChain {
	return venue.NewTokenPairOnChain(
		venue.Token{ChainID: chainID, Address: common.HexToAddress("0x0a"), Symbol: "AAA"},
		venue.Token{ChainID: chainID, Address: common.HexToAddress("0x0b"), Symbol: "BBB"},
	)
}

func TestDiscoverAndRegisterNotifiesOnUpdate(t *testing.T) {
	pool := testPool("pool-1", 1)
	v2 := &fakeAdapter{discoverResult: []venue.VenueState{pool}}
	registry := dexadapter.NewRegistry(v2, &fakeAdapter{}, &fakeAdapter{})
	m := New(1, registry, nil)

	var notified venue.VenueState
	m.OnUpdate(func(s venue.VenueState) { notified = s })

	found, err := m.DiscoverAndRegister(context.Background(), testPair(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected one discovered pool, got %d", len(found))
	}
	if notified == nil || notified.ID() != "pool-1" {
		t.Fatalf("expected onUpdate to fire with the discovered pool, got %+v", notified)
	}
	if _, ok := m.Get("pool-1"); !ok {
		t.Fatal("expected discovered pool registered in the manager")
	}
}

func TestApplyEventRejectsOutdatedEvent(t *testing.T) {
	addr := common.HexToAddress("0x0f")
	pool := testPool(venue.DexPoolID(1, addr), 1)
	pool.SetEventMeta(venue.EventMetadata{BlockNumber: 10})
	v2 := &fakeAdapter{}
	registry := dexadapter.NewRegistry(v2, &fakeAdapter{}, &fakeAdapter{})
	m := New(1, registry, nil)
	m.register(pool)

	event := syncEvent(addr, 5)
	err := m.ApplyEvent(context.Background(), event)
	if !errors.Is(err, venue.ErrOutdatedEvent) {
		t.Fatalf("expected ErrOutdatedEvent, got %v", err)
	}
	if v2.applyEventCalls != 0 {
		t.Fatal("expected ApplyEvent not to be called for an outdated event")
	}
}

func TestApplyEventIntrospectsUnknownPoolColdStart(t *testing.T) {
	addr := common.HexToAddress("0x0c")
	introspected := testPool(venue.DexPoolID(1, addr), 1)
	v2 := &fakeAdapter{introspectResult: introspected}
	registry := dexadapter.NewRegistry(v2, &fakeAdapter{}, &fakeAdapter{})
	m := New(1, registry, nil)

	event := syncEvent(addr, 1)
	if err := m.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v2.applyEventCalls != 1 {
		t.Fatalf("expected ApplyEvent called once after cold-start introspection, got %d", v2.applyEventCalls)
	}
	if _, ok := m.Get(introspected.ID()); !ok {
		t.Fatal("expected the introspected pool to be registered")
	}
}

func TestApplyEventIntrospectionFailurePropagates(t *testing.T) {
	v2 := &fakeAdapter{introspectErr: errors.New("rpc down")}
	registry := dexadapter.NewRegistry(v2, &fakeAdapter{}, &fakeAdapter{})
	m := New(1, registry, nil)

	event := syncEvent(common.HexToAddress("0x0d"), 1)
	err := m.ApplyEvent(context.Background(), event)
	if err == nil {
		t.Fatal("expected introspection failure to propagate")
	}
}

func TestApplyEventSkipsMutationForNonStateEvents(t *testing.T) {
	addr := common.HexToAddress("0x0e")
	pool := testPool(venue.DexPoolID(1, addr), 1)
	v2 := &fakeAdapter{}
	registry := dexadapter.NewRegistry(v2, &fakeAdapter{}, &fakeAdapter{})
	m := New(1, registry, nil)
	m.register(pool)

	event := venue.PoolEvent{
		Kind:        venue.EventV3Mint,
		ChainID:     1,
		PoolAddress: addr,
		Meta:        venue.EventMetadata{BlockNumber: 1},
		Mint:        &venue.V3MintData{TickLower: -1, TickUpper: 1, Amount: uint256.NewInt(1)},
	}
	if err := m.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v2.applyEventCalls != 0 {
		t.Fatal("Mint/Burn/ModifyLiquidity events must never mutate pool state")
	}
}

func TestAreFreshComparesAgainstWatermark(t *testing.T) {
	pool := testPool("pool-1", 1)
	pool.SetEventMeta(venue.EventMetadata{BlockNumber: 10})
	registry := dexadapter.NewRegistry(&fakeAdapter{}, &fakeAdapter{}, &fakeAdapter{})
	m := New(1, registry, nil)
	m.register(pool)

	if !m.AreFresh(venue.EventMetadata{BlockNumber: 10}) {
		t.Fatal("expected fresh at the exact watermark")
	}
	if m.AreFresh(venue.EventMetadata{BlockNumber: 11}) {
		t.Fatal("expected stale below a higher watermark")
	}
}

func TestUpdateAllSkipsFailuresWithoutAborting(t *testing.T) {
	ok := testPool("pool-ok", 1)
	failing := testPool("pool-fail", 1)
	v2 := &fakeAdapter{refreshErr: errors.New("rpc down")}
	registry := dexadapter.NewRegistry(v2, &fakeAdapter{}, &fakeAdapter{})
	m := New(1, registry, nil)
	m.register(ok)
	m.register(failing)

	m.UpdateAll(context.Background(), 2)
	if v2.refreshCalls != 2 {
		t.Fatalf("expected both pools attempted, got %d calls", v2.refreshCalls)
	}
}

func TestStatsCountsDisabledPools(t *testing.T) {
	pool := testPool("pool-1", 1)
	pool.SetDisabled(true)
	registry := dexadapter.NewRegistry(&fakeAdapter{}, &fakeAdapter{}, &fakeAdapter{})
	m := New(1, registry, nil)
	m.register(pool)

	stats := m.Stats()
	if stats.PoolCount != 1 || stats.Disabled != 1 {
		t.Fatalf("expected 1 pool / 1 disabled, got %+v", stats)
	}
}
