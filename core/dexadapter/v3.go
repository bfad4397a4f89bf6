package dexadapter

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/synnergy-network/marketengine/core/ammmath"
	"github.com/synnergy-network/marketengine/core/venue"
)

// defaultFeeTiers are the fee tiers (parts-per-million) a V3 factory is
// probed with during discovery, in the absence of a pool-created event.
var defaultFeeTiers = []uint32{100, 500, 3000, 10000}

// tickWindowHalfWidth bounds how many ticks either side of the current tick
// Refresh pulls per pool — enough for local swap simulation without
// scanning the whole tick bitmap. The window is 2*40+1 = 81 candidate
// ticks, each read with its own eth_call (see readTicksWindow).
const tickWindowHalfWidth = 40

// V3Adapter implements the concentrated-liquidity protocol.
type V3Adapter struct {
	VenueName string
	Factory   common.Address
	Chain     *ChainContext
	FeeTiers  []uint32
}

func NewV3Adapter(venueName string, factory common.Address, chain *ChainContext) *V3Adapter {
	return &V3Adapter{VenueName: venueName, Factory: factory, Chain: chain, FeeTiers: defaultFeeTiers}
}

func (a *V3Adapter) venueID() venue.VenueId { return venue.DexVenue(a.VenueName, venue.ChainID(a.Chain.ChainID)) }

// Discover iterates the fixed fee-tier set, querying factory.getPool for
// each, per spec.md §4.3.
func (a *V3Adapter) Discover(ctx context.Context, pair venue.TokenPairOnChain) ([]venue.VenueState, error) {
	var out []venue.VenueState
	for _, fee := range a.FeeTiers {
		data, err := v3FactoryContract.Pack("getPool", pair.Token0.Address, pair.Token1.Address, fee)
		if err != nil {
			return nil, fmt.Errorf("dexadapter/v3: pack getPool: %w", err)
		}
		res, err := a.Chain.Call(ctx, a.Factory, data)
		if err != nil {
			return nil, fmt.Errorf("dexadapter/v3: getPool: %w", venue.ErrRpc)
		}
		var poolAddr common.Address
		if err := v3FactoryContract.UnpackIntoInterface(&poolAddr, "getPool", res); err != nil {
			return nil, fmt.Errorf("dexadapter/v3: unpack getPool: %w", err)
		}
		if poolAddr == (common.Address{}) {
			continue
		}
		state, err := a.readPool(ctx, poolAddr, pair)
		if err != nil {
			a.Chain.Log.WithError(err).WithField("pool", poolAddr.Hex()).Warn("dexadapter/v3: skipping unreadable pool")
			continue
		}
		out = append(out, state)
	}
	return out, nil
}

func (a *V3Adapter) readPool(ctx context.Context, poolAddr common.Address, pair venue.TokenPairOnChain) (*venue.DexV3PoolState, error) {
	slot0Data, _ := v3PoolContract.Pack("slot0")
	liqData, _ := v3PoolContract.Pack("liquidity")
	spacingData, _ := v3PoolContract.Pack("tickSpacing")
	feeData, _ := v3PoolContract.Pack("fee")

	slot0Out, err := a.Chain.Call(ctx, poolAddr, slot0Data)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v3: slot0: %w", venue.ErrRpc)
	}
	slot0, err := v3PoolContract.Unpack("slot0", slot0Out)
	if err != nil || len(slot0) < 2 {
		return nil, fmt.Errorf("dexadapter/v3: unpack slot0: %w", err)
	}
	sqrtP := uint256.MustFromBig(toBigInt(slot0[0]))
	tick := parseInt24(slot0[1])

	liqOut, err := a.Chain.Call(ctx, poolAddr, liqData)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v3: liquidity: %w", venue.ErrRpc)
	}
	var liqRaw *big.Int
	if err := v3PoolContract.UnpackIntoInterface(&liqRaw, "liquidity", liqOut); err != nil {
		return nil, fmt.Errorf("dexadapter/v3: unpack liquidity: %w", err)
	}

	spacingOut, err := a.Chain.Call(ctx, poolAddr, spacingData)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v3: tickSpacing: %w", venue.ErrRpc)
	}
	var spacingRaw *big.Int
	if err := v3PoolContract.UnpackIntoInterface(&spacingRaw, "tickSpacing", spacingOut); err != nil {
		return nil, fmt.Errorf("dexadapter/v3: unpack tickSpacing: %w", err)
	}

	feeOut, err := a.Chain.Call(ctx, poolAddr, feeData)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v3: fee: %w", venue.ErrRpc)
	}
	var feeRaw *big.Int
	if err := v3PoolContract.UnpackIntoInterface(&feeRaw, "fee", feeOut); err != nil {
		return nil, fmt.Errorf("dexadapter/v3: unpack fee: %w", err)
	}

	id := venue.DexPoolID(venue.ChainID(a.Chain.ChainID), poolAddr)
	state := venue.NewDexV3PoolState(id, a.venueID(), pair, sqrtP, tick, uint256.MustFromBig(liqRaw), int32(spacingRaw.Int64()), uint32(feeRaw.Int64()))

	ticks, err := a.readTicksWindow(ctx, poolAddr, tick, int32(spacingRaw.Int64()))
	if err != nil {
		a.Chain.Log.WithError(err).Warn("dexadapter/v3: tick window read failed, pool usable with empty tick set")
	}
	for _, t := range ticks {
		state.InsertTick(t)
	}
	return state, nil
}

// readTicksWindow reads ticks(tick) for a window of initialized-tick
// candidates around the current tick, one eth_call per candidate with at
// most 16 in flight; the calls are not aggregated into a multicall. A
// failed or undecodable call leaves that tick out.
func (a *V3Adapter) readTicksWindow(ctx context.Context, poolAddr common.Address, currentTick, spacing int32) ([]venue.TickInfo, error) {
	if spacing <= 0 {
		return nil, nil
	}
	base := currentTick - currentTick%spacing

	var mu sync.Mutex
	var ticks []venue.TickInfo

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for i := -tickWindowHalfWidth; i <= tickWindowHalfWidth; i++ {
		tickIdx := base + int32(i)*spacing
		g.Go(func() error {
			data, err := v3PoolContract.Pack("ticks", big.NewInt(int64(tickIdx)))
			if err != nil {
				return nil
			}
			out, err := a.Chain.Call(gctx, poolAddr, data)
			if err != nil {
				return nil // best-effort: a single failed sub-call doesn't abort the batch
			}
			unpacked, err := v3PoolContract.Unpack("ticks", out)
			if err != nil || len(unpacked) < 3 {
				return nil
			}
			initialized, _ := unpacked[2].(bool)
			if !initialized {
				return nil
			}
			liquidityNet := toBigInt(unpacked[1])
			mu.Lock()
			ticks = append(ticks, venue.TickInfo{Tick: tickIdx, LiquidityNet: liquidityNet})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ticks, err
	}
	return ticks, nil
}

func (a *V3Adapter) IntrospectFromEvent(ctx context.Context, event venue.PoolEvent) (venue.VenueState, error) {
	if event.Kind != venue.EventV3Swap || event.Swap == nil {
		return nil, venue.ErrUnknownPool
	}
	t0Data, _ := v3PoolContract.Pack("token0")
	t1Data, _ := v3PoolContract.Pack("token1")

	t0Out, err := a.Chain.Call(ctx, event.PoolAddress, t0Data)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v3: token0: %w", venue.ErrUnknownPool)
	}
	t1Out, err := a.Chain.Call(ctx, event.PoolAddress, t1Data)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v3: token1: %w", venue.ErrUnknownPool)
	}
	var addr0, addr1 common.Address
	if err := v3PoolContract.UnpackIntoInterface(&addr0, "token0", t0Out); err != nil {
		return nil, venue.ErrUnknownPool
	}
	if err := v3PoolContract.UnpackIntoInterface(&addr1, "token1", t1Out); err != nil {
		return nil, venue.ErrUnknownPool
	}

	chainID := venue.ChainID(a.Chain.ChainID)
	tok0, err := a.Chain.Tokens.EnsureRegistered(ctx, chainID, addr0)
	if err != nil {
		return nil, venue.ErrUnknownPool
	}
	tok1, err := a.Chain.Tokens.EnsureRegistered(ctx, chainID, addr1)
	if err != nil {
		return nil, venue.ErrUnknownPool
	}
	pair := venue.NewTokenPairOnChain(tok0, tok1)
	return a.readPool(ctx, event.PoolAddress, pair)
}

func (a *V3Adapter) Refresh(ctx context.Context, s venue.VenueState) error {
	pool, ok := s.(*venue.DexV3PoolState)
	if !ok {
		return venue.ErrEventKindMismatch
	}
	addr, err := poolAddressOf(pool.ID())
	if err != nil {
		return err
	}
	refreshed, err := a.readPool(ctx, addr, venue.TokenPairOnChain{Token0: pool.Pair0, Token1: pool.Pair1})
	if err != nil {
		return err
	}
	pool.SqrtPriceX96 = refreshed.SqrtPriceX96
	pool.Tick = refreshed.Tick
	pool.Liquidity = refreshed.Liquidity
	pool.TickSpacing = refreshed.TickSpacing
	pool.FeeBps = refreshed.FeeBps
	pool.Ticks = refreshed.Ticks
	return nil
}

// ApplyEvent only recognises Swap; Mint/Burn are parsed upstream but never
// applied to state (spec.md open question, resolved in DESIGN.md).
func (a *V3Adapter) ApplyEvent(s venue.VenueState, event venue.PoolEvent) error {
	pool, ok := s.(*venue.DexV3PoolState)
	if !ok || event.Kind != venue.EventV3Swap || event.Swap == nil {
		return venue.ErrEventKindMismatch
	}
	pool.SqrtPriceX96 = event.Swap.SqrtPriceX96.Clone()
	pool.Liquidity = event.Swap.Liquidity.Clone()
	pool.Tick = event.Swap.Tick
	return nil
}

func (a *V3Adapter) Simulate(s venue.VenueState, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	pool, ok := s.(*venue.DexV3PoolState)
	if !ok {
		return nil, venue.ErrEventKindMismatch
	}
	if amountIn.IsZero() || amountIn.Sign() < 0 {
		return nil, venue.ErrInvalidAmount
	}
	start := ammmath.SwapState{SqrtPriceX96: pool.SqrtPriceX96, Liquidity: pool.Liquidity, Tick: pool.Tick}
	return ammmath.SimulateSwap(start, pool.Ticks, pool.FeeBps, zeroForOne, amountIn)
}

func (a *V3Adapter) Quote(s venue.VenueState, amountIn *uint256.Int, zeroForOne bool) (TradeQuote, error) {
	pool, ok := s.(*venue.DexV3PoolState)
	if !ok {
		return TradeQuote{}, venue.ErrEventKindMismatch
	}
	out, err := a.Simulate(s, amountIn, zeroForOne)
	if err != nil {
		return TradeQuote{}, err
	}
	spot := ammmath.SqrtPriceX96ToPrice(pool.SqrtPriceX96, pool.Pair0.Decimals, pool.Pair1.Decimals)
	if !zeroForOne && spot != 0 {
		spot = 1 / spot
	}
	execPrice := ratioFloat(amountIn, out)
	impact := 0.0
	if spot > 0 {
		impact = (execPrice - spot) / spot * 100
		if impact < 0 {
			impact = -impact
		}
	}
	confidence := 1.0
	if len(pool.Ticks) == 0 {
		confidence = 0.5 // no tick data: simulation degrades to a single-step quote
	}
	return TradeQuote{
		AmountOut:      out,
		ExecutionPrice: execPrice,
		PriceImpactPct: impact,
		SlippagePct:    impact,
		Confidence:     confidence,
	}, nil
}

func (a *V3Adapter) FeePercent(s venue.VenueState) float64 {
	pool, ok := s.(*venue.DexV3PoolState)
	if !ok {
		return 0
	}
	return float64(pool.FeeBps) / 10_000
}
