package dexadapter

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/synnergy-network/marketengine/core/venue"
)

const v2FeeBps = 30 // parts-per-10000, fixed per spec.md §4.3

// V2Adapter implements the constant-product (x*y=k) protocol.
type V2Adapter struct {
	VenueName string
	Factory   common.Address
	Chain     *ChainContext
}

func NewV2Adapter(venueName string, factory common.Address, chain *ChainContext) *V2Adapter {
	return &V2Adapter{VenueName: venueName, Factory: factory, Chain: chain}
}

func (a *V2Adapter) venueID() venue.VenueId { return venue.DexVenue(a.VenueName, venue.ChainID(a.Chain.ChainID)) }

func (a *V2Adapter) Discover(ctx context.Context, pair venue.TokenPairOnChain) ([]venue.VenueState, error) {
	data, err := v2FactoryContract.Pack("getPair", pair.Token0.Address, pair.Token1.Address)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v2: pack getPair: %w", err)
	}
	out, err := a.Chain.Call(ctx, a.Factory, data)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v2: getPair: %w", venue.ErrRpc)
	}
	var pairAddr common.Address
	if err := v2FactoryContract.UnpackIntoInterface(&pairAddr, "getPair", out); err != nil {
		return nil, fmt.Errorf("dexadapter/v2: unpack getPair: %w", err)
	}
	if pairAddr == (common.Address{}) {
		return nil, nil
	}

	r0, r1, err := a.readReserves(ctx, pairAddr)
	if err != nil {
		return nil, err
	}

	id := venue.DexPoolID(venue.ChainID(a.Chain.ChainID), pairAddr)
	state := venue.NewDexV2PoolState(id, a.venueID(), pair, r0, r1)
	return []venue.VenueState{state}, nil
}

func (a *V2Adapter) readReserves(ctx context.Context, pairAddr common.Address) (*uint256.Int, *uint256.Int, error) {
	data, err := v2PairContract.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("dexadapter/v2: pack getReserves: %w", err)
	}
	out, err := a.Chain.Call(ctx, pairAddr, data)
	if err != nil {
		return nil, nil, fmt.Errorf("dexadapter/v2: getReserves: %w", venue.ErrRpc)
	}
	unpacked, err := v2PairContract.Unpack("getReserves", out)
	if err != nil || len(unpacked) < 2 {
		return nil, nil, fmt.Errorf("dexadapter/v2: unpack getReserves: %w", err)
	}
	r0 := uint256.MustFromBig(toBigInt(unpacked[0]))
	r1 := uint256.MustFromBig(toBigInt(unpacked[1]))
	return r0, r1, nil
}

// IntrospectFromEvent resolves token0/token1 with exactly two view calls
// (per spec.md scenario 3), registers any missing tokens, and builds a new
// V2 pool seeded with the event's reserves.
func (a *V2Adapter) IntrospectFromEvent(ctx context.Context, event venue.PoolEvent) (venue.VenueState, error) {
	if event.Kind != venue.EventSync || event.Sync == nil {
		return nil, venue.ErrUnknownPool
	}

	t0Data, _ := v2PairContract.Pack("token0")
	t1Data, _ := v2PairContract.Pack("token1")

	t0Out, err := a.Chain.Call(ctx, event.PoolAddress, t0Data)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v2: token0: %w", venue.ErrUnknownPool)
	}
	t1Out, err := a.Chain.Call(ctx, event.PoolAddress, t1Data)
	if err != nil {
		return nil, fmt.Errorf("dexadapter/v2: token1: %w", venue.ErrUnknownPool)
	}

	var addr0, addr1 common.Address
	if err := v2PairContract.UnpackIntoInterface(&addr0, "token0", t0Out); err != nil {
		return nil, fmt.Errorf("dexadapter/v2: unpack token0: %w", venue.ErrUnknownPool)
	}
	if err := v2PairContract.UnpackIntoInterface(&addr1, "token1", t1Out); err != nil {
		return nil, fmt.Errorf("dexadapter/v2: unpack token1: %w", venue.ErrUnknownPool)
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
	id := venue.DexPoolID(chainID, event.PoolAddress)
	state := venue.NewDexV2PoolState(id, a.venueID(), pair, event.Sync.Reserve0, event.Sync.Reserve1)
	return state, nil
}

func (a *V2Adapter) Refresh(ctx context.Context, s venue.VenueState) error {
	pool, ok := s.(*venue.DexV2PoolState)
	if !ok {
		return venue.ErrEventKindMismatch
	}
	addr, err := poolAddressOf(pool.ID())
	if err != nil {
		return err
	}
	r0, r1, err := a.readReserves(ctx, addr)
	if err != nil {
		return err
	}
	pool.Reserve0, pool.Reserve1 = r0, r1
	return nil
}

func (a *V2Adapter) ApplyEvent(s venue.VenueState, event venue.PoolEvent) error {
	pool, ok := s.(*venue.DexV2PoolState)
	if !ok || event.Kind != venue.EventSync || event.Sync == nil {
		return venue.ErrEventKindMismatch
	}
	pool.Reserve0 = event.Sync.Reserve0.Clone()
	pool.Reserve1 = event.Sync.Reserve1.Clone()
	return nil
}

// Simulate applies the constant-product formula with the fixed 30bps fee,
// parts-per-10000, per spec.md §4.3.
func (a *V2Adapter) Simulate(s venue.VenueState, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	pool, ok := s.(*venue.DexV2PoolState)
	if !ok {
		return nil, venue.ErrEventKindMismatch
	}
	if amountIn.IsZero() || amountIn.Sign() < 0 {
		return nil, venue.ErrInvalidAmount
	}
	reserveIn, reserveOut := pool.Reserve0, pool.Reserve1
	if !zeroForOne {
		reserveIn, reserveOut = pool.Reserve1, pool.Reserve0
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, venue.ErrInsufficientLiquidity
	}
	if amountIn.Cmp(reserveIn) > 0 {
		return nil, venue.ErrInsufficientLiquidity
	}

	feeMultiplier := uint256.NewInt(10_000 - v2FeeBps)
	amountInWithFee := new(uint256.Int).Mul(amountIn, feeMultiplier)
	numerator := new(uint256.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(uint256.Int).Add(new(uint256.Int).Mul(reserveIn, uint256.NewInt(10_000)), amountInWithFee)
	if denominator.IsZero() {
		return nil, venue.ErrInsufficientLiquidity
	}
	out := new(uint256.Int).Div(numerator, denominator)
	return out, nil
}

func (a *V2Adapter) Quote(s venue.VenueState, amountIn *uint256.Int, zeroForOne bool) (TradeQuote, error) {
	pool, ok := s.(*venue.DexV2PoolState)
	if !ok {
		return TradeQuote{}, venue.ErrEventKindMismatch
	}
	out, err := a.Simulate(s, amountIn, zeroForOne)
	if err != nil {
		return TradeQuote{}, err
	}

	spot := pool.SpotPrice0to1()
	if !zeroForOne {
		spot = pool.SpotPrice1to0()
	}

	execPrice := ratioFloat(amountIn, out)
	impact := 0.0
	if spot > 0 {
		impact = (execPrice - spot) / spot * 100
		if impact < 0 {
			impact = -impact
		}
	}
	return TradeQuote{
		AmountOut:      out,
		ExecutionPrice: execPrice,
		PriceImpactPct: impact,
		SlippagePct:    impact,
		Confidence:     1.0,
	}, nil
}

func (a *V2Adapter) FeePercent(venue.VenueState) float64 { return float64(v2FeeBps) / 100 }
