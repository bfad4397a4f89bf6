package venue

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// StateKind tags the VenueState variant. Dispatch on Kind is exhaustive in
// every switch that touches VenueState — there is no class hierarchy.
type StateKind int

const (
	KindDexV2 StateKind = iota
	KindDexV3
	KindDexV4
	KindCex
)

func (k StateKind) String() string {
	switch k {
	case KindDexV2:
		return "dex-v2"
	case KindDexV3:
		return "dex-v3"
	case KindDexV4:
		return "dex-v4"
	case KindCex:
		return "cex"
	default:
		return "unknown"
	}
}

// VenueState is the common capability set every pool/market variant
// exposes to the pool manager, the aggregator and the oracle. Concrete
// state never back-references its venue or pair objects — only ids.
type VenueState interface {
	Kind() StateKind
	ID() string
	Venue() VenueId
	Pair() PairId
	EventMeta() *EventMetadata
	SetEventMeta(EventMetadata)
	LiquidityUSD() float64
	SetLiquidityUSD(float64)
	Disabled() bool
	SetDisabled(bool)
	// Clone returns an independent deep copy, used when the pool manager
	// hands state out (its read accessors and its update callback, which
	// feeds the aggregator) so the caller does not share its memory.
	Clone() VenueState
}

// base carries the fields every VenueState variant has in common.
type base struct {
	id           string
	venue        VenueId
	pair         PairId
	eventMeta    *EventMetadata
	liquidityUSD float64
	disabled     bool
}

func (b *base) ID() string                  { return b.id }
func (b *base) Venue() VenueId               { return b.venue }
func (b *base) Pair() PairId                 { return b.pair }
func (b *base) EventMeta() *EventMetadata    { return b.eventMeta }
func (b *base) SetEventMeta(m EventMetadata) { b.eventMeta = &m }
func (b *base) LiquidityUSD() float64        { return b.liquidityUSD }
func (b *base) SetLiquidityUSD(v float64)    { b.liquidityUSD = v }
func (b *base) Disabled() bool               { return b.disabled }
func (b *base) SetDisabled(v bool)           { b.disabled = v }

func (b base) cloneBase() base {
	c := b
	if b.eventMeta != nil {
		m := *b.eventMeta
		c.eventMeta = &m
	}
	return c
}

// DexV2PoolState models a constant-product pool (Sync-driven reserves).
type DexV2PoolState struct {
	base
	Pair0 Token
	Pair1 Token
	// Reserve0/Reserve1 are 112-bit unsigned on chain, stored here in a
	// 256-bit word per spec.md's "at least 128-bit integer" requirement.
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
	// FeeBps is parts-per-10000 (V2 convention): 30 == 0.30%.
	FeeBps uint32
}

func NewDexV2PoolState(id string, v VenueId, pair TokenPairOnChain, r0, r1 *uint256.Int) *DexV2PoolState {
	return &DexV2PoolState{
		base:     base{id: id, venue: v, pair: pair.SymbolPairID()},
		Pair0:    pair.Token0,
		Pair1:    pair.Token1,
		Reserve0: r0.Clone(),
		Reserve1: r1.Clone(),
		FeeBps:   30,
	}
}

func (p *DexV2PoolState) Kind() StateKind { return KindDexV2 }

func (p *DexV2PoolState) Clone() VenueState {
	c := &DexV2PoolState{
		base:     p.base.cloneBase(),
		Pair0:    p.Pair0,
		Pair1:    p.Pair1,
		Reserve0: p.Reserve0.Clone(),
		Reserve1: p.Reserve1.Clone(),
		FeeBps:   p.FeeBps,
	}
	return c
}

// SpotPrice0to1 returns token1-per-token0, adjusted for decimals. Display
// only — swap math must use the integer reserves directly.
func (p *DexV2PoolState) SpotPrice0to1() float64 {
	return reserveRatio(p.Reserve1, p.Reserve0, p.Pair1.Decimals, p.Pair0.Decimals)
}

// SpotPrice1to0 returns token0-per-token1.
func (p *DexV2PoolState) SpotPrice1to0() float64 {
	return reserveRatio(p.Reserve0, p.Reserve1, p.Pair0.Decimals, p.Pair1.Decimals)
}

func reserveRatio(numerator, denominator *uint256.Int, numDecimals, denDecimals uint8) float64 {
	if denominator.IsZero() {
		return 0
	}
	numF := new(big.Float).SetInt(numerator.ToBig())
	denF := new(big.Float).SetInt(denominator.ToBig())
	ratio := new(big.Float).Quo(numF, denF)
	scale := pow10Float(int(denDecimals) - int(numDecimals))
	ratio.Mul(ratio, scale)
	f, _ := ratio.Float64()
	return f
}

func pow10Float(exp int) *big.Float {
	if exp == 0 {
		return big.NewFloat(1)
	}
	ten := big.NewFloat(10)
	out := big.NewFloat(1)
	n := exp
	if n < 0 {
		n = -n
	}
	for i := 0; i < n; i++ {
		out.Mul(out, ten)
	}
	if exp < 0 {
		out.Quo(big.NewFloat(1), out)
	}
	return out
}

// TickInfo is one entry of a V3/V4 pool's sorted tick sequence.
type TickInfo struct {
	Tick         int32
	LiquidityNet *big.Int // signed 128-bit range
}

// DexV3PoolState models concentrated liquidity (sqrt-price + tick).
type DexV3PoolState struct {
	base
	Pair0        Token
	Pair1        Token
	SqrtPriceX96 *uint256.Int // 160-bit value stored in a 256-bit word
	Tick         int32        // 24-bit signed range
	Liquidity    *uint256.Int // 128-bit unsigned
	TickSpacing  int32
	FeeBps       uint32 // parts-per-million convention
	Ticks        []TickInfo
}

func NewDexV3PoolState(id string, v VenueId, pair TokenPairOnChain, sqrtP *uint256.Int, tick int32, liquidity *uint256.Int, tickSpacing int32, feeBps uint32) *DexV3PoolState {
	return &DexV3PoolState{
		base:         base{id: id, venue: v, pair: pair.SymbolPairID()},
		Pair0:        pair.Token0,
		Pair1:        pair.Token1,
		SqrtPriceX96: sqrtP.Clone(),
		Tick:         tick,
		Liquidity:    liquidity.Clone(),
		TickSpacing:  tickSpacing,
		FeeBps:       feeBps,
	}
}

func (p *DexV3PoolState) Kind() StateKind { return KindDexV3 }

func (p *DexV3PoolState) Clone() VenueState {
	ticks := make([]TickInfo, len(p.Ticks))
	for i, t := range p.Ticks {
		ticks[i] = TickInfo{Tick: t.Tick, LiquidityNet: new(big.Int).Set(t.LiquidityNet)}
	}
	return &DexV3PoolState{
		base:         p.base.cloneBase(),
		Pair0:        p.Pair0,
		Pair1:        p.Pair1,
		SqrtPriceX96: p.SqrtPriceX96.Clone(),
		Tick:         p.Tick,
		Liquidity:    p.Liquidity.Clone(),
		TickSpacing:  p.TickSpacing,
		FeeBps:       p.FeeBps,
		Ticks:        ticks,
	}
}

// InsertTick inserts or replaces a tick entry, keeping Ticks strictly
// sorted with no duplicate tick values (invariant 3).
func (p *DexV3PoolState) InsertTick(t TickInfo) {
	for i, existing := range p.Ticks {
		if existing.Tick == t.Tick {
			p.Ticks[i] = t
			return
		}
		if existing.Tick > t.Tick {
			p.Ticks = append(p.Ticks, TickInfo{})
			copy(p.Ticks[i+1:], p.Ticks[i:])
			p.Ticks[i] = t
			return
		}
	}
	p.Ticks = append(p.Ticks, t)
}

// DexV4PoolState is a V3 pool plus a 32-byte pool key, optional hooks
// address and a shared pool-manager address.
type DexV4PoolState struct {
	DexV3PoolState
	PoolKey [32]byte
	Hooks   *common.Address
	Manager common.Address
}

func (p *DexV4PoolState) Kind() StateKind { return KindDexV4 }

func (p *DexV4PoolState) Clone() VenueState {
	inner := p.DexV3PoolState.Clone().(*DexV3PoolState)
	out := &DexV4PoolState{DexV3PoolState: *inner, PoolKey: p.PoolKey, Manager: p.Manager}
	if p.Hooks != nil {
		h := *p.Hooks
		out.Hooks = &h
	}
	return out
}

// HasHooks reports whether this pool has a non-zero hooks address.
func (p *DexV4PoolState) HasHooks() bool {
	return p.Hooks != nil && *p.Hooks != (common.Address{})
}

// DepthLevel is one rung of an order-book ladder.
type DepthLevel struct {
	Price float64
	Size  float64
}

// CexMarketState models a centralised-exchange order book snapshot.
type CexMarketState struct {
	base
	Exchange string
	Symbol   string
	BestBid  float64
	BestAsk  float64
	Bids     []DepthLevel
	Asks     []DepthLevel
}

func NewCexMarketState(id string, v VenueId, symbol string) *CexMarketState {
	return &CexMarketState{
		base:     base{id: id, venue: v},
		Exchange: v.Name,
		Symbol:   symbol,
	}
}

func (m *CexMarketState) Kind() StateKind { return KindCex }

func (m *CexMarketState) Clone() VenueState {
	out := &CexMarketState{
		base:     m.base.cloneBase(),
		Exchange: m.Exchange,
		Symbol:   m.Symbol,
		BestBid:  m.BestBid,
		BestAsk:  m.BestAsk,
		Bids:     append([]DepthLevel(nil), m.Bids...),
		Asks:     append([]DepthLevel(nil), m.Asks...),
	}
	return out
}

// CexFeed is the out-of-scope boundary spec.md §1 calls for: bridge/CEX
// order-book ingestion is a collaborator, not part of the core. Only the
// interface is specified here.
type CexFeed interface {
	Subscribe(symbol string) (<-chan CexMarketState, error)
	Close() error
}

// NullCexFeed is a feed that never produces updates; it exists so code
// depending on CexFeed can be constructed and tested without a real
// exchange connection.
type NullCexFeed struct{}

func (NullCexFeed) Subscribe(string) (<-chan CexMarketState, error) {
	ch := make(chan CexMarketState)
	return ch, nil
}

func (NullCexFeed) Close() error { return nil }
