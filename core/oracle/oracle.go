// Package oracle derives a USD price for every known token by flood-filling
// outward from a set of stable-coin anchors across the pools the
// aggregator reports, per spec.md §4.7. It holds no chain state of its own
// — it only reacts to aggregator updates.
package oracle

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/marketengine/core/ammmath"
	"github.com/synnergy-network/marketengine/core/venue"
)

// tokenKey matches venue.Token.Key(): "<chainId>:<lowercased address>".
type tokenKey = string

// Oracle holds one price-per-token map, seeded with anchors and kept fresh
// by OnPoolsUpdated.
type Oracle struct {
	mu      sync.RWMutex
	log     *logrus.Entry
	prices  map[tokenKey]float64 // USD price
	anchors map[tokenKey]float64
}

func New(log *logrus.Entry) *Oracle {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Oracle{
		log:     log,
		prices:  make(map[tokenKey]float64),
		anchors: make(map[tokenKey]float64),
	}
}

// SeedAnchor fixes a stable-coin's USD price, e.g. USDC at 1.0. Anchors are
// never overwritten by propagation.
func (o *Oracle) SeedAnchor(token venue.Token, usdPrice float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.anchors[token.Key()] = usdPrice
	o.prices[token.Key()] = usdPrice
}

// PriceOf returns the current USD price for a token, if known.
func (o *Oracle) PriceOf(token venue.Token) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.prices[token.Key()]
	return p, ok
}

// Count returns the number of tokens with a known price, for admin stats.
func (o *Oracle) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.prices)
}

// OnPoolsUpdated is the aggregator.Listener hook: every time a pool
// changes, re-run flood-fill passes seeded from whatever anchors and
// already-priced tokens exist, deriving prices for counterpart tokens from
// each pool's spot price, and updating LiquidityUSD along the way. Each
// call is idempotent and only ever adds newly-derivable prices — repeated
// calls as more pools arrive converge the known set incrementally rather
// than requiring one fixed-point pass over the whole universe.
func (o *Oracle) OnPoolsUpdated(pools []venue.VenueState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for pass, changed := 0, true; changed && pass < len(pools)+1; pass++ {
		changed = false
		for _, p := range pools {
			if o.propagateOne(p) {
				changed = true
			}
		}
	}

	for _, p := range pools {
		o.updateLiquidityUSD(p)
	}
}

// propagateOne attempts to price one side of a pool from the other side's
// known price and the pool's spot price. Returns true if it newly priced a
// token.
func (o *Oracle) propagateOne(p venue.VenueState) bool {
	tok0, tok1, spot0to1, ok := spotPriceOf(p)
	if !ok {
		return false
	}

	price0, known0 := o.prices[tok0.Key()]
	price1, known1 := o.prices[tok1.Key()]

	switch {
	case known0 && !known1:
		if spot0to1 == 0 {
			return false
		}
		o.prices[tok1.Key()] = price0 / spot0to1
		return true
	case known1 && !known0:
		if spot0to1 == 0 {
			return false
		}
		o.prices[tok0.Key()] = price1 * spot0to1
		return true
	default:
		return false
	}
}

func (o *Oracle) updateLiquidityUSD(p venue.VenueState) {
	tok0, tok1, _, ok := spotPriceOf(p)
	if !ok {
		return
	}
	price0, ok0 := o.prices[tok0.Key()]
	price1, ok1 := o.prices[tok1.Key()]
	if !ok0 || !ok1 {
		return
	}

	var usd float64
	switch st := p.(type) {
	case *venue.DexV2PoolState:
		r0 := reserveToFloat(st.Reserve0, tok0.Decimals)
		r1 := reserveToFloat(st.Reserve1, tok1.Decimals)
		usd = r0*price0 + r1*price1
	case *venue.DexV3PoolState:
		r0, r1, err := ammmath.VirtualReserves(st.SqrtPriceX96, st.Liquidity)
		if err != nil {
			return
		}
		usd = reserveToFloat(r0, tok0.Decimals)*price0 + reserveToFloat(r1, tok1.Decimals)*price1
	case *venue.DexV4PoolState:
		r0, r1, err := ammmath.VirtualReserves(st.SqrtPriceX96, st.Liquidity)
		if err != nil {
			return
		}
		usd = reserveToFloat(r0, tok0.Decimals)*price0 + reserveToFloat(r1, tok1.Decimals)*price1
	default:
		return
	}
	p.SetLiquidityUSD(usd)
}

// spotPriceOf extracts (token0, token1, price-of-token0-in-token1, ok)
// uniformly across the three DEX pool kinds.
func spotPriceOf(p venue.VenueState) (venue.Token, venue.Token, float64, bool) {
	switch st := p.(type) {
	case *venue.DexV2PoolState:
		return st.Pair0, st.Pair1, st.SpotPrice0to1(), true
	case *venue.DexV3PoolState:
		return st.Pair0, st.Pair1, ammmath.SqrtPriceX96ToPrice(st.SqrtPriceX96, st.Pair0.Decimals, st.Pair1.Decimals), true
	case *venue.DexV4PoolState:
		return st.Pair0, st.Pair1, ammmath.SqrtPriceX96ToPrice(st.SqrtPriceX96, st.Pair0.Decimals, st.Pair1.Decimals), true
	default:
		return venue.Token{}, venue.Token{}, 0, false
	}
}

// reserveToFloat converts an integer reserve into a human-scale float by
// dividing out decimals, for USD liquidity estimation only.
func reserveToFloat(r *uint256.Int, decimals uint8) float64 {
	f := new(big.Float).SetInt(r.ToBig())
	scale := new(big.Float).SetFloat64(1)
	ten := big.NewFloat(10)
	for i := 0; i < int(decimals); i++ {
		scale.Mul(scale, ten)
	}
	out, _ := new(big.Float).Quo(f, scale).Float64()
	return out
}
