// Package dexadapter implements one adapter per AMM protocol variant
// (V2/V3/V4). Each adapter exposes the same narrow capability set —
// discover, introspect, refresh, apply-event, simulate, quote, fee — so the
// pool manager never needs to know which protocol it is talking to.
package dexadapter

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/synnergy-network/marketengine/core/venue"
)

// TradeQuote is the result of a Quote call: amount, execution price,
// impact, slippage and a confidence score the caller can use to discount
// stale or thin-liquidity quotes.
type TradeQuote struct {
	AmountOut      *uint256.Int
	ExecutionPrice float64
	PriceImpactPct float64
	SlippagePct    float64
	Confidence     float64
}

// Adapter is the capability set every protocol variant implements. It is a
// narrow interface, not a class hierarchy — the pool manager dispatches to
// the right Adapter via Registry.For, never via a type switch on the
// adapter itself.
type Adapter interface {
	// Discover returns zero or more pools for the given on-chain-ordered
	// token pair, with dynamic fields left zero. An empty result means "no
	// pool", not an error.
	Discover(ctx context.Context, pair venue.TokenPairOnChain) ([]venue.VenueState, error)

	// IntrospectFromEvent builds a fully initialised pool from an event for
	// an address the pool manager has never seen before.
	IntrospectFromEvent(ctx context.Context, event venue.PoolEvent) (venue.VenueState, error)

	// Refresh re-reads dynamic fields from chain.
	Refresh(ctx context.Context, state venue.VenueState) error

	// ApplyEvent mutates state in place from a parsed, already
	// order-validated event.
	ApplyEvent(state venue.VenueState, event venue.PoolEvent) error

	// Simulate returns the amount out for a hypothetical swap without
	// mutating state.
	Simulate(state venue.VenueState, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error)

	// Quote is Simulate plus execution-price/impact/slippage/confidence.
	Quote(state venue.VenueState, amountIn *uint256.Int, zeroForOne bool) (TradeQuote, error)

	// FeePercent returns the pool's fee as a display percentage (e.g. 0.3).
	FeePercent(state venue.VenueState) float64
}

// Registry dispatches to the right Adapter by protocol tag.
type Registry struct {
	v2 Adapter
	v3 Adapter
	v4 Adapter
}

func NewRegistry(v2, v3, v4 Adapter) *Registry {
	return &Registry{v2: v2, v3: v3, v4: v4}
}

// For returns the adapter for a given state's protocol, dispatching
// exhaustively on StateKind.
func (r *Registry) For(state venue.VenueState) (Adapter, error) {
	switch state.Kind() {
	case venue.KindDexV2:
		return r.v2, nil
	case venue.KindDexV3:
		return r.v3, nil
	case venue.KindDexV4:
		return r.v4, nil
	default:
		return nil, venue.ErrEventKindMismatch
	}
}

// ForProtocol returns the adapter for an event's declared protocol, used
// when no state exists yet (first-sight introspection).
func (r *Registry) ForProtocol(p venue.Protocol) Adapter {
	switch p {
	case venue.ProtocolV2:
		return r.v2
	case venue.ProtocolV3:
		return r.v3
	case venue.ProtocolV4:
		return r.v4
	default:
		return r.v2
	}
}

// DiscoverAll asks every adapter to discover pools for a pair and
// concatenates the results — used by poolmanager.DiscoverAndRegister.
func (r *Registry) DiscoverAll(ctx context.Context, pair venue.TokenPairOnChain) ([]venue.VenueState, error) {
	var out []venue.VenueState
	for _, a := range []Adapter{r.v2, r.v3, r.v4} {
		if a == nil {
			continue
		}
		found, err := a.Discover(ctx, pair)
		if err != nil {
			return out, err
		}
		out = append(out, found...)
	}
	return out, nil
}
