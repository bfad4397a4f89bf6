// Package tokenregistry resolves (chain, address) pairs to canonical token
// metadata, introspecting unknown ERC-20 contracts exactly once and
// memoising the result.
package tokenregistry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/marketengine/core/venue"
)

// Introspector reads the three static ERC-20 view methods from chain. It is
// the one place RPC I/O crosses into this package.
type Introspector interface {
	ReadERC20Metadata(ctx context.Context, chainID venue.ChainID, addr common.Address) (name, symbol string, decimals uint8, err error)
}

// TrustedListLoader supplies the seed trusted-token list. A concrete
// implementation lives at the config boundary (pkg/config), out of core
// scope per spec.md §1.
type TrustedListLoader interface {
	Load() ([]venue.Token, error)
}

// Registry is the per-process token arena: chainId -> address -> Token.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]venue.Token // key: venue.Token.Key()
	introspector Introspector
	memo   *lru.Cache[string, struct{}] // guards at-most-once introspection
	log    *logrus.Entry
}

// New constructs a Registry backed by the given introspector. memoSize
// bounds the in-flight/introspected-address memo (not the token map
// itself, which is unbounded — tokens are never evicted once registered).
func New(introspector Introspector, memoSize int, log *logrus.Entry) (*Registry, error) {
	if memoSize <= 0 {
		memoSize = 4096
	}
	memo, err := lru.New[string, struct{}](memoSize)
	if err != nil {
		return nil, fmt.Errorf("tokenregistry: new memo cache: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		tokens:       make(map[string]venue.Token),
		introspector: introspector,
		memo:         memo,
		log:          log,
	}, nil
}

// SeedTrusted registers every token from a TrustedListLoader as trusted.
func (r *Registry) SeedTrusted(loader TrustedListLoader) error {
	tokens, err := loader.Load()
	if err != nil {
		return fmt.Errorf("tokenregistry: load trusted list: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tokens {
		t.Trusted = true
		r.tokens[t.Key()] = t
	}
	return nil
}

// GetByAddress returns the registered token, if any.
func (r *Registry) GetByAddress(chainID venue.ChainID, addr common.Address) (venue.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[venue.Token{ChainID: chainID, Address: addr}.Key()]
	return t, ok
}

// GetBySymbol is an advisory first-match lookup; symbol is not a primary
// key, so multiple tokens may share one and only the first registered is
// returned.
func (r *Registry) GetBySymbol(chainID venue.ChainID, symbol string) (venue.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.ChainID == chainID && strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return venue.Token{}, false
}

// EnsureRegistered returns the existing token, or introspects it from the
// chain (exactly once, memoised) and registers it untrusted.
func (r *Registry) EnsureRegistered(ctx context.Context, chainID venue.ChainID, addr common.Address) (venue.Token, error) {
	if t, ok := r.GetByAddress(chainID, addr); ok {
		return t, nil
	}

	key := venue.Token{ChainID: chainID, Address: addr}.Key()

	r.mu.Lock()
	if _, inflight := r.memo.Get(key); inflight {
		r.mu.Unlock()
		if t, ok := r.GetByAddress(chainID, addr); ok {
			return t, nil
		}
		return venue.Token{}, fmt.Errorf("tokenregistry: %s: %w", key, venue.ErrIntrospectionFailed)
	}
	r.memo.Add(key, struct{}{})
	r.mu.Unlock()

	name, symbol, decimals, err := r.introspector.ReadERC20Metadata(ctx, chainID, addr)
	if err != nil {
		r.log.WithError(err).WithField("token", key).Warn("erc20 introspection failed")
		return venue.Token{}, fmt.Errorf("tokenregistry: introspect %s: %w", key, venue.ErrIntrospectionFailed)
	}

	t := venue.Token{
		ChainID:  chainID,
		Address:  addr,
		Symbol:   symbol,
		Name:     name,
		Decimals: decimals,
		Trusted:  false,
	}

	r.mu.Lock()
	r.tokens[key] = t
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"token": key, "symbol": symbol}).Warn("registered untrusted token via introspection")
	return t, nil
}

// Count returns the number of registered tokens, used by admin stats.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
