// Package poolmanager owns one chain's pool state: looking pools up or
// introspecting them cold, applying ordered events, and bulk-refreshing
// from chain. One Manager instance belongs to exactly one chain's watcher
// goroutine — it is not safe to share across chains.
package poolmanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/synnergy-network/marketengine/core/dexadapter"
	"github.com/synnergy-network/marketengine/core/venue"
)

// Stats is a point-in-time snapshot for the admin surface.
type Stats struct {
	ChainID    venue.ChainID
	PoolCount  int
	Disabled   int
}

// Manager is the per-chain pool store described in spec.md §4.4.
type Manager struct {
	chainID  venue.ChainID
	adapters *dexadapter.Registry
	log      *logrus.Entry

	mu                  sync.RWMutex
	pools               map[string]venue.VenueState
	latestPoolEventMeta map[string]venue.EventMetadata

	// onUpdate is invoked after any pool is created or mutated, outside the
	// lock, so the aggregator (C6) can be wired in without poolmanager
	// depending on it directly.
	onUpdate func(venue.VenueState)
}

func New(chainID venue.ChainID, adapters *dexadapter.Registry, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		chainID:             chainID,
		adapters:            adapters,
		log:                 log.WithField("chain", chainID),
		pools:               make(map[string]venue.VenueState),
		latestPoolEventMeta: make(map[string]venue.EventMetadata),
	}
}

// OnUpdate registers the callback fired whenever a pool is created or
// mutated. Only one listener is supported here — poolmanager is a single
// publisher, fan-out belongs to whatever it is wired to (usually the
// aggregator).
func (m *Manager) OnUpdate(fn func(venue.VenueState)) { m.onUpdate = fn }

// Get returns the pool for id, if known.
func (m *Manager) Get(id string) (venue.VenueState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.pools[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// All returns a structural-copy snapshot of every pool.
func (m *Manager) All() []venue.VenueState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]venue.VenueState, 0, len(m.pools))
	for _, s := range m.pools {
		out = append(out, s.Clone())
	}
	return out
}

func (m *Manager) register(s venue.VenueState) {
	m.mu.Lock()
	m.pools[s.ID()] = s
	if meta := s.EventMeta(); meta != nil {
		m.latestPoolEventMeta[s.ID()] = *meta
	}
	m.mu.Unlock()
	if m.onUpdate != nil {
		m.onUpdate(s.Clone())
	}
}

// DiscoverAndRegister asks every adapter to discover pools for pair and
// registers whatever it finds.
func (m *Manager) DiscoverAndRegister(ctx context.Context, pair venue.TokenPairOnChain) ([]venue.VenueState, error) {
	found, err := m.adapters.DiscoverAll(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("poolmanager: discover %s: %w", pair.DerivedKey(), err)
	}
	for _, s := range found {
		m.register(s)
	}
	return found, nil
}

// ApplyEvent is the C4 core operation from spec.md §4.4:
//  1. look the pool up, introspecting cold if unknown;
//  2. drop the event if it is not newer than the last applied event
//     (ErrOutdatedEvent);
//  3. apply it via the protocol adapter;
//  4. record the new latest event metadata and notify listeners.
//
// Mint/Burn/ModifyLiquidity events are accepted but never mutate state
// (PoolEvent.AppliesToState reports false for them) — they still update
// latestPoolEventMeta so ordering checks against later events stay correct.
func (m *Manager) ApplyEvent(ctx context.Context, event venue.PoolEvent) error {
	id := event.PoolID()

	m.mu.RLock()
	existing, known := m.pools[id]
	lastMeta, hasMeta := m.latestPoolEventMeta[id]
	m.mu.RUnlock()

	if hasMeta && !event.Meta.NewerThan(lastMeta) {
		return venue.ErrOutdatedEvent
	}

	if !known {
		adapter := m.adapters.ForProtocol(event.Protocol())
		if adapter == nil {
			return venue.ErrUnknownPool
		}
		introspected, err := adapter.IntrospectFromEvent(ctx, event)
		if err != nil {
			return fmt.Errorf("poolmanager: introspect %s: %w", id, err)
		}
		existing = introspected
	}

	if event.AppliesToState() {
		adapter, err := m.adapters.For(existing)
		if err != nil {
			return err
		}
		if err := adapter.ApplyEvent(existing, event); err != nil {
			return fmt.Errorf("poolmanager: apply event %s: %w", id, err)
		}
	}

	existing.SetEventMeta(event.Meta)
	m.register(existing)
	return nil
}

// AreFresh reports whether every tracked pool's latest event metadata is at
// or beyond the given watermark — used by the watcher to decide whether a
// reorg-recovery replay has caught the manager up.
func (m *Manager) AreFresh(watermark venue.EventMetadata) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, meta := range m.latestPoolEventMeta {
		_ = id
		if meta.Compare(watermark) < 0 {
			return false
		}
	}
	return true
}

// UpdateAll refreshes every tracked pool from chain with bounded
// concurrency, logging and skipping individual failures rather than
// aborting the batch.
func (m *Manager) UpdateAll(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 8
	}
	m.mu.RLock()
	targets := make([]venue.VenueState, 0, len(m.pools))
	for _, s := range m.pools {
		targets = append(targets, s)
	}
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, s := range targets {
		s := s
		g.Go(func() error {
			adapter, err := m.adapters.For(s)
			if err != nil {
				m.log.WithError(err).WithField("pool", s.ID()).Warn("poolmanager: no adapter for pool, skipping")
				return nil
			}
			if err := adapter.Refresh(gctx, s); err != nil {
				m.log.WithError(err).WithField("pool", s.ID()).Warn("poolmanager: refresh failed")
				return nil
			}
			m.register(s)
			return nil
		})
	}
	_ = g.Wait()
}

// Stats returns a point-in-time snapshot for the admin surface.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	disabled := 0
	for _, s := range m.pools {
		if s.Disabled() {
			disabled++
		}
	}
	return Stats{ChainID: m.chainID, PoolCount: len(m.pools), Disabled: disabled}
}
