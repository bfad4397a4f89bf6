// Package aggregator is the cross-chain read model (C6): one process-wide
// store that every watcher's pool manager feeds and every query surface
// reads from. It holds a primary id->state map plus secondary indices for
// the lookup shapes spec.md §4.6 calls out, and notifies registered
// listeners synchronously, in registration order, on every mutation.
package aggregator

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/marketengine/core/venue"
)

// ChangeType distinguishes a brand-new id from a replace of an existing one.
// Removal is still carried by the separate removed bool on Listener — a
// ChangeType is only meaningful when removed is false.
type ChangeType int

const (
	ChangeAdd ChangeType = iota
	ChangeUpdate
)

func (c ChangeType) String() string {
	if c == ChangeAdd {
		return "add"
	}
	return "update"
}

// Listener is notified after a state is set or removed. update is nil on
// removal. change is only meaningful when removed is false.
type Listener func(id string, update venue.VenueState, change ChangeType, removed bool)

// Stats is a point-in-time snapshot for the admin surface.
type Stats struct {
	Total        int
	Disabled     int
	Chains       int
	Tokens       int
	Venues       int
	Pairs        int
	AddressPairs int
}

// Store is the multi-index aggregator.
type Store struct {
	mu  sync.RWMutex
	log *logrus.Entry

	primary map[string]venue.VenueState

	byChain      map[venue.ChainID]map[string]struct{}
	byToken      map[string]map[string]struct{} // token.Key() -> ids
	byVenue      map[string]map[string]struct{} // venue.VenueId.String() -> ids
	byPairIDStr  map[string]map[string]struct{} // string(PairId) -> ids, sorted by symbol
	byAddrPair   map[string]map[string]struct{} // sorted "chain:addr0-addr1" -> ids

	listeners []Listener
}

func New(log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		log:         log,
		primary:     make(map[string]venue.VenueState),
		byChain:     make(map[venue.ChainID]map[string]struct{}),
		byToken:     make(map[string]map[string]struct{}),
		byVenue:     make(map[string]map[string]struct{}),
		byPairIDStr: make(map[string]map[string]struct{}),
		byAddrPair:  make(map[string]map[string]struct{}),
	}
}

// Register adds a listener. Listeners are invoked in registration order,
// synchronously, on the calling goroutine — callers must not block.
func (s *Store) Register(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func addTo(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeFrom(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func tokenKeys(s venue.VenueState) []string {
	switch p := s.(type) {
	case *venue.DexV2PoolState:
		return []string{p.Pair0.Key(), p.Pair1.Key()}
	case *venue.DexV3PoolState:
		return []string{p.Pair0.Key(), p.Pair1.Key()}
	case *venue.DexV4PoolState:
		return []string{p.Pair0.Key(), p.Pair1.Key()}
	default:
		return nil
	}
}

// addrPairKey returns the sorted-address-pair grouping key for a pool state:
// the two tokens' registry keys (chain-qualified address), lexicographically
// sorted and joined. Unlike PairId it is never ambiguous across chains or
// wrapped/rebranded tokens sharing a symbol. Returns "" for non-pool states.
func addrPairKey(s venue.VenueState) string {
	keys := tokenKeys(s)
	if len(keys) != 2 {
		return ""
	}
	a, b := keys[0], keys[1]
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Set inserts or replaces a state and fans out to listeners. The argument
// is cloned on entry so no two units ever retain the same pointer.
func (s *Store) Set(state venue.VenueState) {
	cp := state.Clone()
	id := cp.ID()

	s.mu.Lock()
	_, existed := s.removeIndicesLocked(id)
	s.primary[id] = cp

	chainSet, ok := s.byChain[cp.Venue().ChainID]
	if !ok {
		chainSet = make(map[string]struct{})
		s.byChain[cp.Venue().ChainID] = chainSet
	}
	chainSet[id] = struct{}{}

	addTo(s.byVenue, cp.Venue().String(), id)
	addTo(s.byPairIDStr, string(cp.Pair()), id)
	if key := addrPairKey(cp); key != "" {
		addTo(s.byAddrPair, key, id)
	}
	for _, tk := range tokenKeys(cp) {
		addTo(s.byToken, tk, id)
	}
	s.mu.Unlock()

	change := ChangeAdd
	if existed {
		change = ChangeUpdate
	}
	s.notify(id, cp, change, false)
}

// SetBatch applies multiple updates, notifying listeners once per state in
// the order given.
func (s *Store) SetBatch(states []venue.VenueState) {
	for _, st := range states {
		s.Set(st)
	}
}

// Remove deletes a state by id and notifies listeners with removed=true.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	_, ok := s.removeIndicesLocked(id)
	s.mu.Unlock()
	if ok {
		s.notify(id, nil, ChangeUpdate, true)
	}
}

// removeIndicesLocked drops id from every secondary index ahead of a
// re-insert or removal. Caller holds s.mu. The bool return reports whether
// id previously existed, letting Set distinguish an add from an update.
func (s *Store) removeIndicesLocked(id string) (venue.VenueState, bool) {
	old, ok := s.primary[id]
	if !ok {
		return nil, false
	}
	if set, ok := s.byChain[old.Venue().ChainID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(s.byChain, old.Venue().ChainID)
		}
	}
	removeFrom(s.byVenue, old.Venue().String(), id)
	removeFrom(s.byPairIDStr, string(old.Pair()), id)
	if key := addrPairKey(old); key != "" {
		removeFrom(s.byAddrPair, key, id)
	}
	for _, tk := range tokenKeys(old) {
		removeFrom(s.byToken, tk, id)
	}
	delete(s.primary, id)
	return old, true
}

// SetDisabled toggles a pool's disabled flag in place and re-notifies.
func (s *Store) SetDisabled(id string, disabled bool) bool {
	s.mu.Lock()
	st, ok := s.primary[id]
	if ok {
		st.SetDisabled(disabled)
	}
	s.mu.Unlock()
	if ok {
		s.notify(id, st.Clone(), ChangeUpdate, false)
	}
	return ok
}

func (s *Store) notify(id string, update venue.VenueState, change ChangeType, removed bool) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.WithField("panic", r).Error("aggregator: listener panicked, continuing")
				}
			}()
			l(id, update, change, removed)
		}()
	}
}

// Get returns a clone of the state for id.
func (s *Store) Get(id string) (venue.VenueState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.primary[id]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// GetActive returns a clone of every non-disabled state.
func (s *Store) GetActive() []venue.VenueState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]venue.VenueState, 0, len(s.primary))
	for _, st := range s.primary {
		if !st.Disabled() {
			out = append(out, st.Clone())
		}
	}
	return out
}

// ByChain returns clones of every state on a given chain.
func (s *Store) ByChain(chainID venue.ChainID) []venue.VenueState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byChain[chainID]
	out := make([]venue.VenueState, 0, len(ids))
	for id := range ids {
		out = append(out, s.primary[id].Clone())
	}
	return out
}

// ByPair returns clones of every state sharing the given symbol-pair id.
func (s *Store) ByPair(pair venue.PairId) []venue.VenueState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPairIDStr[string(pair)]
	out := make([]venue.VenueState, 0, len(ids))
	for id := range ids {
		out = append(out, s.primary[id].Clone())
	}
	return out
}

// ByAddressPair returns clones of every state sharing the given pair of
// on-chain token addresses, irrespective of order. Unlike ByPair this never
// conflates two different tokens that happen to share a symbol.
func (s *Store) ByAddressPair(a, b venue.Token) []venue.VenueState {
	keyA, keyB := a.Key(), b.Key()
	if keyA > keyB {
		keyA, keyB = keyB, keyA
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byAddrPair[keyA+"|"+keyB]
	out := make([]venue.VenueState, 0, len(ids))
	for id := range ids {
		out = append(out, s.primary[id].Clone())
	}
	return out
}

// ByToken returns clones of every state referencing the given token.
func (s *Store) ByToken(key string) []venue.VenueState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byToken[key]
	out := make([]venue.VenueState, 0, len(ids))
	for id := range ids {
		out = append(out, s.primary[id].Clone())
	}
	return out
}

// Stats returns a point-in-time snapshot for the admin surface.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	disabled := 0
	for _, st := range s.primary {
		if st.Disabled() {
			disabled++
		}
	}
	return Stats{
		Total:        len(s.primary),
		Disabled:     disabled,
		Chains:       len(s.byChain),
		Tokens:       len(s.byToken),
		Venues:       len(s.byVenue),
		Pairs:        len(s.byPairIDStr),
		AddressPairs: len(s.byAddrPair),
	}
}
