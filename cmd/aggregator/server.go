package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/marketengine/core/aggregator"
	"github.com/synnergy-network/marketengine/core/oracle"
	"github.com/synnergy-network/marketengine/core/tokenregistry"
	"github.com/synnergy-network/marketengine/core/venue"
	"github.com/synnergy-network/marketengine/core/watcher"
)

// adminServer exposes the aggregator store, token registry, price oracle
// and watcher health over a read-only HTTP admin surface.
type adminServer struct {
	router   *chi.Mux
	store    *aggregator.Store
	tokens   *tokenregistry.Registry
	prices   *oracle.Oracle
	watchers []*watcher.Watcher
	log      *logrus.Entry
}

func newAdminServer(store *aggregator.Store, tokens *tokenregistry.Registry, prices *oracle.Oracle, watchers []*watcher.Watcher, log *logrus.Entry) *adminServer {
	s := &adminServer{router: chi.NewRouter(), store: store, tokens: tokens, prices: prices, watchers: watchers, log: log}
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Get("/pools", s.handleListPools)
	s.router.Get("/pools/{id}", s.handleGetPool)
	s.router.Get("/tokens/{chain}/{addr}", s.handleGetToken)
	s.router.Get("/watchers", s.handleWatchers)
	s.router.Get("/stats", s.handleStats)
	return s
}

func (s *adminServer) handleWatchers(w http.ResponseWriter, r *http.Request) {
	out := make([]watcher.Stats, 0, len(s.watchers))
	for _, wt := range s.watchers {
		out = append(out, wt.Stats())
	}
	writeJSON(w, out)
}

func (s *adminServer) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

func (s *adminServer) handleListPools(w http.ResponseWriter, r *http.Request) {
	chainParam := r.URL.Query().Get("chain")
	var pools []venue.VenueState
	if chainParam != "" {
		chainID, err := strconv.ParseUint(chainParam, 10, 64)
		if err != nil {
			http.Error(w, "invalid chain", http.StatusBadRequest)
			return
		}
		pools = s.store.ByChain(venue.ChainID(chainID))
	} else {
		pools = s.store.GetActive()
	}
	writeJSON(w, pools)
}

func (s *adminServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pool, ok := s.store.Get(id)
	if !ok {
		http.Error(w, "pool not found", http.StatusNotFound)
		return
	}
	writeJSON(w, pool)
}

func (s *adminServer) handleGetToken(w http.ResponseWriter, r *http.Request) {
	chainParam := chi.URLParam(r, "chain")
	addr := chi.URLParam(r, "addr")
	chainID, err := strconv.ParseUint(chainParam, 10, 64)
	if err != nil {
		http.Error(w, "invalid chain", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(addr) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	tok, ok := s.tokens.GetByAddress(venue.ChainID(chainID), common.HexToAddress(addr))
	if !ok {
		http.Error(w, "token not known", http.StatusNotFound)
		return
	}
	price, hasPrice := s.prices.PriceOf(tok)
	resp := struct {
		venue.Token
		USDPrice    float64 `json:"usd_price,omitempty"`
		HasUSDPrice bool    `json:"has_usd_price"`
	}{Token: tok, USDPrice: price, HasUSDPrice: hasPrice}
	writeJSON(w, resp)
}

func (s *adminServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"store":   s.store.Stats(),
		"tokens":  s.tokens.Count(),
		"anchors": s.prices.Count(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
