// Command aggregator runs the same per-chain watcher/pool-manager pipeline
// as cmd/watcher but additionally exposes the aggregator store, token
// registry and price oracle over a read-only HTTP admin surface (C6/C7).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/synnergy-network/marketengine/core/aggregator"
	"github.com/synnergy-network/marketengine/core/dexadapter"
	"github.com/synnergy-network/marketengine/core/oracle"
	"github.com/synnergy-network/marketengine/core/poolmanager"
	"github.com/synnergy-network/marketengine/core/tokenregistry"
	"github.com/synnergy-network/marketengine/core/venue"
	"github.com/synnergy-network/marketengine/core/watcher"
	"github.com/synnergy-network/marketengine/pkg/config"
)

// stablecoinAnchors seeds the oracle with USD-pegged tokens per chain by
// symbol; the oracle propagates USD prices outward from these anchors
// through every pool that touches them.
var stablecoinAnchors = []string{"USDC", "USDT", "DAI"}

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	introspector, err := tokenregistry.NewRPCIntrospector()
	if err != nil {
		log.WithError(err).Fatal("new rpc introspector")
	}
	tokens, err := tokenregistry.New(introspector, cfg.TokenRegistry.MemoSize, log)
	if err != nil {
		log.WithError(err).Fatal("new token registry")
	}
	if cfg.TokenRegistry.TrustedListPath != "" {
		loader := config.YAMLTrustedListLoader{Path: cfg.TokenRegistry.TrustedListPath}
		if err := tokens.SeedTrusted(loader); err != nil {
			log.WithError(err).Fatal("seed trusted token list")
		}
	}

	aggStore := aggregator.New(log)
	priceOracle := oracle.New(log)
	seedAnchors(tokens, priceOracle, cfg.Chains)

	aggStore.Register(func(id string, update venue.VenueState, change aggregator.ChangeType, removed bool) {
		if removed {
			return
		}
		priceOracle.OnPoolsUpdated([]venue.VenueState{update})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchers := make([]*watcher.Watcher, 0, len(cfg.Chains))
	for _, chainCfg := range cfg.Chains {
		chainLog := log.WithField("chain", chainCfg.Name)

		rpcClient, err := ethclient.DialContext(ctx, chainCfg.RPCEndpoint)
		if err != nil {
			chainLog.WithError(err).Error("dial rpc endpoint, skipping chain")
			continue
		}
		introspector.RegisterClient(venue.ChainID(chainCfg.ChainID), rpcClient)

		limiter := rate.NewLimiter(rate.Limit(chainCfg.RequestsPerSecond), chainCfg.MaxConcurrent)
		chainCtx := &dexadapter.ChainContext{
			ChainID: chainCfg.ChainID,
			Client:  rpcClient,
			Tokens:  tokens,
			Limiter: limiter,
			Log:     chainLog,
		}

		var v2, v3, v4 dexadapter.Adapter
		if len(chainCfg.V2Factories) > 0 {
			v2 = dexadapter.NewV2Adapter(chainCfg.Name+"-v2", common.HexToAddress(chainCfg.V2Factories[0]), chainCtx)
		}
		if len(chainCfg.V3Factories) > 0 {
			v3 = dexadapter.NewV3Adapter(chainCfg.Name+"-v3", common.HexToAddress(chainCfg.V3Factories[0]), chainCtx)
		}
		if len(chainCfg.V4StateViews) > 0 {
			v4 = dexadapter.NewV4Adapter(chainCfg.Name+"-v4", common.HexToAddress(chainCfg.V4StateViews[0]), common.Address{}, chainCtx)
		}
		if v2 == nil && v3 == nil && v4 == nil {
			chainLog.Warn("no configured factories, skipping chain")
			continue
		}
		adapters := dexadapter.NewRegistry(v2, v3, v4)

		pools := poolmanager.New(venue.ChainID(chainCfg.ChainID), adapters, chainLog)
		pools.OnUpdate(func(state venue.VenueState) { aggStore.Set(state) })

		ws, err := watcher.DialWS(ctx, chainCfg.WSEndpoint)
		if err != nil {
			chainLog.WithError(err).Error("dial websocket endpoint, skipping chain")
			continue
		}
		w := watcher.New(venue.ChainID(chainCfg.ChainID), ws, pools, limiter, chainLog)
		go func() {
			if err := w.Start(ctx); err != nil {
				chainLog.WithError(err).Error("watcher stopped")
			}
		}()
		watchers = append(watchers, w)
	}

	admin := newAdminServer(aggStore, tokens, priceOracle, watchers, log)
	addr := cfg.Admin.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:8090"
	}
	go func() {
		log.WithField("addr", addr).Info("admin http surface listening")
		if err := admin.ListenAndServe(addr); err != nil {
			log.WithError(err).Fatal("admin http server")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	for _, w := range watchers {
		w.Stop()
	}
}

// seedAnchors registers the configured stablecoin symbols as $1 anchors for
// every chain, giving the oracle a starting point to flood-fill prices from.
func seedAnchors(tokens *tokenregistry.Registry, priceOracle *oracle.Oracle, chains []config.ChainConfig) {
	for _, chainCfg := range chains {
		for _, symbol := range stablecoinAnchors {
			tok, ok := tokens.GetBySymbol(venue.ChainID(chainCfg.ChainID), symbol)
			if !ok {
				continue
			}
			priceOracle.SeedAnchor(tok, 1.0)
		}
	}
}
