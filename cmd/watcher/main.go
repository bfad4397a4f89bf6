// Command watcher bootstraps one block/event subscriber per configured
// chain, wires it through a per-chain pool manager into the aggregator store
// and price oracle, and registers one in-process message-bus worker per
// chain that answers pool and stats requests. The bus lives inside this
// process; other processes (cmd/aggregator included) cannot reach it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/synnergy-network/marketengine/core/aggregator"
	"github.com/synnergy-network/marketengine/core/bus"
	"github.com/synnergy-network/marketengine/core/dexadapter"
	"github.com/synnergy-network/marketengine/core/oracle"
	"github.com/synnergy-network/marketengine/core/poolmanager"
	"github.com/synnergy-network/marketengine/core/tokenregistry"
	"github.com/synnergy-network/marketengine/core/venue"
	"github.com/synnergy-network/marketengine/core/watcher"
	"github.com/synnergy-network/marketengine/pkg/cache"
	"github.com/synnergy-network/marketengine/pkg/config"
)

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

	store, err := cache.New(cfg.Cache.Dir, 256)
	if err != nil {
		log.WithError(err).Fatal("new static cache")
	}

	msgBus := bus.New(log)
	aggStore := aggregator.New(log)
	priceOracle := oracle.New(log)
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

		adapters, err := buildAdapterRegistry(chainCfg, chainCtx)
		if err != nil {
			chainLog.WithError(err).Error("build adapter registry, skipping chain")
			continue
		}

		pools := poolmanager.New(venue.ChainID(chainCfg.ChainID), adapters, chainLog)
		pools.OnUpdate(func(state venue.VenueState) {
			aggStore.Set(state)
			if snap, err := marshalSnapshot(pools.All()); err == nil {
				if err := store.Save(chainCfg.ChainID, snap); err != nil {
					chainLog.WithError(err).Warn("persist static cache")
				}
			}
		})

		if cached, ok := store.Load(chainCfg.ChainID); ok {
			chainLog.WithField("bytes", len(cached)).Info("found static cache snapshot (warm-start data available)")
		}

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

		registerChainBusWorker(msgBus, chainCfg.Name, pools)
	}

	log.WithField("chains", len(watchers)).Info("watcher running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	for _, w := range watchers {
		w.Stop()
	}
}

// buildAdapterRegistry constructs the V2/V3/V4 adapters for one chain from
// its configured factory/state-view addresses.
func buildAdapterRegistry(chainCfg config.ChainConfig, chainCtx *dexadapter.ChainContext) (*dexadapter.Registry, error) {
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
		return nil, fmt.Errorf("cmd/watcher: chain %s has no configured factories", chainCfg.Name)
	}
	return dexadapter.NewRegistry(v2, v3, v4), nil
}

// registerChainBusWorker registers an in-process bus worker named
// "poolmanager.<chain>" on b that answers "pool" and "stats" requests sent
// through b; nothing in this command sends such requests.
func registerChainBusWorker(b *bus.Bus, chainName string, pools *poolmanager.Manager) {
	worker := b.RegisterWorker("poolmanager."+chainName, 32, 32)
	go func() {
		for req := range worker.Requests() {
			switch req.Topic {
			case "pool":
				id, _ := req.Payload.(string)
				state, ok := pools.Get(id)
				if !ok {
					worker.Reply(bus.Response{CorrelationID: req.CorrelationID, Err: venue.ErrUnknownPool})
					continue
				}
				worker.Reply(bus.Response{CorrelationID: req.CorrelationID, Payload: state})
			case "stats":
				worker.Reply(bus.Response{CorrelationID: req.CorrelationID, Payload: pools.Stats()})
			default:
				worker.Reply(bus.Response{CorrelationID: req.CorrelationID, Err: venue.ErrNoRoute})
			}
		}
	}()
}

func marshalSnapshot(pools []venue.VenueState) ([]byte, error) {
	return json.Marshal(pools)
}
