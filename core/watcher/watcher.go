// Package watcher implements the per-chain block/event subscriber (C5):
// one goroutine per chain that maintains a websocket subscription to new
// logs, flags reorgs signalled by removed logs, debounces bursts of events
// into batches, and feeds decoded PoolEvents to a poolmanager.Manager. It
// does not subscribe to new block headers.
//
// Grounded on the teacher's WatchtowerNode lifecycle (context/cancel,
// buffered alert channel, Start/Stop) repurposed from fraud alerting to
// chain watching.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/synnergy-network/marketengine/core/poolmanager"
	"github.com/synnergy-network/marketengine/core/venue"
)

// State is the watcher's lifecycle state machine.
type State int

const (
	StateInit State = iota
	StateListening
	StateRecovering
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateListening:
		return "listening"
	case StateRecovering:
		return "recovering"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

const (
	debounceWindow   = 50 * time.Millisecond
	degradedAfter    = 30 * time.Second
	deadAfter        = 60 * time.Second
	healthPollPeriod = 5 * time.Second
)

var connectionHealthGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "marketengine_watcher_connection_healthy",
		Help: "1 if the chain watcher's connection is healthy, 0.5 if degraded, 0 if dead.",
	},
	[]string{"chain"},
)

func init() {
	prometheus.MustRegister(connectionHealthGauge)
}

// Stats is a point-in-time snapshot for the admin surface.
type Stats struct {
	ChainID      venue.ChainID
	State        State
	LastBlock    uint64
	LastEventAge time.Duration
}

// Watcher is the per-chain subscriber.
type Watcher struct {
	chainID venue.ChainID
	ws      *WSClient
	pools   *poolmanager.Manager
	limiter *rate.Limiter
	log     *logrus.Entry

	mu            sync.RWMutex
	state         State
	lastBlockSeen uint64
	lastEventAt   time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Watcher. limiter bounds RPC calls this watcher issues
// while recovering/catching up, per spec.md §5's per-chain token bucket.
func New(chainID venue.ChainID, ws *WSClient, pools *poolmanager.Manager, limiter *rate.Limiter, log *logrus.Entry) *Watcher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		chainID: chainID,
		ws:      ws,
		pools:   pools,
		limiter: limiter,
		log:     log.WithField("chain", chainID),
		state:   StateInit,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	w.log.WithField("state", s.String()).Info("watcher: state transition")
}

func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Start subscribes to new logs on the monitored topics and begins the
// debounce/apply loop plus the connection-health monitor. It blocks until
// ctx is cancelled or the connection dies unrecoverably.
func (w *Watcher) Start(ctx context.Context) error {
	notifications, err := w.ws.Subscribe(ctx, "logs", map[string]interface{}{
		// a single-element outer slice ORs every monitored topic at log
		// position 0; eth_subscribe treats an inner slice as "any of".
		"topics": [][]string{topicStrings()},
	})
	if err != nil {
		return fmt.Errorf("watcher: subscribe logs: %w", err)
	}
	w.setState(StateListening)

	go w.healthMonitor(ctx)

	buffer := make([]venue.PoolEvent, 0, 64)
	debounce := time.NewTimer(debounceWindow)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setState(StateTerminated)
			return ctx.Err()

		case raw, ok := <-notifications:
			if !ok {
				w.setState(StateRecovering)
				if err := w.recover(ctx); err != nil {
					w.setState(StateTerminated)
					return err
				}
				continue
			}
			var log types.Log
			if err := json.Unmarshal(raw, &log); err != nil {
				w.log.WithError(err).Warn("watcher: malformed log notification, skipping")
				continue
			}
			if log.Removed {
				w.onReorgRemoval(log)
				continue
			}
			event, ok, err := decodeLog(w.chainID, log)
			if err != nil {
				w.log.WithError(err).Warn("watcher: decode failed, skipping log")
				continue
			}
			if !ok {
				continue
			}
			w.mu.Lock()
			w.lastEventAt = time.Now()
			if log.BlockNumber > w.lastBlockSeen {
				w.lastBlockSeen = log.BlockNumber
			}
			w.mu.Unlock()
			buffer = append(buffer, event)
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(debounceWindow)

		case <-debounce.C:
			if len(buffer) == 0 {
				debounce.Reset(debounceWindow)
				continue
			}
			w.applyBatch(ctx, buffer)
			buffer = buffer[:0]
			debounce.Reset(debounceWindow)
		}
	}
}

// applyBatch hands each buffered event to the pool manager in arrival
// order, logging and continuing past per-event failures so one bad event
// never blocks the rest of the batch.
func (w *Watcher) applyBatch(ctx context.Context, events []venue.PoolEvent) {
	for _, e := range events {
		if err := w.pools.ApplyEvent(ctx, e); err != nil {
			w.log.WithError(err).WithField("pool", e.PoolID()).Debug("watcher: apply event failed")
		}
	}
}

// onReorgRemoval handles a provider-signalled log removal (Removed=true):
// it logs the reorg and sets StateRecovering. It neither undoes the removed
// event nor refreshes any pool; Start keeps applying later events, and the
// state leaves StateRecovering only through recover(), which Start calls
// when the notification channel closes.
func (w *Watcher) onReorgRemoval(log types.Log) {
	w.log.WithField("block", log.BlockNumber).Warn("watcher: reorg detected (log removed)")
	w.setState(StateRecovering)
}

// recover waits for the rate limiter, then issues a bulk refresh of every
// tracked pool to reconcile state after a reorg or a dropped subscription,
// before returning the watcher to StateListening.
func (w *Watcher) recover(ctx context.Context) error {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	w.pools.UpdateAll(ctx, 8)
	if !w.ws.Alive() {
		return venue.ErrConnectionDead
	}
	w.setState(StateListening)
	return nil
}

// healthMonitor polls the time since the last seen event/block and flips
// the connection-health gauge between healthy/degraded/dead thresholds.
func (w *Watcher) healthMonitor(ctx context.Context) {
	ticker := time.NewTicker(healthPollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			age := time.Since(w.lastEventAt)
			lastEventAt := w.lastEventAt
			w.mu.RUnlock()

			if lastEventAt.IsZero() {
				continue
			}
			switch {
			case age >= deadAfter:
				connectionHealthGauge.WithLabelValues(fmt.Sprint(w.chainID)).Set(0)
				w.log.Error("watcher: connection dead, no events received")
			case age >= degradedAfter:
				connectionHealthGauge.WithLabelValues(fmt.Sprint(w.chainID)).Set(0.5)
				w.log.Warn("watcher: connection degraded")
			default:
				connectionHealthGauge.WithLabelValues(fmt.Sprint(w.chainID)).Set(1)
			}
		}
	}
}

// Stop cancels the watcher's context and closes its transport.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.ws.Close()
	w.setState(StateTerminated)
}

// Stats returns a point-in-time snapshot for the admin surface.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Stats{
		ChainID:      w.chainID,
		State:        w.state,
		LastBlock:    w.lastBlockSeen,
		LastEventAge: time.Since(w.lastEventAt),
	}
}

func topicStrings() []string {
	topics := venue.MonitoredTopics()
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.Hex()
	}
	return out
}
