// Package bus implements the in-process request/response/event message bus
// (C8): named workers, correlation-id request/response with timeout and
// cancellation, and fire-and-forget events. Payloads are delivered as
// given, not copied. The cmd binaries register bus workers, but pool
// updates reach the aggregator store and the oracle through direct
// callbacks (poolmanager.OnUpdate, aggregator listeners), not through the
// bus.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/marketengine/core/venue"
)

// defaultTimeout is applied to a Request when the caller doesn't specify
// one, per spec.md §8.
const defaultTimeout = 10000 * time.Millisecond

// Request is sent to exactly one named worker and expects exactly one
// Response carrying the same CorrelationID.
type Request struct {
	CorrelationID string
	Topic         string
	Payload       interface{}
}

// Response answers a Request.
type Response struct {
	CorrelationID string
	Payload       interface{}
	Err           error
}

// Event is a fire-and-forget broadcast with no expected reply.
type Event struct {
	Topic   string
	Payload interface{}
}

// pendingRequestsGauge tracks in-flight requests per worker for the admin
// surface.
var pendingRequestsGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "marketengine_bus_pending_requests",
		Help: "Number of requests awaiting a response, per worker.",
	},
	[]string{"worker"},
)

func init() {
	prometheus.MustRegister(pendingRequestsGauge)
}

// Stats is a point-in-time snapshot for the admin surface.
type Stats struct {
	Pending int
}

// pendingEntry is one outstanding request's wait slot.
type pendingEntry struct {
	respCh chan Response
}

// Worker is one named endpoint on the bus: it has an inbound request
// channel, an inbound event channel, and a pending-request table keyed by
// correlation id for matching responses it sends back to callers.
type Worker struct {
	name string
	log  *logrus.Entry

	requests chan Request
	events   chan Event

	mu      sync.Mutex
	pending map[string]*pendingEntry
}

// Bus routes requests/events to named workers.
type Bus struct {
	mu      sync.RWMutex
	workers map[string]*Worker
	log     *logrus.Entry
}

func New(log *logrus.Entry) *Bus {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Bus{workers: make(map[string]*Worker), log: log}
}

// RegisterWorker creates and registers a named worker with the given
// inbound buffer sizes.
func (b *Bus) RegisterWorker(name string, requestBuf, eventBuf int) *Worker {
	w := &Worker{
		name:     name,
		log:      b.log.WithField("worker", name),
		requests: make(chan Request, requestBuf),
		events:   make(chan Event, eventBuf),
		pending:  make(map[string]*pendingEntry),
	}
	b.mu.Lock()
	b.workers[name] = w
	b.mu.Unlock()
	return w
}

// Unregister removes a worker and fails every request still pending a
// response, per spec.md's worker-termination sweep.
func (b *Bus) Unregister(name string) {
	b.mu.Lock()
	w, ok := b.workers[name]
	delete(b.workers, name)
	b.mu.Unlock()
	if !ok {
		return
	}
	w.mu.Lock()
	for id, entry := range w.pending {
		entry.respCh <- Response{CorrelationID: id, Err: venue.ErrWorkerTerminated}
		delete(w.pending, id)
	}
	w.mu.Unlock()
	pendingRequestsGauge.WithLabelValues(name).Set(0)
}

// Requests returns the worker's inbound request channel for its run loop
// to range over.
func (w *Worker) Requests() <-chan Request { return w.requests }

// Events returns the worker's inbound event channel.
func (w *Worker) Events() <-chan Event { return w.events }

// Reply completes a Request this worker received, matching it by
// correlation id and delivering the Response to whichever goroutine is
// blocked in Bus.Send/SendTimeout.
func (w *Worker) Reply(resp Response) {
	w.mu.Lock()
	entry, ok := w.pending[resp.CorrelationID]
	if ok {
		delete(w.pending, resp.CorrelationID)
	}
	w.mu.Unlock()
	pendingRequestsGauge.WithLabelValues(w.name).Set(float64(w.pendingCount()))
	if !ok {
		return // late or duplicate reply; correlation id already swept
	}
	entry.respCh <- resp
}

func (w *Worker) pendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Stats returns this worker's pending-request count.
func (w *Worker) Stats() Stats { return Stats{Pending: w.pendingCount()} }

// Send delivers a request to the named worker and blocks for its response,
// subject to ctx and the default 10s timeout.
func (b *Bus) Send(ctx context.Context, workerName, topic string, payload interface{}) (interface{}, error) {
	return b.SendTimeout(ctx, workerName, topic, payload, defaultTimeout)
}

// SendTimeout is Send with an explicit timeout.
func (b *Bus) SendTimeout(ctx context.Context, workerName, topic string, payload interface{}, timeout time.Duration) (interface{}, error) {
	b.mu.RLock()
	w, ok := b.workers[workerName]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("bus: no worker %q: %w", workerName, venue.ErrNoRoute)
	}

	id := uuid.NewString()
	respCh := make(chan Response, 1)

	w.mu.Lock()
	w.pending[id] = &pendingEntry{respCh: respCh}
	w.mu.Unlock()
	pendingRequestsGauge.WithLabelValues(workerName).Set(float64(w.pendingCount()))

	req := Request{CorrelationID: id, Topic: topic, Payload: payload}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case w.requests <- req:
	case <-cctx.Done():
		b.sweep(w, id)
		return nil, b.timeoutOrCancel(cctx)
	}

	select {
	case resp := <-respCh:
		if resp.Err != nil {
			return nil, resp.Err
		}
		return resp.Payload, nil
	case <-cctx.Done():
		b.sweep(w, id)
		return nil, b.timeoutOrCancel(cctx)
	}
}

func (b *Bus) timeoutOrCancel(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return venue.ErrTimeout
	}
	return venue.ErrCancelled
}

func (b *Bus) sweep(w *Worker, id string) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
	pendingRequestsGauge.WithLabelValues(w.name).Set(float64(w.pendingCount()))
}

// Publish broadcasts an event to a single named worker's event channel,
// non-blocking: a full event buffer drops the event rather than stalling
// the publisher, matching the bus's fire-and-forget event contract.
func (b *Bus) Publish(workerName string, topic string, payload interface{}) {
	b.mu.RLock()
	w, ok := b.workers[workerName]
	b.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case w.events <- Event{Topic: topic, Payload: payload}:
	default:
		w.log.WithField("topic", topic).Warn("bus: event buffer full, dropping event")
	}
}

// Broadcast publishes an event to every registered worker.
func (b *Bus) Broadcast(topic string, payload interface{}) {
	b.mu.RLock()
	names := make([]string, 0, len(b.workers))
	for name := range b.workers {
		names = append(names, name)
	}
	b.mu.RUnlock()
	for _, name := range names {
		b.Publish(name, topic, payload)
	}
}
