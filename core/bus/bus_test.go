package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synnergy-network/marketengine/core/venue"
)

func TestSendRoundTripsCorrelationID(t *testing.T) {
	b := New(nil)
	w := b.RegisterWorker("echo", 4, 4)
	go func() {
		req := <-w.Requests()
		w.Reply(Response{CorrelationID: req.CorrelationID, Payload: req.Payload})
	}()

	got, err := b.Send(context.Background(), "echo", "ping", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected payload round-trip, got %v", got)
	}
}

func TestSendNoRouteForUnknownWorker(t *testing.T) {
	b := New(nil)
	_, err := b.Send(context.Background(), "missing", "ping", nil)
	if !errors.Is(err, venue.ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestSendTimeoutWhenWorkerNeverReplies(t *testing.T) {
	b := New(nil)
	b.RegisterWorker("silent", 1, 1)

	_, err := b.SendTimeout(context.Background(), "silent", "ping", nil, 20*time.Millisecond)
	if !errors.Is(err, venue.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestSendCancelledDistinctFromTimeout(t *testing.T) {
	b := New(nil)
	b.RegisterWorker("silent", 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.SendTimeout(ctx, "silent", "ping", nil, time.Second)
	if !errors.Is(err, venue.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestUnregisterFailsPendingRequests(t *testing.T) {
	b := New(nil)
	w := b.RegisterWorker("worker", 1, 1)

	errCh := make(chan error, 1)
	go func() {
		_, err := b.SendTimeout(context.Background(), "worker", "ping", nil, time.Second)
		errCh <- err
	}()

	// give Send time to register its pending entry before unregistering.
	<-w.Requests()
	b.Unregister("worker")

	err := <-errCh
	if !errors.Is(err, venue.ErrWorkerTerminated) {
		t.Fatalf("expected ErrWorkerTerminated, got %v", err)
	}
}

func TestPublishIsNonBlockingWhenBufferFull(t *testing.T) {
	b := New(nil)
	w := b.RegisterWorker("sink", 1, 1)

	b.Publish("sink", "topic-a", 1)
	done := make(chan struct{})
	go func() {
		b.Publish("sink", "topic-b", 2) // buffer already full, must not block
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full event buffer")
	}

	ev := <-w.Events()
	if ev.Topic != "topic-a" {
		t.Fatalf("expected the first published event to survive, got %q", ev.Topic)
	}
}

func TestBroadcastReachesEveryWorker(t *testing.T) {
	b := New(nil)
	w1 := b.RegisterWorker("w1", 1, 1)
	w2 := b.RegisterWorker("w2", 1, 1)

	b.Broadcast("tick", 42)

	ev1 := <-w1.Events()
	ev2 := <-w2.Events()
	if ev1.Topic != "tick" || ev2.Topic != "tick" {
		t.Fatalf("expected both workers to receive the broadcast event, got %+v %+v", ev1, ev2)
	}
}

func TestWorkerStatsReflectsPendingCount(t *testing.T) {
	b := New(nil)
	w := b.RegisterWorker("worker", 1, 1)

	go func() {
		_, _ = b.SendTimeout(context.Background(), "worker", "ping", nil, time.Second)
	}()

	req := <-w.Requests()
	if w.Stats().Pending != 1 {
		t.Fatalf("expected one pending request, got %d", w.Stats().Pending)
	}
	w.Reply(Response{CorrelationID: req.CorrelationID, Payload: "ok"})
}
