package handlers

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rental-platform/backend/internal/config"
	"github.com/rental-platform/backend/internal/events"
	"go.uber.org/zap"
)

// overlapWriter records whether two writes were ever in flight at once.
type overlapWriter struct {
	active  int32
	overlap int32
	writes  int32
}

func (w *overlapWriter) WriteMessage(messageType int, data []byte) error {
	if atomic.AddInt32(&w.active, 1) > 1 {
		atomic.StoreInt32(&w.overlap, 1)
	}
	atomic.AddInt32(&w.writes, 1)
	atomic.AddInt32(&w.active, -1)
	return nil
}

func TestBroadcastSerializesWritesPerConnection(t *testing.T) {
	// The hub subscribes to two streams, so two goroutines can broadcast
	// at the same time; every write to one connection must still be
	// exclusive.
	hub := NewWSHub(&config.Config{}, nil, zap.NewNop())
	writer := &overlapWriter{}
	client := &wsClient{conn: writer}
	hub.register("renter-7", client)
	defer hub.unregister("renter-7", client)

	const rounds = 200
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				hub.broadcast(events.Event{Type: events.EventEscrowDeposited})
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&writer.overlap) != 0 {
		t.Error("concurrent writes reached the same connection")
	}
	if got := atomic.LoadInt32(&writer.writes); got != 2*rounds {
		t.Errorf("writes = %d, want %d", got, 2*rounds)
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewWSHub(&config.Config{}, nil, zap.NewNop())
	writer := &overlapWriter{}
	client := &wsClient{conn: writer}
	hub.register("owner-3", client)

	hub.broadcast(events.Event{Type: events.EventEscrowReleased})
	hub.unregister("owner-3", client)
	hub.broadcast(events.Event{Type: events.EventEscrowRefunded})

	if got := atomic.LoadInt32(&writer.writes); got != 1 {
		t.Errorf("writes = %d, want 1 delivered before unregister", got)
	}
}
