package websocket

import (
	"sync"
	"testing"
	"time"
)

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func TestBroadcastDeliversToClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{hub: h, send: make(chan []byte, 8)}
	h.register <- client
	waitForCount(t, h, 1)

	if err := h.Broadcast("queue_state", map[string]int{"queued": 2}); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("empty broadcast frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client never received the broadcast")
	}
}

func TestBroadcastEvictsSlowClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	// An unbuffered send channel with no reader: the first broadcast
	// cannot be delivered and the client must be dropped.
	slow := &Client{hub: h, send: make(chan []byte)}
	h.register <- slow
	waitForCount(t, h, 1)

	// ClientCount readers race the eviction; the hub must stay consistent.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.ClientCount()
			}
		}()
	}

	if err := h.Broadcast("progress", map[string]int{"current": 1}); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	wg.Wait()
	waitForCount(t, h, 0)

	if _, ok := <-slow.send; ok {
		t.Error("evicted client's send channel should be closed")
	}
}

func TestSnapshotSentOnRegister(t *testing.T) {
	h := NewHub()
	h.SetSnapshotProvider(func() (string, interface{}) {
		return "queue_state", map[string]bool{"isPaused": false}
	})
	go h.Run()

	client := &Client{hub: h, send: make(chan []byte, 8)}
	h.register <- client

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("empty snapshot frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("late joiner never got the catch-up snapshot")
	}
}
