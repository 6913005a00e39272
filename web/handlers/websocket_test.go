package handlers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memovo/memovo/internal/chat"
	"github.com/memovo/memovo/web/handlers"
)

func TestWebSocketHub_BroadcastsConsolidationEvents(t *testing.T) {
	hub := handlers.NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	received := make(chan []byte, 1)
	mockClient := &handlers.MockClient{SendChan: received}

	hub.Register(mockClient)

	// Give the hub time to register the client
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(chat.ConsolidationEvent{
		Type:      chat.ConsolidationTitleUpgraded,
		UserID:    "u1",
		SessionID: "s1",
		Title:     "Trip planning",
	})

	select {
	case msg := <-received:
		assert.Contains(t, string(msg), "title_upgraded")
		assert.Contains(t, string(msg), "Trip planning")
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for broadcast message")
	}
}

func TestWebSocketHub_UnregisterAfterStopReturns(t *testing.T) {
	hub := handlers.NewWebSocketHub()
	go hub.Run()

	client := &handlers.MockClient{SendChan: make(chan []byte, 1)}
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.Stop()

	// A connection pump tearing down after shutdown must not hang on the
	// unregister channel nobody is draining anymore.
	done := make(chan struct{})
	go func() {
		hub.Unregister(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Unregister blocked after hub stop")
	}
}

func TestWebSocketHub_DropsSlowClients(t *testing.T) {
	hub := handlers.NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	// Zero-capacity send channel with no reader simulates a stalled client.
	slow := &handlers.MockClient{SendChan: make(chan []byte)}
	hub.Register(slow)
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(map[string]string{"type": "test"})
	time.Sleep(10 * time.Millisecond)

	// The slow client's channel is closed when it is dropped.
	select {
	case _, ok := <-slow.SendChan:
		assert.False(t, ok, "expected send channel to be closed")
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for slow client to be dropped")
	}
}
