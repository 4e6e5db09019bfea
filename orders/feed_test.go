package orders

import (
	"encoding/json"
	"testing"
	"time"

	"sufra/mq"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
		Room: "5",
	}
	hub.register <- client

	event := mq.OrderEvent{Event: mq.EventOrderCreated, OrderID: "o1", BranchID: 5}
	data, _ := json.Marshal(event)
	hub.broadcast <- broadcastMsg{Room: "5", Data: data}

	select {
	case got := <-client.Send:
		if string(got) != string(data) {
			t.Fatalf("expected %s, got %s", data, got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	hub.unregister <- client
}

func TestHubRoomsAreIsolated(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	five := &Client{Send: make(chan []byte, 10), Room: "5"}
	six := &Client{Send: make(chan []byte, 10), Room: "6"}
	hub.register <- five
	hub.register <- six

	hub.broadcast <- broadcastMsg{Room: "5", Data: []byte("ping")}

	select {
	case <-five.Send:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for room 5 message")
	}
	select {
	case got := <-six.Send:
		t.Fatalf("room 6 should stay silent, got %s", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{Send: make(chan []byte, 10), Room: "5"}
	hub.register <- client
	hub.Stop()

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("expected closed send channel")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for close")
	}
}
