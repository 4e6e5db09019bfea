package mq

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sufra/rdx"
)

func testConn(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	prev := rdx.Conn
	rdx.Conn = client
	t.Cleanup(func() {
		rdx.Conn = prev
		_ = client.Close()
	})
}

// awaitEvent publishes until the subscription picks one up; the SUBSCRIBE
// command may still be in flight when the first publish lands.
func awaitEvent(t *testing.T, out <-chan OrderEvent, event OrderEvent) OrderEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case got, ok := <-out:
			require.True(t, ok, "stream closed before delivering")
			return got
		case <-tick.C:
			Emit(context.Background(), event)
		case <-deadline:
			t.Fatal("no event delivered")
		}
	}
}

func TestSubscribeDeliversEmittedEvents(t *testing.T) {
	testConn(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, closeSub := Subscribe(ctx)
	defer closeSub()

	want := OrderEvent{
		Event:       EventOrderCreated,
		OrderID:     "o-1",
		OrderNumber: "ORD123456",
		BranchID:    2,
		Status:      "pending",
	}
	got := awaitEvent(t, out, want)
	assert.Equal(t, want, got)
}

func TestSubscribeStopsWhenContextEnds(t *testing.T) {
	testConn(t)
	ctx, cancel := context.WithCancel(context.Background())

	out, closeSub := Subscribe(ctx)
	defer closeSub()

	// Confirm the subscription is live, then park an undrained event on the
	// forwarder before the consumer goes away.
	awaitEvent(t, out, OrderEvent{Event: EventOrderCreated, OrderID: "o-1"})
	Emit(context.Background(), OrderEvent{Event: EventOrderStatusChanged, OrderID: "o-2"})
	time.Sleep(20 * time.Millisecond)

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return // forwarder exited and closed the stream
			}
		case <-deadline:
			t.Fatal("event stream still open after cancel")
		}
	}
}
